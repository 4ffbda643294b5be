package answer

import (
	"context"
	"strings"
)

// keywordRule maps question keywords to a canned reply.
type keywordRule struct {
	keywords []string
	answer   string
}

var keywordRules = []keywordRule{
	{
		keywords: []string{"과제", "숙제", "assignment"},
		answer:   "과제와 관련된 질문이시군요. 구체적인 과제 내용이나 어려운 부분을 알려주시면 더 자세한 도움을 드릴 수 있습니다.",
	},
	{
		keywords: []string{"수업", "강의", "시간표", "class"},
		answer:   "수업 관련 문의이시군요. 학과 홈페이지나 학습관리시스템에서 더 정확한 정보를 확인하실 수 있습니다.",
	},
	{
		keywords: []string{"복전", "전과", "복수전공"},
		answer:   "복수전공이나 전과 관련 문의는 학과 사무실이나 학사팀에 직접 문의하시는 것이 가장 정확합니다.",
	},
	{
		keywords: []string{"이산구조", "자료구조", "알고리즘"},
		answer:   "전공 과목 관련 질문이시군요. 교수님께 직접 문의하시거나 학습 커뮤니티를 활용해보시는 것을 추천드립니다.",
	},
}

// KeywordAnswerer replies from a fixed keyword table. It is the degraded mode
// used when no index or model is available, and it never links documents.
type KeywordAnswerer struct{}

// Answer picks the first rule whose keyword appears in the question.
func (KeywordAnswerer) Answer(_ context.Context, question string) Response {
	lower := strings.ToLower(question)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return textOnly(rule.answer)
			}
		}
	}
	return textOnly("'" + preview(question, 50) + "...' 에 대한 질문 감사합니다. 더 구체적인 정보를 제공해주시면 더 정확한 답변을 드릴 수 있습니다.")
}
