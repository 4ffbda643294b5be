package answer

import (
	"fmt"
	"strings"

	"github.com/bull/campus-qa/internal/retriever"
)

const (
	// ContextDocuments is how many retrieved documents are placed in the prompt.
	ContextDocuments = 3

	// SnippetChars bounds each document snippet in the prompt.
	SnippetChars = 300
)

const promptHeader = `당신은 대학생들을 돕는 친근한 AI 상담사입니다. 아래 참고 정보를 바탕으로 학생의 질문에 자연스럽고 도움이 되는 답변을 한국어로 제공해주세요.

중요한 규칙:
0. 질문에 대한 답변을 제공하세요.
1. 반드시 한국어로만 답변하세요
2. 절대로 코드, 프로그래밍 언어, 함수, 변수명 등을 포함하지 마세요
3. 일반적인 대화체로 자연스럽게 답변하세요
4. 참고 정보의 내용을 참고해서 질문에 대한 답변을 제공하세요
5. 친근하고 이해하기 쉽게 설명하세요
6. 답변은 완전한 문장으로 구성하세요

참고 정보:
***
`

// BuildPrompt renders the generation prompt from the question and the best
// retrieved documents. Results beyond ContextDocuments are ignored.
func BuildPrompt(question string, results []retriever.Result) string {
	var ctx strings.Builder
	for i, r := range results[:min(len(results), ContextDocuments)] {
		fmt.Fprintf(&ctx, "[참고자료 %d]\n%s\n\n", i+1, truncateRunes(r.Document.Text, SnippetChars))
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString(ctx.String())
	b.WriteString("\n***\n\n질문: ")
	b.WriteString(question)
	b.WriteString("\n\n답변:")
	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
