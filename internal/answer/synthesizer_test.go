package answer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/campus-qa/internal/retriever"
)

type stubRetriever struct {
	results []retriever.Result
	err     error
	gotK    int
}

func (s *stubRetriever) Search(_ context.Context, _ string, k int) ([]retriever.Result, error) {
	s.gotK = k
	return s.results, s.err
}

type stubGenerator struct {
	out     string
	err     error
	panics  bool
	prompts []string

	mu      sync.Mutex
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	if n > g.maxSeen.Load() {
		g.maxSeen.Store(n)
	}
	if g.panics {
		panic("model crashed")
	}
	time.Sleep(time.Millisecond)
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.out, g.err
}

func TestAnswer_Success(t *testing.T) {
	r := &stubRetriever{results: results("과제 글", "학식 글")}
	g := &stubGenerator{out: "과제는 금요일까지 제출하면 됩니다"}
	s := NewSynthesizer(r, g, nil)

	resp := s.Answer(context.Background(), "과제 마감이 언제야?")

	assert.Equal(t, "과제는 금요일까지 제출하면 됩니다", resp.Answer)
	assert.Equal(t, DefaultTopK, r.gotK)
	require.Len(t, resp.Documents, 2)
	assert.Equal(t, DocumentLink{Title: "글 0", URL: "https://everytime.kr/0", Similarity: 1}, resp.Documents[0])
	assert.Equal(t, "https://everytime.kr/1", resp.Documents[1].URL)
	require.Len(t, g.prompts, 1)
	assert.Contains(t, g.prompts[0], "질문: 과제 마감이 언제야?")
}

func TestAnswer_NoResults(t *testing.T) {
	g := &stubGenerator{out: "unused"}
	s := NewSynthesizer(&stubRetriever{}, g, nil)

	resp := s.Answer(context.Background(), "아무거나")

	assert.Equal(t, NoResultsAnswer, resp.Answer)
	assert.NotNil(t, resp.Documents)
	assert.Empty(t, resp.Documents)
	assert.Empty(t, g.prompts)
}

func TestAnswer_FailuresBecomeApologies(t *testing.T) {
	tests := []struct {
		name string
		r    *stubRetriever
		g    *stubGenerator
	}{
		{"retrieval error", &stubRetriever{err: errors.New("index gone")}, &stubGenerator{}},
		{"generation error", &stubRetriever{results: results("x")}, &stubGenerator{err: errors.New("oom")}},
		{"generation panic", &stubRetriever{results: results("x")}, &stubGenerator{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSynthesizer(tt.r, tt.g, nil).Answer(context.Background(), "질문")
			assert.Equal(t, ErrorAnswer, resp.Answer)
			assert.NotNil(t, resp.Documents)
			assert.Empty(t, resp.Documents)
		})
	}
}

func TestAnswer_SerializesGeneration(t *testing.T) {
	g := &stubGenerator{out: "동시에 여러 질문이 와도 괜찮습니다"}
	s := NewSynthesizer(&stubRetriever{results: results("x")}, g, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Answer(context.Background(), "질문")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), g.maxSeen.Load())
	assert.Len(t, g.prompts, 8)
}

func TestWithTopK(t *testing.T) {
	r := &stubRetriever{}
	s := NewSynthesizer(r, &stubGenerator{}, nil).WithTopK(5).WithTopK(0)

	s.Answer(context.Background(), "q")
	assert.Equal(t, 5, r.gotK)
}

func TestLinks(t *testing.T) {
	rs := results("a", "b", "c", "d")
	rs[1].Document.Metadata.SourceURL = "everytime.kr/0"
	rs[2].Document.Metadata.SourceURL = "http://example.com/post"
	rs[2].Document.Metadata.Title = ""
	rs[3].Document.Metadata.SourceURL = ""

	links := Links(rs)
	require.Len(t, links, 3)

	assert.Equal(t, "https://everytime.kr/0", links[0].URL)
	assert.Equal(t, "https://everytime.kr/0", links[1].URL, "duplicate URLs are kept")
	assert.Equal(t, "http://example.com/post", links[2].URL)
	assert.Equal(t, "제목 없음", links[2].Title)
	assert.InDelta(t, 1.0/3.0, links[2].Similarity, 1e-9)
}

func TestKeywordAnswerer(t *testing.T) {
	tests := []struct {
		question string
		prefix   string
	}{
		{"이번 과제 너무 어려워요", "과제와 관련된 질문이시군요."},
		{"Class schedule?", "수업 관련 문의이시군요."},
		{"복수전공 신청 방법", "복수전공이나 전과 관련 문의는"},
		{"알고리즘 교재 추천", "전공 과목 관련 질문이시군요."},
		{"학식 맛있나요", "'학식 맛있나요...' 에 대한 질문 감사합니다."},
	}

	for _, tt := range tests {
		resp := KeywordAnswerer{}.Answer(context.Background(), tt.question)
		assert.Contains(t, resp.Answer, tt.prefix, tt.question)
		assert.Empty(t, resp.Documents)
	}
}
