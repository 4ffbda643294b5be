package mcp

import (
	"html/template"
	"net/http"

	"github.com/bull/campus-qa/internal/storage"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>캠퍼스 QA MCP 서버</title>
<style>
  body { font-family: -apple-system, "Apple SD Gothic Neo", "Noto Sans KR", sans-serif; background: #f8fafc; color: #1e293b; margin: 0; padding: 3rem 1rem; }
  main { max-width: 560px; margin: 0 auto; background: #fff; border: 1px solid #e2e8f0; border-radius: 10px; padding: 2rem; }
  h1 { font-size: 1.5rem; margin-top: 0; }
  dt { font-size: 0.75rem; color: #64748b; margin-top: 1rem; }
  dd { margin: 0.25rem 0 0; }
  code { background: #f1f5f9; padding: 0.1rem 0.3rem; border-radius: 4px; }
</style>
</head>
<body>
<main>
  <h1>캠퍼스 QA MCP 서버</h1>
  <p>대학 커뮤니티 게시글을 바탕으로 학생 질문에 답합니다.</p>
  <dl>
    <dt>엔드포인트</dt>
    <dd><code>/mcp</code> MCP Streamable HTTP</dd>
    <dd><code>/health</code> 상태 확인</dd>
    <dt>도구</dt>
    <dd><code>ask_question</code>, <code>search_posts</code>, <code>get_index_status</code></dd>
    <dt>인덱스</dt>
    {{if .}}<dd>게시글 {{.NumTexts}}개, 모델 {{.ModelName}}, 생성 {{.CreatedAt.Format "2006-01-02 15:04"}}</dd>
    {{else}}<dd>로드되지 않음 (키워드 답변 모드)</dd>{{end}}
  </dl>
</main>
</body>
</html>`))

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
// manifest is nil when no index is loaded.
func NewLandingHandler(manifest *storage.Manifest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		landingTemplate.Execute(w, manifest)
	}
}
