package answer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Canned answers. They are returned verbatim to askers.
const (
	NoInfoAnswer      = "관련 정보를 찾을 수 없습니다."
	VagueAnswer       = "죄송합니다. 명확한 답변을 드리기 어렵습니다. 좀 더 구체적으로 질문해 주시겠어요?"
	NoResultsAnswer   = "죄송합니다. 관련 정보를 찾을 수 없습니다."
	ErrorAnswer       = "죄송합니다. 답변 생성 중 오류가 발생했습니다."
	UnavailableAnswer = "죄송합니다. 현재 답변을 생성할 수 없습니다. 잠시 후 다시 시도해주세요."
)

// MaxAnswerChars is the hard ceiling on a sanitized answer, in characters.
const MaxAnswerChars = 400

const (
	minRawChars    = 3
	minLineChars   = 3
	minAnswerChars = 10
)

var (
	fencedCode = regexp.MustCompile("```[\\s\\S]*?```")
	inlineCode = regexp.MustCompile("`[^`]*`")
	brackets   = regexp.MustCompile(`[(){}\[\]<>]`)
	spaces     = regexp.MustCompile(`\s+`)
)

// codeMarkers are substrings that mark a line as program text. Matched case-insensitively.
var codeMarkers = []string{
	"import", "def ", "class ", "return", "if __name__",
	"python", "function", "variable", "()", "{", "}",
	"def(", "return(", "import ", "from ", "print(",
	"= [", "= {", "= (", "lambda", "yield",
}

// Sanitize turns raw model output into an answer fit for askers. The steps run
// in a fixed order: reject near-empty output, strip code spans, drop code-like
// and non-Korean lines, flatten, reject near-empty results, then cap the length.
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)
	if utf8.RuneCountInString(text) < minRawChars {
		return NoInfoAnswer
	}

	text = fencedCode.ReplaceAllString(text, "")
	text = inlineCode.ReplaceAllString(text, "")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < minLineChars {
			continue
		}
		if looksLikeCode(line) {
			continue
		}
		if hasKorean(line) || mostlyNonLetters(line) {
			kept = append(kept, line)
		}
	}

	text = strings.Join(kept, " ")
	text = brackets.ReplaceAllString(text, "")
	text = spaces.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) < minAnswerChars {
		return VagueAnswer
	}

	return terminate(capLength(text))
}

func looksLikeCode(line string) bool {
	lower := strings.ToLower(line)
	for _, m := range codeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// hasKorean reports whether line contains a precomposed Hangul syllable.
func hasKorean(line string) bool {
	for _, r := range line {
		if r >= 0xAC00 && r <= 0xD7AF {
			return true
		}
	}
	return false
}

func mostlyNonLetters(line string) bool {
	var letters, total int
	for _, r := range line {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return float64(letters) < float64(total)*0.5
}

// capLength cuts text to MaxAnswerChars at the last sentence end that fits.
// Without one, it keeps MaxAnswerChars-1 characters and closes with a period.
func capLength(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxAnswerChars {
		return text
	}
	head := runes[:MaxAnswerChars]
	for i := len(head) - 1; i >= 0; i-- {
		switch head[i] {
		case '.', '!', '?':
			return string(head[:i+1])
		}
	}
	return string(head[:MaxAnswerChars-1]) + "."
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '요', '다':
		return true
	}
	return false
}

// terminate makes sure the answer ends like a sentence without exceeding MaxAnswerChars.
func terminate(text string) string {
	runes := []rune(text)
	if isTerminal(runes[len(runes)-1]) {
		return text
	}
	if len(runes) >= MaxAnswerChars {
		runes[MaxAnswerChars-1] = '.'
		return string(runes[:MaxAnswerChars])
	}
	return text + "."
}
