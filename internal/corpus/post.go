// Package corpus reads the community post dump and flattens each post with its
// comments into one searchable document.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
)

// Comment types emitted by the corpus producer.
const (
	TypeTopLevel = "parent"
	TypeReply    = "child"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 16 << 20

// Count is an engagement counter. The producer emits these as strings or numbers.
type Count string

// UnmarshalJSON accepts "12", 12 and null.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Count(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		*c = Count(n.String())
	}
	return nil
}

// String returns the counter, "0" when absent.
func (c Count) String() string {
	if c == "" {
		return "0"
	}
	return string(c)
}

// IsZero reports whether the counter is absent or zero.
func (c Count) IsZero() bool {
	if c == "" {
		return true
	}
	n, err := strconv.ParseFloat(string(c), 64)
	return err == nil && n == 0
}

// Post is one scraped board post with its comments in page order.
type Post struct {
	Title         string    `json:"title"`
	Detail        string    `json:"detail"`
	URL           string    `json:"url"`
	Likes         Count     `json:"likes"`
	CommentsCount Count     `json:"comments_count"`
	Scraps        Count     `json:"scraps"`
	Timestamp     string    `json:"timestamp"`
	Comments      []Comment `json:"comments"`
}

// Comment is a top-level comment or a reply.
type Comment struct {
	Type         string `json:"Type"`
	Author       string `json:"Author"`
	Text         string `json:"Comment"`
	Timestamp    string `json:"Timestamp"`
	VoteCount    Count  `json:"Vote Count"`
	ParentAuthor string `json:"Parent Author"`
}

// IsReply reports whether the comment answers another comment.
func (c Comment) IsReply() bool { return c.Type == TypeReply }

// ReadJSONL parses one post per line. Blank lines are ignored; malformed lines
// are logged and skipped. It returns the posts in file order and the skip count.
func ReadJSONL(r io.Reader, logger *slog.Logger) ([]Post, int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var posts []Post
	skipped := 0
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var p Post
		if err := json.Unmarshal(line, &p); err != nil {
			logger.Warn("Skipping malformed corpus line", "line", lineNum, "error", err)
			skipped++
			continue
		}
		posts = append(posts, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read corpus line %d: %w", lineNum+1, err)
	}

	return posts, skipped, nil
}
