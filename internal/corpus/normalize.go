package corpus

import (
	"fmt"
	"strings"

	"github.com/bull/campus-qa/internal/storage"
)

// Render flattens a post and all of its comments into one deterministic text.
// Identical input always yields byte-identical output.
func Render(p Post) string {
	var b strings.Builder

	fmt.Fprintf(&b, "제목: %s\n내용: %s\n", p.Title, p.Detail)
	if p.Timestamp != "" {
		fmt.Fprintf(&b, "작성시간: %s\n", p.Timestamp)
	}
	fmt.Fprintf(&b, "좋아요: %s, 댓글수: %s\n", p.Likes, p.CommentsCount)

	if len(p.Comments) == 0 {
		return b.String()
	}

	b.WriteString("\n[댓글들]\n")

	// A reply is labelled with the author of the most recent top-level comment.
	lastTopLevel, seenTopLevel := "", false
	for i, c := range p.Comments {
		fmt.Fprintf(&b, "\n댓글%d", i+1)
		if c.IsReply() {
			parent := c.ParentAuthor
			if seenTopLevel {
				parent = lastTopLevel
			}
			fmt.Fprintf(&b, "(답글 to %s)", parent)
		} else {
			lastTopLevel, seenTopLevel = c.Author, true
		}

		fmt.Fprintf(&b, ": %s", c.Text)
		if c.Author != "" {
			fmt.Fprintf(&b, " - %s", c.Author)
		}
		if c.Timestamp != "" {
			fmt.Fprintf(&b, " (%s)", c.Timestamp)
		}
		if !c.VoteCount.IsZero() {
			fmt.Fprintf(&b, " [추천:%s]", c.VoteCount)
		}
	}

	return b.String()
}

// Normalize turns posts into documents in input order. Ids are post_<index>
// and only stable within one build.
func Normalize(posts []Post) []storage.Document {
	docs := make([]storage.Document, len(posts))
	for i, p := range posts {
		docs[i] = storage.Document{
			ID:   fmt.Sprintf("post_%d", i),
			Text: Render(p),
			Metadata: storage.Metadata{
				SourceURL:    p.URL,
				Title:        p.Title,
				Likes:        p.Likes.String(),
				CommentCount: p.CommentsCount.String(),
				ScrapCount:   p.Scraps.String(),
				Timestamp:    p.Timestamp,
				CommentTotal: len(p.Comments),
			},
		}
	}
	return docs
}
