package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postWithComments() Post {
	return Post{
		Title:         "이산구조 과제",
		Detail:        "과제 3번 어떻게 푸나요",
		URL:           "everytime.kr/442356/v/1",
		Likes:         "2",
		CommentsCount: "3",
		Timestamp:     "03/14 10:21",
		Comments: []Comment{
			{Type: TypeTopLevel, Author: "익명1", Text: "조교님께 물어보세요", Timestamp: "03/14 10:30", VoteCount: "4"},
			{Type: TypeReply, Author: "익명(글쓴이)", Text: "감사합니다", Timestamp: "03/14 10:35", VoteCount: "0", ParentAuthor: "stale"},
			{Type: TypeTopLevel, Author: "익명2", Text: "저도 궁금해요"},
		},
	}
}

func TestRender_WithComments(t *testing.T) {
	want := "제목: 이산구조 과제\n" +
		"내용: 과제 3번 어떻게 푸나요\n" +
		"작성시간: 03/14 10:21\n" +
		"좋아요: 2, 댓글수: 3\n" +
		"\n[댓글들]\n" +
		"\n댓글1: 조교님께 물어보세요 - 익명1 (03/14 10:30) [추천:4]" +
		"\n댓글2(답글 to 익명1): 감사합니다 - 익명(글쓴이) (03/14 10:35)" +
		"\n댓글3: 저도 궁금해요 - 익명2"

	assert.Equal(t, want, Render(postWithComments()))
}

func TestRender_NoCommentsHasNoCommentBlock(t *testing.T) {
	p := Post{Title: "수강신청 팁", Detail: "공유합니다"}

	got := Render(p)
	assert.Equal(t, "제목: 수강신청 팁\n내용: 공유합니다\n좋아요: 0, 댓글수: 0\n", got)
	assert.NotContains(t, got, "[댓글들]")
}

func TestRender_ReplyBackReferenceUsesMostRecentTopLevel(t *testing.T) {
	p := Post{Comments: []Comment{
		{Type: TypeTopLevel, Author: "A", Text: "first"},
		{Type: TypeTopLevel, Author: "B", Text: "second"},
		{Type: TypeReply, Author: "C", Text: "reply", ParentAuthor: "A"},
	}}

	assert.Contains(t, Render(p), "댓글3(답글 to B): reply - C")
}

func TestRender_ReplyWithoutTopLevelFallsBackToRecord(t *testing.T) {
	p := Post{Comments: []Comment{
		{Type: TypeReply, Author: "C", Text: "orphan", ParentAuthor: "A"},
	}}

	assert.Contains(t, Render(p), "댓글1(답글 to A): orphan - C")
}

func TestRender_Deterministic(t *testing.T) {
	p := postWithComments()
	first := Render(p)
	for range 10 {
		require.Equal(t, first, Render(p))
	}
}

func TestNormalize(t *testing.T) {
	posts := []Post{{Title: "a"}, postWithComments()}

	docs := Normalize(posts)
	require.Len(t, docs, 2)

	assert.Equal(t, "post_0", docs[0].ID)
	assert.Equal(t, "post_1", docs[1].ID)
	assert.True(t, strings.HasPrefix(docs[1].Text, "제목: 이산구조 과제"))

	meta := docs[1].Metadata
	assert.Equal(t, "everytime.kr/442356/v/1", meta.SourceURL)
	assert.Equal(t, "이산구조 과제", meta.Title)
	assert.Equal(t, "2", meta.Likes)
	assert.Equal(t, "3", meta.CommentCount)
	assert.Equal(t, "0", meta.ScrapCount)
	assert.Equal(t, 3, meta.CommentTotal)
	assert.Equal(t, 0, docs[0].Metadata.CommentTotal)
}
