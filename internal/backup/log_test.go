package backup

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		recs = append(recs, r)
	}
	require.NoError(t, sc.Err())
	return recs
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.jsonl")
	log := New(path)

	first := Record{ID: "u1", Question: "과제?", Answer: "금요일입니다.", TimeStamp: "t1",
		Document: "https://a\nhttps://b", Documents: []string{"https://a", "https://b"}, Error: "rejected"}
	require.NoError(t, log.Append(first))
	require.NoError(t, log.Append(Record{ID: "u2"}))

	recs := readLines(t, path)
	require.Len(t, recs, 2)
	assert.Equal(t, first, recs[0])
	assert.Equal(t, "u2", recs[1].ID)
}

func TestAppend_PreservesExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"old"}`+"\n"), 0o644))

	require.NoError(t, New(path).Append(Record{ID: "new"}))

	recs := readLines(t, path)
	require.Len(t, recs, 2)
	assert.Equal(t, "old", recs[0].ID)
	assert.Equal(t, "new", recs[1].ID)
}

func TestAppend_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.jsonl")
	log := New(path)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, log.Append(Record{ID: "x", Answer: "동시 기록"}))
		}()
	}
	wg.Wait()

	assert.Len(t, readLines(t, path), 20)
}

func TestAppend_UnwritablePath(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "missing", "backup.jsonl"))
	assert.Error(t, log.Append(Record{ID: "x"}))
}

func TestNew_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, New("").Path())
}
