package github

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/google/go-github/v81/github"
)

// CorpusExt is the extension of corpus dump files.
const CorpusExt = ".jsonl"

// Fetcher downloads corpus dumps committed to a data repository.
type Fetcher struct {
	client *Client
	owner  string
	repo   string
	ref    string
}

// NewFetcher creates a fetcher for owner/repo. An empty ref means the default branch.
func NewFetcher(client *Client, owner, repo, ref string) *Fetcher {
	return &Fetcher{
		client: client,
		owner:  owner,
		repo:   repo,
		ref:    ref,
	}
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// ListCorpusFiles returns every .jsonl file under dir, recursively, sorted by path.
// If dir is itself a file it is returned alone.
func (f *Fetcher) ListCorpusFiles(ctx context.Context, dir string) ([]string, error) {
	fileContent, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, dir, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", dir, err)
	}
	if fileContent != nil {
		return []string{dir}, nil
	}

	var files []string
	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}
		itemPath := path.Join(dir, *item.Name)

		switch *item.Type {
		case "file":
			if strings.HasSuffix(*item.Name, CorpusExt) {
				files = append(files, itemPath)
			}
		case "dir":
			sub, err := f.ListCorpusFiles(ctx, itemPath)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Download returns the raw bytes of one file. DownloadContents is used so
// files above the 1MB contents-API limit work too.
func (f *Fetcher) Download(ctx context.Context, filePath string) ([]byte, error) {
	rc, _, err := f.client.Repositories.DownloadContents(ctx, f.owner, f.repo, filePath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", filePath, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return buf.Bytes(), nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit touching p.
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context, p string) (string, error) {
	opts := &github.CommitsListOptions{
		Path:        p,
		SHA:         f.ref,
		ListOptions: github.ListOptions{PerPage: 1},
	}
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, opts)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", p)
	}
	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}
	return *commits[0].SHA, nil
}

// Describe formats a source description for the index manifest.
func (f *Fetcher) Describe(p, sha string) string {
	desc := fmt.Sprintf("github.com/%s/%s/%s", f.owner, f.repo, p)
	if sha != "" {
		desc += "@" + sha
	}
	return desc
}
