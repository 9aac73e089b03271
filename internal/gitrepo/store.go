// Package gitrepo is a store backend that keeps every key as a file in a
// local git repository and commits each write, giving memos a history.
package gitrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"memopad/internal/store"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	authorName  = "memopad"
	authorEmail = "memopad@localhost"
)

type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Revision is one historical version of a single memo.
type Revision struct {
	Hash      string    `json:"hash"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	mu   sync.Mutex
	dir  string
	repo *git.Repository
}

// Open opens the repository at dir, initializing it on first use.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("init repo: %w", err)
		}
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
			return nil, fmt.Errorf("set HEAD to main: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return &Store{dir: dir, repo: repo}, nil
}

func fileName(key string) string {
	return url.PathEscape(key) + ".json"
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, err := os.ReadFile(filepath.Join(s.dir, fileName(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fileName(key)
	if err := os.WriteFile(filepath.Join(s.dir, name), value, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(name); err != nil {
		return fmt.Errorf("git add %s: %w", key, err)
	}
	return s.commit(worktree, "update "+key)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fileName(key)
	if _, err := os.Stat(filepath.Join(s.dir, name)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Remove(name); err != nil {
		return fmt.Errorf("git rm %s: %w", key, err)
	}
	return s.commit(worktree, "delete "+key)
}

func (s *Store) Ping(context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("stat repo dir: %w", err)
	}
	return nil
}

// unchanged content is not an error; the write simply leaves no commit
func (s *Store) commit(worktree *git.Worktree, message string) error {
	_, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil && !errors.Is(err, git.ErrEmptyCommit) {
		return fmt.Errorf("commit %q: %w", message, err)
	}
	return nil
}

// History lists commits touching key, newest first.
func (s *Store) History(key string, limit int) ([]CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]CommitInfo, 0)
	err := s.walk(key, func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	return items, err
}

// ContentAt returns the value of key as of the given commit.
func (s *Store) ContentAt(key, hash string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, err := s.resolveHash(hash)
	if err != nil {
		return nil, err
	}
	commitObj, err := s.repo.CommitObject(resolved)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return readFile(commitObj, fileName(key))
}

// MemoRevisions walks the memo map history and returns the distinct
// versions of one memo, newest first.
func (s *Store) MemoRevisions(memoID string, limit int) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fileName(store.MemosKey)
	revisions := make([]Revision, 0)
	err := s.walk(store.MemosKey, func(commitObj *object.Commit) error {
		raw, err := readFile(commitObj, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		memos := map[string]store.Memo{}
		if err := json.Unmarshal(raw, &memos); err != nil {
			return nil
		}
		memo, ok := memos[memoID]
		if !ok {
			return nil
		}
		if n := len(revisions); n > 0 && revisions[n-1].Content == memo.Content && revisions[n-1].Title == memo.Title {
			return nil
		}
		revisions = append(revisions, Revision{
			Hash:      commitObj.Hash.String()[:7],
			Title:     memo.Title,
			Content:   memo.Content,
			CreatedAt: commitObj.Author.When,
		})
		if limit > 0 && len(revisions) >= limit {
			return io.EOF
		}
		return nil
	})
	return revisions, err
}

func (s *Store) walk(key string, fn func(*object.Commit) error) error {
	head, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	name := fileName(key)
	iter, err := s.repo.Log(&git.LogOptions{From: head.Hash(), FileName: &name})
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	if err := iter.ForEach(fn); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("iterate log: %w", err)
	}
	return nil
}

func (s *Store) resolveHash(hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := s.repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}

func readFile(commitObj *object.Commit, name string) ([]byte, error) {
	file, err := commitObj.File(name)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", name, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open %s reader: %w", name, err)
	}
	defer reader.Close()

	value, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}
