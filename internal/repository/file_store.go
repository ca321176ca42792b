package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/user/reelpick/internal/model"
)

// 本地文件后端的文件名
const (
	movieDirName     = "movies"
	keywordsFileName = "tmdb_keywords.json"
	genresFileName   = "tmdb_genres.json"
	usageFileName    = "api_usage_log.json"
	promptsFileName  = "prompts.jsonl"
)

// fileBase 各文件仓库共享目录与写锁
type fileBase struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore 创建本地目录存储
func NewFileStore(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, movieDirName), 0o755); err != nil {
		return nil, fmt.Errorf("创建缓存目录失败: %w", err)
	}
	base := &fileBase{dir: dir}
	return &Store{
		Movies:   &FileMovieStore{base},
		Keywords: &FileKeywordStore{base},
		Genres:   &FileGenreStore{base},
		Usage:    &FileUsageStore{base},
		Prompts:  &FilePromptLogStore{base},
	}, nil
}

func (b *fileBase) path(name string) string {
	return filepath.Join(b.dir, name)
}

// readJSON 文件不存在时保持 target 不变
func (b *fileBase) readJSON(name string, target interface{}) error {
	data, err := os.ReadFile(b.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", name, err)
	}
	return nil
}

// writeJSON 先写临时文件再 rename
func (b *fileBase) writeJSON(name string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	target := b.path(name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// FileMovieStore 每部电影一个 JSON 文件
type FileMovieStore struct{ *fileBase }

func movieFileName(key string) string {
	return filepath.Join(movieDirName, strings.ReplaceAll(key, ":", "_")+".json")
}

func (s *FileMovieStore) FindByKey(ctx context.Context, key string) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(movieFileName(key))); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var movie model.Movie
	if err := s.readJSON(movieFileName(key), &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

func (s *FileMovieStore) Upsert(ctx context.Context, movie *model.Movie) error {
	if movie.Key == "" {
		movie.AssignKey()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var existing model.Movie
	if err := s.readJSON(movieFileName(movie.Key), &existing); err != nil {
		return err
	}
	switch {
	case !existing.CreatedAt.IsZero():
		movie.CreatedAt = existing.CreatedAt
	case movie.CreatedAt.IsZero():
		movie.CreatedAt = now
	}
	movie.UpdatedAt = now
	return s.writeJSON(movieFileName(movie.Key), movie)
}

func (s *FileMovieStore) All(ctx context.Context) ([]model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.path(movieDirName))
	if err != nil {
		return nil, err
	}
	movies := make([]model.Movie, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var movie model.Movie
		if err := s.readJSON(filepath.Join(movieDirName, e.Name()), &movie); err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].UpdatedAt.After(movies[j].UpdatedAt)
	})
	return movies, nil
}

func (s *FileMovieStore) Acclaimed(ctx context.Context, minIMDb float64, minRT, limit int) ([]model.Movie, error) {
	movies, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].Year > movies[j].Year
	})
	return acclaimed(movies, minIMDb, minRT, limit), nil
}

// FileKeywordStore 关键词缓存，单个 JSON 数组
type FileKeywordStore struct{ *fileBase }

func (s *FileKeywordStore) All(ctx context.Context) ([]model.KeywordEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []model.KeywordEntry
	err := s.readJSON(keywordsFileName, &entries)
	return entries, err
}

func (s *FileKeywordStore) Insert(ctx context.Context, entry *model.KeywordEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []model.KeywordEntry
	if err := s.readJSON(keywordsFileName, &entries); err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name == entry.Name {
			return nil
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entries = append(entries, *entry)
	return s.writeJSON(keywordsFileName, entries)
}

// FileGenreStore 类型表，单个 JSON 数组
type FileGenreStore struct{ *fileBase }

func (s *FileGenreStore) All(ctx context.Context) ([]model.Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var genres []model.Genre
	err := s.readJSON(genresFileName, &genres)
	return genres, err
}

func (s *FileGenreStore) ReplaceAll(ctx context.Context, genres []model.Genre) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if genres == nil {
		genres = []model.Genre{}
	}
	return s.writeJSON(genresFileName, genres)
}

// FileUsageStore 调用台账，格式 {date: {provider: n}}
type FileUsageStore struct{ *fileBase }

type usageLog map[string]map[string]int

func (s *FileUsageStore) load() (usageLog, error) {
	log := usageLog{}
	if err := s.readJSON(usageFileName, &log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *FileUsageStore) Increment(ctx context.Context, date, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.load()
	if err != nil {
		return err
	}
	if log[date] == nil {
		log[date] = map[string]int{}
	}
	log[date][provider]++
	return s.writeJSON(usageFileName, log)
}

func (s *FileUsageStore) Since(ctx context.Context, date string) ([]model.UsageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.load()
	if err != nil {
		return nil, err
	}
	var entries []model.UsageEntry
	for d, providers := range log {
		if d < date {
			continue
		}
		for p, n := range providers {
			entries = append(entries, model.UsageEntry{Date: d, Provider: p, Calls: n})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].Provider < entries[j].Provider
	})
	return entries, nil
}

func (s *FileUsageStore) DeleteBefore(ctx context.Context, date string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.load()
	if err != nil {
		return 0, err
	}
	var removed int64
	for d, providers := range log {
		if d < date {
			removed += int64(len(providers))
			delete(log, d)
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.writeJSON(usageFileName, log)
}

// FilePromptLogStore 每行一条 JSON 记录
type FilePromptLogStore struct{ *fileBase }

func (s *FilePromptLogStore) Append(ctx context.Context, entry *model.PromptLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(promptsFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.Write(append(line, '\n')); err != nil {
		return err
	}
	return w.Flush()
}
