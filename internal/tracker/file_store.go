package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore keeps the whole prediction log in one human-readable JSON file
// keyed by symbol. A missing or externally truncated file is an empty
// history, never an error, so an operator can inspect or reset it freely.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) History(ctx context.Context, symbol string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.load()
	return all[symbol], nil
}

func (s *FileStore) Put(ctx context.Context, symbol string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.load()
	all[symbol] = entries
	return s.save(all)
}

func (s *FileStore) Close() error { return nil }

// load reads the file fresh on every call so external edits between runs
// are picked up. Caller holds the lock.
func (s *FileStore) load() map[string][]Entry {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("prediction history unreadable, starting empty")
		}
		return map[string][]Entry{}
	}
	var all map[string][]Entry
	if err := json.Unmarshal(raw, &all); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("prediction history corrupt, starting empty")
		return map[string][]Entry{}
	}
	if all == nil {
		all = map[string][]Entry{}
	}
	return all
}

func (s *FileStore) save(all map[string][]Entry) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("tracker store: %w", err)
		}
	}
	raw, err := json.MarshalIndent(all, "", "    ")
	if err != nil {
		return fmt.Errorf("tracker store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("tracker store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("tracker store: %w", err)
	}
	return nil
}
