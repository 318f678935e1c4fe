// Package tracking is the append-only durable log of matched items.
package tracking

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/toxwatch/toxwatch/internal/feed"
	"github.com/toxwatch/toxwatch/internal/perspective"
)

// ErrExists is returned when the destination already exists and append was
// not requested. It protects a previous run's results from being clobbered.
var ErrExists = errors.New("tracking file already exists")

// Match is one tracked item: the original item, its full score set, the
// generated reply, and the append timestamp. Immutable once written.
type Match struct {
	Item      feed.Item            `json:"item"`
	Scores    perspective.ScoreSet `json:"scores"`
	Reply     string               `json:"reply"`
	TrackedAt time.Time            `json:"tracked_at"`
}

// Store writes one self-delimited JSON record per line, synced before Append
// returns. A crash loses at most the in-flight record, never a prior one.
type Store struct {
	f    *os.File
	path string
}

// Open binds a store to path. Without appendExisting, an existing file fails
// with ErrExists and no write happens; with it, records are appended after
// any previous run's. Opening happens before the pipeline starts so a bad
// destination is found before any item work is wasted.
func Open(path string, appendExisting bool) (*Store, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if appendExisting {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w at %s; remove it or enable append", ErrExists, path)
		}
		return nil, fmt.Errorf("opening tracking file: %w", err)
	}

	return &Store{f: f, path: path}, nil
}

// Path returns the destination path.
func (s *Store) Path() string {
	return s.path
}

// Append writes one match record and syncs it to disk.
func (s *Store) Append(m Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding match: %w", err)
	}
	data = append(data, '\n')

	if _, err := s.f.Write(data); err != nil {
		return fmt.Errorf("appending match: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("syncing tracking file: %w", err)
	}
	return nil
}

// Close releases the destination.
func (s *Store) Close() error {
	return s.f.Close()
}

// ReadAll decodes every record from a tracking file, in append order.
func ReadAll(path string) ([]Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tracking file: %w", err)
	}
	defer f.Close()

	var matches []Match
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m Match
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", len(matches)+1, err)
		}
		matches = append(matches, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading tracking file: %w", err)
	}
	return matches, nil
}
