package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// File is a finite source reading newline-delimited JSON items from a local
// dataset file, one item object per line.
type File struct {
	f       *os.File
	scanner *bufio.Scanner
}

// OpenFile opens a dataset file as a source.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &File{f: f, scanner: scanner}, nil
}

// Next returns the next item from the file, ErrMalformedRecord for a line
// that does not decode, and io.EOF at the end of the file.
func (s *File) Next(ctx context.Context) (*Item, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("dataset read: %w", err)
			}
			return nil, io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if item.Text == "" {
			return nil, fmt.Errorf("%w: record has no text", ErrMalformedRecord)
		}
		return &item, nil
	}
}

// Close closes the underlying file.
func (s *File) Close() error {
	return s.f.Close()
}
