package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultStreamURL = "https://api.twitter.com/2/tweets/sample/stream?tweet.fields=lang,entities&expansions=author_id"

// Stream reads the sampled realtime item stream: a long-lived HTTP response
// yielding one JSON envelope per line. Blank keep-alive lines are skipped.
type Stream struct {
	url     string
	token   string
	client  *http.Client
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// NewStream creates a sampled-stream source authenticated with the given
// bearer token. Connect must be called before Next.
func NewStream(bearerToken string) *Stream {
	return &Stream{
		url:   defaultStreamURL,
		token: bearerToken,
		// No client timeout: the connection is long-lived by design and
		// cancellation comes from the request context.
		client: &http.Client{},
	}
}

// NewStreamWithURL creates a stream source against a non-default URL.
// Used by tests.
func NewStreamWithURL(bearerToken, url string) *Stream {
	s := NewStream(bearerToken)
	s.url = url
	return s
}

// Connect opens the streaming connection. Failing here is startup-fatal for
// the run; failures after Connect surface from Next. The context governs the
// whole connection, not just the dial: cancelling it fails a read blocked in
// Next even when the connection stays silent.
func (s *Stream) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.url, nil)
	if err != nil {
		return fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return fmt.Errorf("stream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	s.body = resp.Body
	s.scanner = bufio.NewScanner(resp.Body)
	s.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return nil
}

// Next returns the next item from the stream. A line that cannot be decoded
// yields ErrMalformedRecord; a broken connection yields the transport error;
// a cleanly closed stream yields io.EOF.
func (s *Stream) Next(ctx context.Context) (*Item, error) {
	if s.scanner == nil {
		return nil, fmt.Errorf("stream not connected")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !s.scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("stream read: %w", err)
			}
			return nil, io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue // keep-alive
		}

		item, err := decodeStreamRecord([]byte(line))
		if err != nil {
			return nil, err
		}
		return item, nil
	}
}

// Close closes the streaming connection.
func (s *Stream) Close() error {
	if s.body == nil {
		return nil
	}
	return s.body.Close()
}
