// Package perspective scores text against the Perspective comment analyzer
// API and classifies its failures.
package perspective

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultEndpoint = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"

// ScoreSet maps an attribute name to its summary score in [0,1].
type ScoreSet map[string]float64

// Client calls the comment analyzer API. Every failure comes back as a
// *ClassifyError with a kind; Analyze never aborts a run.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewClient creates a comment analyzer client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithEndpoint creates a client against a non-default endpoint.
// Used by tests.
func NewClientWithEndpoint(apiKey, endpoint string) *Client {
	c := NewClient(apiKey)
	c.endpoint = endpoint
	return c
}

type comment struct {
	Text string `json:"text"`
}

type summaryScore struct {
	Value float64 `json:"value"`
}

type attributeScore struct {
	SummaryScore summaryScore `json:"summaryScore"`
}

type analyzeResponse struct {
	AttributeScores map[string]attributeScore `json:"attributeScores"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			ErrorType string `json:"errorType"`
		} `json:"details"`
	} `json:"error"`
}

// Analyze normalizes text, requests scores for the given attributes, and
// returns the attribute to score mapping. On failure it returns a
// *ClassifyError naming the kind; it never panics and never returns a bare
// transport error.
func (c *Client) Analyze(ctx context.Context, text string, attributes []string) (ScoreSet, error) {
	requested := make(map[string]struct{}, len(attributes))
	for _, a := range attributes {
		requested[a] = struct{}{}
	}

	body := map[string]any{
		"comment":             comment{Text: Normalize(text)},
		"requestedAttributes": requested,
		"doNotStore":          true,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &ClassifyError{Kind: KindMalformedRequest, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"?key="+c.apiKey, bytes.NewReader(data))
	if err != nil {
		return nil, &ClassifyError{Kind: KindMalformedRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ClassifyError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ClassifyError{Kind: KindTransport, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyFailure(resp.StatusCode, respBody)
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ClassifyError{Kind: KindDecodeFailure, Err: err}
	}

	scores := make(ScoreSet, len(attributes))
	for _, a := range attributes {
		as, ok := parsed.AttributeScores[a]
		if !ok {
			return nil, &ClassifyError{
				Kind:    KindDecodeFailure,
				Message: fmt.Sprintf("response missing score for %s", a),
			}
		}
		v := as.SummaryScore.Value
		if v < 0 || v > 1 {
			return nil, &ClassifyError{
				Kind:    KindDecodeFailure,
				Message: fmt.Sprintf("score %g for %s outside [0,1]", v, a),
			}
		}
		scores[a] = v
	}

	return scores, nil
}

// classifyFailure inspects the structured error body of a non-200 response.
// The machine-readable errorType detail takes precedence over the coarser
// status; a response with neither classifies as transport.
func (c *Client) classifyFailure(statusCode int, body []byte) *ClassifyError {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err != nil || ae.Error.Status == "" && len(ae.Error.Details) == 0 {
		return &ClassifyError{
			Kind:    KindTransport,
			Message: fmt.Sprintf("HTTP %d: %s", statusCode, truncate(string(body), 200)),
		}
	}

	for _, d := range ae.Error.Details {
		if kind, ok := classifyErrorType(d.ErrorType); ok {
			return &ClassifyError{Kind: kind, ErrorType: d.ErrorType, Message: ae.Error.Message}
		}
	}

	// RESOURCE_EXHAUSTED covers both per-second rejection and exhausted daily
	// quota; HTTP 429 without a more specific detail means rate limiting.
	if statusCode == http.StatusTooManyRequests {
		return &ClassifyError{Kind: KindRateLimit, ErrorType: ae.Error.Status, Message: ae.Error.Message}
	}

	return &ClassifyError{
		Kind:      classifyStatus(ae.Error.Status),
		ErrorType: ae.Error.Status,
		Message:   ae.Error.Message,
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
