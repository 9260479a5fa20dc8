// Package nermodel provides a client for the token-classification inference
// server that serves the fine-tuned NER model.
package nermodel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the inference server operations.
type Client interface {
	// Info returns the server's loaded-model metadata.
	Info(ctx context.Context) (*ModelInfo, error)
	// Predict runs token classification over a batch of texts, returning one
	// prediction list per input text, index-aligned.
	Predict(ctx context.Context, texts []string) ([][]Prediction, error)
}

// ModelInfo describes the model the server has loaded.
type ModelInfo struct {
	Status    string            `json:"status"`
	ModelPath string            `json:"model_path"`
	Labels    map[string]string `json:"id2label,omitempty"`
}

// Prediction is one aggregated entity span from the model.
type Prediction struct {
	EntityGroup string  `json:"entity_group"`
	Score       float64 `json:"score"`
	Word        string  `json:"word"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

type predictRequest struct {
	Inputs []string `json:"inputs"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the inference server at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures. The request body, if any, is supplied as bytes so the
// request can be rebuilt per attempt.
func (c *httpClient) retryDo(ctx context.Context, method, url string, reqBody []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var body io.Reader
		if reqBody != nil {
			body = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, 0, eris.Wrap(err, "nermodel: build request")
		}
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "nermodel: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("nermodel: status %d: %s", resp.StatusCode, string(respBody))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return respBody, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) Info(ctx context.Context) (*ModelInfo, error) {
	body, statusCode, err := c.retryDo(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, eris.Wrap(err, "nermodel: health request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("nermodel: health returned status %d: %s", statusCode, string(body))
	}

	var info ModelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, eris.Wrap(err, "nermodel: unmarshal health response")
	}
	return &info, nil
}

func (c *httpClient) Predict(ctx context.Context, texts []string) ([][]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(predictRequest{Inputs: texts})
	if err != nil {
		return nil, eris.Wrap(err, "nermodel: marshal request")
	}

	body, statusCode, err := c.retryDo(ctx, http.MethodPost, c.baseURL+"/predict", reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "nermodel: predict request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("nermodel: predict returned status %d: %s", statusCode, string(body))
	}

	var preds [][]Prediction
	if err := json.Unmarshal(body, &preds); err != nil {
		return nil, eris.Wrap(err, "nermodel: unmarshal predictions")
	}
	if len(preds) != len(texts) {
		return nil, eris.Errorf("nermodel: got %d prediction lists for %d inputs", len(preds), len(texts))
	}
	return preds, nil
}
