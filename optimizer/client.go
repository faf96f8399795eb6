// Package optimizer talks to the external signal timing optimizer over HTTP.
//
// The optimizer is a black box reached at a configured base URL with the
// sub-paths /optimize and /predict. Requests are user-triggered and never
// retried. When the optimizer refuses the connection and mock fallback is
// enabled, a synthetic result tagged models.SourceMock is returned instead so
// the dashboard stays usable without a live backend.
package optimizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"syscall"
	"time"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/config"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/normalize"
)

const (
	PathOptimize = "/optimize"
	PathPredict  = "/predict"

	maxResponseBytes = 32 << 20
)

var (
	// ErrUnavailable wraps transport failures where the optimizer refused the
	// connection. Only these trigger the mock fallback.
	ErrUnavailable = errors.New("optimizer unavailable")
	ErrFileRead    = errors.New("file could not be read as text")

	ErrMalformedResponse = normalize.ErrMalformedResponse
)

// RemoteError is a non-2xx answer from the optimizer. Body is kept verbatim.
type RemoteError struct {
	StatusCode int
	Body       []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("optimizer returned status %d: %s", e.StatusCode, bytes.TrimSpace(e.Body))
}

// RecordSet is a normalized dataset returned by the file and predict paths.
type RecordSet struct {
	Records  []models.OptimizationRecord
	Topology models.Topology
	Source   models.Source
}

type Client struct {
	baseURL      string
	http         *http.Client
	mockFallback bool
	mock         *Mock
}

func NewClient(cfg config.OptimizerConfig) *Client {
	seed := uint64(time.Now().UnixNano())
	return &Client{
		baseURL:      cfg.BaseURL,
		http:         &http.Client{Timeout: cfg.Timeout},
		mockFallback: cfg.MockFallback,
		mock:         NewMock(rand.NewPCG(seed, seed>>1)),
	}
}

// WithMock replaces the mock generator, mostly so tests can seed it.
func (c *Client) WithMock(m *Mock) *Client {
	c.mock = m
	return c
}

func (c *Client) MockFallback() bool { return c.mockFallback }

func (c *Client) Mock() *Mock { return c.mock }

// Optimize asks the optimizer for new timings. The request is validated
// before anything is sent.
func (c *Client) Optimize(ctx context.Context, req models.OptimizationRequest) (*models.OptimizationResult, error) {
	if req.Condition == "" {
		req.Condition = models.ConditionRed
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := marshalJSON(req)
	if err != nil {
		return nil, err
	}
	status, resp, err := c.post(ctx, PathOptimize, "application/json", body)
	if err != nil {
		if c.mockFallback && errors.Is(err, ErrUnavailable) {
			log.Printf("optimizer unreachable endpoint=%s, serving mock timings", PathOptimize)
			mockFallbacks.WithLabelValues(PathOptimize).Inc()
			return c.mock.Timings(req), nil
		}
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &RemoteError{StatusCode: status, Body: resp}
	}

	result, err := decodeResult(resp, req.Topology.ChannelCount())
	if err != nil {
		malformedResponses.WithLabelValues(PathOptimize).Inc()
		return nil, err
	}
	result.Source = models.SourceOptimizer
	return result, nil
}

// Predict asks the optimizer for a forecast dataset for the request's
// intersection. The answer may be CSV or JSON rows.
func (c *Client) Predict(ctx context.Context, req models.OptimizationRequest) (*RecordSet, error) {
	if req.Condition == "" {
		req.Condition = models.ConditionRed
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := marshalJSON(req)
	if err != nil {
		return nil, err
	}
	status, resp, err := c.post(ctx, PathPredict, "application/json", body)
	if err != nil {
		if c.mockFallback && errors.Is(err, ErrUnavailable) {
			log.Printf("optimizer unreachable endpoint=%s, serving mock sample", PathPredict)
			mockFallbacks.WithLabelValues(PathPredict).Inc()
			return c.mockSet(req.Topology), nil
		}
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &RemoteError{StatusCode: status, Body: resp}
	}

	records, err := decodeDataset(resp, req.Topology)
	if err != nil {
		malformedResponses.WithLabelValues(PathPredict).Inc()
		return nil, err
	}
	return &RecordSet{Records: records, Topology: req.Topology, Source: models.SourceOptimizer}, nil
}

// Forward posts a raw JSON payload to path and hands back the status and body
// untouched. A refused connection is reported as ErrUnavailable; the caller
// decides whether to mock.
func (c *Client) Forward(ctx context.Context, path string, payload []byte) (int, []byte, error) {
	return c.post(ctx, path, "application/json", payload)
}

func (c *Client) mockSet(topology models.Topology) *RecordSet {
	return &RecordSet{Records: c.mock.Sample(topology), Topology: topology, Source: models.SourceMock}
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) (int, []byte, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build optimizer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json, text/csv")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			requests.WithLabelValues(path, outcomeUnavailable).Inc()
			return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		requests.WithLabelValues(path, outcomeTransport).Inc()
		return 0, nil, fmt.Errorf("call optimizer %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		requests.WithLabelValues(path, outcomeTransport).Inc()
		return 0, nil, fmt.Errorf("read optimizer response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		requests.WithLabelValues(path, outcomeRemoteError).Inc()
	} else {
		requests.WithLabelValues(path, outcomeOK).Inc()
	}
	return resp.StatusCode, data, nil
}
