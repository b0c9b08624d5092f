package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ha1tch/fsm-canvas/pkg/graph"
)

// DefaultMessage is reported when a failed response carries no message.
const DefaultMessage = "Something went wrong"

// maxResponse bounds how much of a response body is read.
const maxResponse = 1 << 20

// ServiceError is a non-2xx answer from the simulation service.
type ServiceError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// errorBody is the payload of a failed request.
type errorBody struct {
	Err *string `json:"Err"`
}

// Client posts machines to a simulation service. A Client makes a single
// attempt per call and never retries.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// SimulateGraph prepares g and simulates tape on it.
func (c *Client) SimulateGraph(ctx context.Context, g graph.Graph, tape string) (SimulationResponse, error) {
	return c.Simulate(ctx, PrepareMachine(g), tape)
}

// Simulate runs tape on m.
func (c *Client) Simulate(ctx context.Context, m PreppedMachine, tape string) (SimulationResponse, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return SimulationResponse{}, fmt.Errorf("encode machine: %w", err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/simulate?tape=" + url.QueryEscape(tape)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return SimulationResponse{}, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	log := c.logger().With("request_id", requestID)
	log.Debug("simulate", "url", endpoint, "states", len(m.States), "transitions", len(m.Transitions))

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		log.Warn("simulate request failed", "error", err)
		return SimulationResponse{}, fmt.Errorf("simulate: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return SimulationResponse{}, fmt.Errorf("read simulation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := DefaultMessage
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Err != nil {
			msg = *eb.Err
		}
		log.Warn("simulate rejected", "status", resp.StatusCode, "message", msg)
		return SimulationResponse{}, &ServiceError{Status: resp.StatusCode, Message: msg, RequestID: requestID}
	}

	var out SimulationResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return SimulationResponse{}, fmt.Errorf("decode simulation response: %w", err)
	}
	log.Debug("simulated", "accepted", out.Accepted, "path", len(out.Path))
	return out, nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}
