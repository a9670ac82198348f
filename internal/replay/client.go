package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// client wraps http.Client with the service base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends a request and returns the status code and the body.
func (c *client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: marshal body: %w", ErrRequest, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read body: %w", ErrRequest, err)
	}
	return resp.StatusCode, data, nil
}

// getJSON decodes a 200 response into v.
func (c *client) getJSON(ctx context.Context, path string, v any) error {
	status, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: GET %s: status %d", ErrRequest, path, status)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrRequest, path, err)
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

func (c *client) reset(ctx context.Context) error {
	status, data, err := c.do(ctx, http.MethodPost, "/reset", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: POST /reset: status %d: %s", ErrRequest, status, data)
	}
	return nil
}

// errorReply mirrors the API error body.
type errorReply struct {
	Code       string `json:"code"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

type ackReply struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// sell posts one scripted sale and classifies the reply.
func (c *client) sell(ctx context.Context, s Sale) Result {
	res := Result{Sale: s, Outcome: OutcomeFailed}
	status, data, err := c.do(ctx, http.MethodPost, "/sales", s)
	res.Status = status
	if err != nil {
		res.Message = err.Error()
		return res
	}

	switch status {
	case http.StatusCreated:
		res.Outcome = OutcomeAccepted
	case http.StatusOK:
		var ack ackReply
		if err := json.Unmarshal(data, &ack); err == nil && ack.Duplicate {
			res.Outcome = OutcomeDuplicate
		}
	case http.StatusUnprocessableEntity, http.StatusNotFound:
		var e errorReply
		if err := json.Unmarshal(data, &e); err == nil {
			res.Constraint = e.Constraint
			res.Message = e.Message
		}
		res.Outcome = OutcomeRejected
	default:
		var e errorReply
		if err := json.Unmarshal(data, &e); err == nil {
			res.Message = e.Message
		}
	}
	return res
}

func (c *client) bids(ctx context.Context, team string) (bidTable, error) {
	var t bidTable
	err := c.getJSON(ctx, "/teams/"+url.PathEscape(team)+"/bids", &t)
	return t, err
}

func (c *client) state(ctx context.Context) (stateView, error) {
	var s stateView
	err := c.getJSON(ctx, "/state", &s)
	return s, err
}
