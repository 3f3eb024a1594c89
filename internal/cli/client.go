// Package cli is the HTTP client side of the coin command. It speaks
// the command endpoint and keeps a small local session file for the
// default account id.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coinmint/internal/engine"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a structured failure from the command endpoint.
type APIError struct {
	Status  int
	Kind    engine.Kind
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("api status %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Execute posts one command and returns the decoded result. A non-OK
// result becomes an *APIError carrying the engine's error taxonomy.
func (c *Client) Execute(ctx context.Context, cmd engine.Command) (engine.Result, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return engine.Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/commands", bytes.NewReader(body))
	if err != nil {
		return engine.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return engine.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return engine.Result{}, err
	}
	var out engine.Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return engine.Result{}, fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if !out.OK {
		return out, &APIError{
			Status:  resp.StatusCode,
			Kind:    out.ErrKind,
			Message: out.Error,
			Details: out.Details,
		}
	}
	return out, nil
}

// DecodeData re-decodes a result's Data payload into a concrete view.
func DecodeData(res engine.Result, out any) error {
	raw, err := json.Marshal(res.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
