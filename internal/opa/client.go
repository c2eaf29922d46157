package opa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultURL     = "http://localhost:8181/v1/data/ethical_gates"
	DefaultTimeout = 10 * time.Second
)

// Client evaluates the policy on a remote OPA server through its data API.
type Client struct {
	httpClient *http.Client
	url        string
}

var _ Gatekeeper = (*Client)(nil)

func NewClient(opaURL string, timeout time.Duration) *Client {
	if opaURL == "" {
		opaURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        opaURL,
	}
}

type dataRequest struct {
	Input map[string]any `json:"input"`
}

type dataResponse struct {
	Result map[string]any `json:"result"`
}

// Evaluate never fails because the server cannot be reached; it returns the unavailable
// decision instead. A server that answers with an error status is an error.
func (c *Client) Evaluate(ctx context.Context, payload map[string]any) (*Decision, error) {
	logger := zap.S().Named("opa_client")

	body, err := json.Marshal(dataRequest{Input: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OPA input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create OPA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isUnavailable(err) {
			logger.Warnf("OPA server unreachable at %s, returning default deny: %v", c.url, err)
			return unavailableDecision(), nil
		}
		return nil, fmt.Errorf("failed to call OPA: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("OPA returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode OPA response: %w", err)
	}

	decision, err := decisionFromResult(out.Result)
	if err != nil {
		return nil, fmt.Errorf("invalid OPA result: %w", err)
	}

	logger.Debugw("OPA decision", "allow", decision.Allow, "deny_reasons", decision.DenyReasons)
	return decision, nil
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
