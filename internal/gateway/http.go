package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gravitas-games/farmsync/internal/config"
	"github.com/gravitas-games/farmsync/pkg/models"
)

// maxResponseBytes bounds how much of a response body is read. Bodies
// only ever carry record lists, assigned ids or short error phrases.
const maxResponseBytes = 1 << 20

// TokenSource supplies the bearer token attached to every request.
// Satisfied by *session.Provider.
type TokenSource interface {
	Token() string
}

// HTTPGateway talks JSON over HTTP to the remote inventory service.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// NewHTTP creates a gateway for the configured service endpoint.
func NewHTTP(cfg config.GatewayConfig, tokens TokenSource) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
		tokens: tokens,
	}
}

// FetchAll retrieves every record owned by the user.
func (g *HTTPGateway) FetchAll(ctx context.Context, ownerID string) ([]models.Record, Result) {
	endpoint := fmt.Sprintf("%s/records?owner=%s", g.baseURL, url.QueryEscape(ownerID))
	status, body, err := g.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, TransportFailure(err)
	}
	if status != http.StatusOK {
		return nil, Reject(status, body)
	}
	var list models.RecordList
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		return nil, MalformedFailure(fmt.Errorf("failed to decode record list: %w", err))
	}
	return list.Records, Ok(status)
}

// Create inserts a new record and returns its assigned id.
func (g *HTTPGateway) Create(ctx context.Context, req models.CreateRequest) (string, Result) {
	endpoint := g.baseURL + "/records"
	status, body, err := g.do(ctx, http.MethodPost, endpoint, req)
	if err != nil {
		return "", TransportFailure(err)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", Reject(status, body)
	}
	var resp models.CreateResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", MalformedFailure(fmt.Errorf("failed to decode create response: %w", err))
	}
	return resp.ID, Ok(status)
}

// Update rewrites the full state of an existing record.
func (g *HTTPGateway) Update(ctx context.Context, recordID string, req models.UpdateRequest) Result {
	endpoint := g.baseURL + "/records/" + url.PathEscape(recordID)
	status, body, err := g.do(ctx, http.MethodPut, endpoint, req)
	if err != nil {
		return TransportFailure(err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return Reject(status, body)
	}
	return Ok(status)
}

// Delete removes a record.
func (g *HTTPGateway) Delete(ctx context.Context, recordID string) Result {
	endpoint := g.baseURL + "/records/" + url.PathEscape(recordID)
	status, body, err := g.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return TransportFailure(err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return Reject(status, body)
	}
	return Ok(status)
}

// do issues one request and returns the status plus the raw body.
// A returned error means the request never produced an HTTP response.
func (g *HTTPGateway) do(ctx context.Context, method, endpoint string, payload interface{}) (int, string, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, "", fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.tokens != nil {
		if token := g.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, "", fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, string(body), nil
}
