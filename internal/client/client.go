// Package client talks to a bingo server: the HTTP API for session state and
// the real-time channel for bingo announcements.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/usecase"
)

const defaultTimeout = 10 * time.Second

// SaveSessionRequest creates a session, or updates it when SessionID is known to the server.
type SaveSessionRequest struct {
	SessionID string   `json:"sessionId,omitempty"`
	Name      *string  `json:"name,omitempty"`
	Size      *int     `json:"size,omitempty"`
	Items     []string `json:"items,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client calls the session HTTP API. Failures are returned as-is; nothing is retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (that *Client) GetSession(ctx context.Context, sessionID string) (*usecase.SessionView, error) {
	return that.do(ctx, http.MethodGet, "/api/session", sessionID, nil)
}

func (that *Client) SaveSession(ctx context.Context, req SaveSessionRequest) (*usecase.SessionView, error) {
	return that.do(ctx, http.MethodPost, "/api/session", "", req)
}

func (that *Client) ToggleMark(ctx context.Context, sessionID string, index int) (*usecase.SessionView, error) {
	return that.do(ctx, http.MethodPost, "/api/mark", sessionID, map[string]int{"index": index})
}

func (that *Client) ResetMarks(ctx context.Context, sessionID string) (*usecase.SessionView, error) {
	return that.do(ctx, http.MethodPost, "/api/reset-marks", sessionID, nil)
}

func (that *Client) ResetSession(ctx context.Context, sessionID string) (*usecase.SessionView, error) {
	return that.do(ctx, http.MethodPost, "/api/reset-session", sessionID, nil)
}

func (that *Client) do(ctx context.Context, method, path, sessionID string, body any) (*usecase.SessionView, error) {
	target := that.baseURL + path
	if sessionID != "" {
		target += "?" + url.Values{"sessionId": {sessionID}}.Encode()
	}

	var reader io.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := that.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrTransportFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp)
	}

	var view usecase.SessionView
	if err = json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", apperror.ErrTransportFailure, err)
	}

	if view.Session == nil {
		return nil, fmt.Errorf("%w: empty session in response", apperror.ErrTransportFailure)
	}

	return &view, nil
}

func decodeError(resp *http.Response) error {
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		body.Error = resp.Status
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusNotFound:
		sentinel = apperror.ErrNotFound
	case http.StatusBadRequest:
		sentinel = apperror.ErrInvalidConfig
		if strings.Contains(body.Error, apperror.ErrOutOfRange.Error()) {
			sentinel = apperror.ErrOutOfRange
		}
	default:
		sentinel = apperror.ErrTransportFailure
	}

	return fmt.Errorf("%w: %s", sentinel, body.Error)
}

// IsTransportFailure reports whether err came from the network rather than the server's answer.
func IsTransportFailure(err error) bool {
	return errors.Is(err, apperror.ErrTransportFailure)
}
