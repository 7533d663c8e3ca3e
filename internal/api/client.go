// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP gateway to the verniz back and agent
// services.
//
// The gateway is a stateless mediator: it attaches the bearer token,
// serializes requests, and normalizes every failure into one
// error-with-message shape so callers never branch on HTTP status codes.
// A 401 additionally triggers the configured session-expired handler.
//
// API: Secure logging, retry logic, and response size limits
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/verniz/verniz-tui/internal/model"
)

// Configuration constants for the verniz APIs.
const (
	// DefaultBackURL is the base URL for the account service.
	DefaultBackURL = "http://localhost:8000"

	// DefaultAgentURL is the base URL for the chat agent service.
	DefaultAgentURL = "http://localhost:8001"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	userAgent = "verniz-tui/0.1.0"
)

// Sentinel errors for the normalized failure taxonomy. Callers branch with
// errors.Is; the user-presentable text comes from UserMessage.
var (
	// ErrSessionExpired indicates a 401: credentials were purged and the
	// caller must re-authenticate.
	ErrSessionExpired = errors.New("session expired")

	// ErrAccessDenied indicates a 403.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound indicates a 404.
	ErrNotFound = errors.New("resource not found")

	// ErrServer indicates a 500.
	ErrServer = errors.New("internal server error")

	// ErrRequestFailed indicates any other rejected request, including
	// requests that could not be constructed.
	ErrRequestFailed = errors.New("request failed")

	// ErrConnection indicates a transport failure: no response arrived.
	ErrConnection = errors.New("connection error")
)

// userMessages maps each sentinel to its display text.
var userMessages = map[error]string{
	ErrSessionExpired: "Session expired. Please log in again.",
	ErrAccessDenied:   "Access denied.",
	ErrNotFound:       "Resource not found.",
	ErrServer:         "Internal server error. Try again.",
	ErrRequestFailed:  "Failed to process request.",
	ErrConnection:     "Connection error. Check your network.",
}

// UserMessage returns the display text for a normalized gateway error.
// A server-provided detail message takes precedence where the taxonomy
// allows it; unknown errors fall back to the generic request failure text.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return userMessages[ErrRequestFailed]
}

// APIError represents a rejected request. It wraps the taxonomy sentinel for
// its status class and optionally carries the server's detail message.
type APIError struct {
	Status int
	Detail string
	Kind   error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Kind)
}

// Unwrap exposes the taxonomy sentinel to errors.Is.
func (e *APIError) Unwrap() error {
	return e.Kind
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// loginResponse is the account service's successful login payload.
type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// chatRequest is the agent service's chat payload. ConversationID is omitted
// on the first turn of a conversation.
type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the agent service's reply to a chat request. The returned
// conversation id always overwrites the client's.
type ChatResponse struct {
	Response       string   `json:"response"`
	ConversationID string   `json:"conversation_id"`
	Reasoning      string   `json:"reasoning,omitempty"`
	ToolsUsed      []string `json:"tools_used,omitempty"`
}

// errorResponse is the shape of a rejected request's body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// =============================================================================
// CLIENT
// =============================================================================

// TokenProvider supplies the current bearer token, or "" when there is none.
type TokenProvider func() string

// Client mediates between the TUI and the two verniz services. It holds no
// session state of its own; the token comes from the provider on every
// request.
type Client struct {
	backURL    string
	agentURL   string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter

	tokenProvider TokenProvider

	// onSessionExpired runs once per 401 response, before the error is
	// returned. The session store registers its purge here.
	onSessionExpired func()
}

// NewClient creates a gateway client for the given service base URLs.
// Trailing slashes are trimmed so path joining stays uniform.
func NewClient(backURL, agentURL string) *Client {
	return &Client{
		backURL:  strings.TrimSuffix(backURL, "/"),
		agentURL: strings.TrimSuffix(agentURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		maxRetries: DefaultMaxRetries,
		// Interactive client; a small burst covers login + first send.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithMaxRetries sets the maximum number of attempts. Values below one are
// clamped so every request is sent at least once.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c.maxRetries = maxRetries
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// WithTokenProvider sets the bearer token source.
func (c *Client) WithTokenProvider(provider TokenProvider) *Client {
	c.tokenProvider = provider
	return c
}

// WithSessionExpiredHandler sets the callback invoked on 401 responses.
func (c *Client) WithSessionExpiredHandler(handler func()) *Client {
	c.onSessionExpired = handler
	return c
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Login authenticates against the account service and returns the session.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.Session, error) {
	body, err := c.do(ctx, http.MethodPost, c.backURL+"/api/v1/account/login", creds)
	if err != nil {
		return model.Session{}, err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Session{}, fmt.Errorf("%w: malformed login response", ErrRequestFailed)
	}
	return model.Session{User: resp.User, Token: resp.Token}, nil
}

// Logout invalidates the session on the account service. Callers treat
// failures as non-fatal; local credentials are cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, c.backURL+"/api/v1/account/logout", nil)
	return err
}

// SendChat relays one user message to the agent service. conversationID is
// "" on the first turn; the response always carries the id to use next.
func (c *Client) SendChat(ctx context.Context, message, conversationID string) (*ChatResponse, error) {
	body, err := c.do(ctx, http.MethodPost, c.agentURL+"/api/v1/chat", chatRequest{
		Message:        message,
		ConversationID: conversationID,
	})
	if err != nil {
		return nil, err
	}

	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed chat response", ErrRequestFailed)
	}
	return &resp, nil
}

// =============================================================================
// REQUEST EXECUTION
// =============================================================================

// do builds, sends and normalizes one API request, retrying transient
// failures with exponential backoff. It returns the raw success body.
func (c *Client) do(ctx context.Context, method, requestURL string, payload any) ([]byte, error) {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal request: %v", ErrRequestFailed, err)
		}
	}

	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrConnection, ctx.Err())
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnection, err)
		}

		body, err := c.doRequest(ctx, method, requestURL, bodyBytes)
		if err == nil {
			return body, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// doRequest performs a single HTTP request and normalizes the outcome.
// SECURITY: logs method, path, status and duration only; never headers or
// bodies.
func (c *Client) doRequest(ctx context.Context, method, requestURL string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequestFailed, err)
	}
	c.setHeaders(req)

	log.Printf("API Request: %s %s", req.Method, req.URL.Path)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	// Clear the Authorization header immediately after the request so it
	// can never reach a log line.
	req.Header.Del("Authorization")

	if err != nil {
		log.Printf("API Failure: %s %s (%v): transport error", method, req.URL.Path, duration)
		// Double-wrap so errors.Is still sees context cancellation.
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer resp.Body.Close()

	log.Printf("API Response: %d (%v)", resp.StatusCode, duration)

	respBody, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// setHeaders sets the required headers, including the bearer token when the
// provider has one and a correlation id for tracing.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.tokenProvider != nil {
		if token := c.tokenProvider(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// readResponse reads the body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrConnection, err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeded %d bytes", ErrRequestFailed, MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse maps a rejected request onto the failure taxonomy.
// A 401 purges the session via the registered handler before returning.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var detail string
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		detail = errResp.Detail
	}

	switch statusCode {
	case http.StatusUnauthorized:
		if c.onSessionExpired != nil {
			c.onSessionExpired()
		}
		// The session-expired message always wins over server detail.
		return &APIError{Status: statusCode, Kind: ErrSessionExpired}
	case http.StatusForbidden:
		return &APIError{Status: statusCode, Detail: detail, Kind: ErrAccessDenied}
	case http.StatusNotFound:
		return &APIError{Status: statusCode, Kind: ErrNotFound}
	case http.StatusInternalServerError:
		return &APIError{Status: statusCode, Kind: ErrServer}
	default:
		return &APIError{Status: statusCode, Detail: detail, Kind: ErrRequestFailed}
	}
}

// isRetryable reports whether a normalized error should trigger a retry.
// Only 5xx responses and transport failures are transient; taxonomy errors
// that reflect the request itself are not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	return errors.Is(err, ErrConnection)
}

// calculateBackoff returns the delay before the next retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
