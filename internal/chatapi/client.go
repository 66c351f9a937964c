// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// ClientConfig holds connection settings for the backend.
type ClientConfig struct {
	// BaseURL is the backend root, e.g. "http://127.0.0.1:5000".
	BaseURL string

	// Timeout bounds non-streaming requests. Zero means DefaultTimeout.
	Timeout time.Duration

	// StreamTimeout bounds an entire streaming exchange. Zero means no
	// deadline: replies may legitimately stream for a long time.
	StreamTimeout time.Duration
}

const (
	// DefaultBaseURL is the address the backend binds by default.
	DefaultBaseURL = "http://127.0.0.1:5000"

	// DefaultTimeout applies to non-streaming requests.
	DefaultTimeout = 30 * time.Second
)

// DefaultConfig returns the default client configuration. The backend URL can
// be overridden with the VIKICHAT_SERVER_URL environment variable.
func DefaultConfig() ClientConfig {
	baseURL := DefaultBaseURL
	if env := os.Getenv("VIKICHAT_SERVER_URL"); env != "" {
		baseURL = env
	}
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: DefaultTimeout,
	}
}

// normalize fills zero values with defaults and trims the URL.
func (c *ClientConfig) normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Vikipedi chatbot backend over HTTP. It is safe for
// concurrent use; serialization of chat requests is the caller's concern.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	// streamClient has no global timeout: streams are bounded per-request
	// via context, not per-connection.
	streamClient *http.Client
}

// NewClient creates a backend client with the given configuration.
func NewClient(config ClientConfig) *Client {
	config.normalize()
	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
	}
}

// BaseURL returns the backend root URL the client targets.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream sends a message and invokes the callback for every decoded
// stream event, in arrival order. It returns once the stream terminates:
// nil after an end event or EOF, a stream-typed error after an error frame,
// and a connection/timeout-typed error on transport failure.
func (c *Client) ChatStream(ctx context.Context, chatID, message string, callback func(Event)) error {
	if strings.TrimSpace(message) == "" {
		return NewClientError(ErrTypeInvalidInput, "message is empty", ErrEmptyMessage)
	}

	if c.config.StreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.StreamTimeout)
		defer cancel()
	}

	body, err := json.Marshal(ChatRequest{Message: message, ChatID: chatID})
	if err != nil {
		return NewClientError(ErrTypeInvalidInput, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return NewClientError(ErrTypeInvalidInput, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return c.wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}

	var streamErr error
	reader := NewStreamReader(resp.Body)
	processErr := reader.Process(ctx, func(ev Event) {
		if ev.Type == EventError {
			streamErr = NewClientError(ErrTypeStream, ev.Error, nil)
		}
		callback(ev)
	})

	slog.Debug("chat stream finished",
		"chat_id", chatID,
		"content_len", len(reader.Accumulated()),
		"duration", time.Since(start),
	)

	if processErr != nil {
		return c.wrapTransportError(processErr)
	}
	return streamErr
}

// StreamEvent pairs an event with the transport error that ended the stream,
// for channel consumers.
type StreamEvent struct {
	Event Event
	Err   error
}

// ChatStreamChan is a channel-based wrapper around ChatStream for callers that
// select on events rather than block in a callback. The channel closes when
// the stream terminates; a final entry carries any terminal error.
func (c *Client) ChatStreamChan(ctx context.Context, chatID, message string) <-chan StreamEvent {
	ch := make(chan StreamEvent, 16)
	go func() {
		defer close(ch)
		err := c.ChatStream(ctx, chatID, message, func(ev Event) {
			select {
			case ch <- StreamEvent{Event: ev}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			select {
			case ch <- StreamEvent{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

// =============================================================================
// NON-STREAMING ENDPOINTS
// =============================================================================

// DeleteChat tells the backend to discard its per-chat context for chatID.
// The backend treats an unknown id as success, so this is safe to call for
// chats the backend never saw.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.postStatus(ctx, "/delete_chat", ChatRef{ChatID: chatID})
}

// Reset clears the backend conversation context for chatID without deleting
// it. Local messages are unaffected.
func (c *Client) Reset(ctx context.Context, chatID string) error {
	return c.postStatus(ctx, "/reset", ChatRef{ChatID: chatID})
}

// Health checks whether the backend is reachable and answering.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return NewClientError(ErrTypeInvalidInput, "failed to build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.wrapTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return nil
}

// postStatus sends a JSON body and decodes the status response.
func (c *Client) postStatus(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return NewClientError(ErrTypeInvalidInput, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return NewClientError(ErrTypeInvalidInput, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return NewClientError(ErrTypeServer, "failed to decode response", err)
	}
	if status.Error != "" {
		return NewClientError(ErrTypeServer, status.Error, nil)
	}
	return nil
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// wrapTransportError maps low-level transport failures to categorized errors.
func (c *Client) wrapTransportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return NewClientError(ErrTypeCancelled, "request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewClientError(ErrTypeTimeout, "request timed out", ErrTimeout)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewClientError(ErrTypeTimeout, "request timed out", ErrTimeout)
	}

	return NewClientError(ErrTypeConnection,
		fmt.Sprintf("cannot reach backend at %s", c.config.BaseURL), err)
}

// statusError builds a server-typed error from a non-2xx response, draining a
// bounded amount of the body for the message.
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(body))
	var status StatusResponse
	if json.Unmarshal(body, &status) == nil && status.Error != "" {
		msg = status.Error
	}
	if msg == "" {
		msg = resp.Status
	}
	return NewClientError(ErrTypeServer,
		fmt.Sprintf("backend returned %d: %s", resp.StatusCode, msg), nil)
}
