package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

// MessagesPath is the backend route that accepts agent envelopes.
const MessagesPath = "/api/agent/messages"

// HTTPOptions configure an HTTPRequester.
type HTTPOptions struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Client   *http.Client
}

// HTTPRequester sends envelopes to the backend over HTTP. When credentials
// are configured it logs in on first use and again after a 401.
type HTTPRequester struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	logger   *logger.Logger

	mu    sync.RWMutex
	token string
}

// NewHTTPRequester creates a new backend requester
func NewHTTPRequester(logger *logger.Logger, opts HTTPOptions) *HTTPRequester {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPRequester{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		username: opts.Username,
		password: opts.Password,
		client:   client,
		logger:   logger,
	}
}

// Token returns the current bearer token, empty before login.
func (r *HTTPRequester) Token() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token
}

// AuthHeader returns headers carrying the bearer token, for the push stream.
func (r *HTTPRequester) AuthHeader() http.Header {
	h := http.Header{}
	if token := r.Token(); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func (r *HTTPRequester) hasCredentials() bool {
	return r.username != "" && r.password != ""
}

// Login exchanges the configured credentials for a bearer token.
func (r *HTTPRequester) Login(ctx context.Context) error {
	if !r.hasCredentials() {
		return fmt.Errorf("%w: backend credentials not configured", ErrChannel)
	}
	var resp LoginResponse
	if err := r.send(ctx, ActionLogin, LoginRequest{Username: r.username, Password: r.password}, &resp, false); err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("%w: login returned no access token", ErrChannel)
	}

	r.mu.Lock()
	r.token = resp.AccessToken
	r.mu.Unlock()

	r.logger.Info("Logged in to backend", "username", r.username)
	return nil
}

// Request sends one action and decodes the response into out, which may be nil.
func (r *HTTPRequester) Request(ctx context.Context, action Action, payload, out interface{}) error {
	if action == ActionLogin {
		return r.Login(ctx)
	}
	if r.hasCredentials() && r.Token() == "" {
		if err := r.Login(ctx); err != nil {
			return err
		}
	}

	err := r.send(ctx, action, payload, out, true)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusUnauthorized && r.hasCredentials() {
		r.logger.Warn("Backend rejected token, logging in again", "action", action)
		if err := r.Login(ctx); err != nil {
			return err
		}
		return r.send(ctx, action, payload, out, true)
	}
	return err
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.code, e.body)
}

func (r *HTTPRequester) send(ctx context.Context, action Action, payload, out interface{}, auth bool) error {
	env, err := NewEnvelope(action, payload)
	if err != nil {
		return err
	}
	body, err := Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+MessagesPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", env.ID)
	if auth {
		if token := r.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrChannel, err)
	}

	r.logger.Debug("Backend request",
		"action", action,
		"request_id", env.ID,
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %w", ErrReceiverMissing, &statusError{code: resp.StatusCode, body: truncate(data)})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %w", ErrChannel, &statusError{code: resp.StatusCode, body: truncate(data)})
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: malformed %s response: %v", ErrChannel, action, err)
	}
	return nil
}

// transportError separates "nobody is listening" from other network failures.
func transportError(err error) error {
	var opErr *net.OpError
	if errors.Is(err, syscall.ECONNREFUSED) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return fmt.Errorf("%w: %w", ErrReceiverMissing, err)
	}
	return fmt.Errorf("%w: %w", ErrChannel, err)
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
