package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stackie-hr/stackie-server/internal/domain"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPClient talks to a GoTrue-style identity provider over REST. It keeps
// the current session in memory and notifies subscribers on every auth state
// change. Safe for concurrent use.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger

	mu      sync.Mutex
	session *domain.Session

	subs subscribers
}

// HTTPClientOption customizes an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPTimeout overrides the default request timeout.
func WithHTTPTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithTransport overrides the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) HTTPClientOption {
	return func(c *HTTPClient) {
		c.http.Transport = rt
	}
}

// NewHTTPClient creates a provider client for the given base URL and API key.
func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger, opts ...HTTPClientOption) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured reports whether the client has a URL and key to work with.
func (c *HTTPClient) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// GetSession returns the current session. An expired session with a refresh
// token is refreshed transparently; a refreshed session emits
// EventTokenRefreshed.
func (c *HTTPClient) GetSession(ctx context.Context) (*domain.Session, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		return nil, ErrNoSession
	}
	if !sess.Expired() {
		copied := *sess
		return &copied, nil
	}
	if sess.RefreshToken == "" {
		return nil, ErrNoSession
	}

	refreshed, err := c.refresh(ctx, sess.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	c.mu.Lock()
	c.session = refreshed
	c.mu.Unlock()

	copied := *refreshed
	c.subs.emit(Event{Type: EventTokenRefreshed, Session: &copied})
	return &copied, nil
}

// SignInWithPassword performs a password grant against the token endpoint.
func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	body := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}

	sess := resp.toSession()

	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	copied := *sess
	c.subs.emit(Event{Type: EventSignedIn, Session: &copied})
	return &copied, nil
}

// SignUp registers a new identity. A known email yields ErrUserAlreadyExists.
func (c *HTTPClient) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	body := map[string]string{"email": email, "password": password}
	var resp struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := c.post(ctx, "/auth/v1/signup", "", body, &resp); err != nil {
		return nil, err
	}
	return &domain.User{ID: resp.ID, Email: resp.Email}, nil
}

// SignOut revokes the current session. The in-memory session is cleared and
// EventSignedOut is emitted even if the revocation round trip fails; the
// provider-side token simply ages out in that case.
func (c *HTTPClient) SignOut(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	if sess == nil {
		return nil
	}

	err := c.post(ctx, "/auth/v1/logout", sess.AccessToken, nil, nil)
	if err != nil {
		c.logger.Warn("sign-out revocation failed, session cleared locally", "error", err)
	}
	c.subs.emit(Event{Type: EventSignedOut})
	return nil
}

// OnAuthStateChange registers a callback for subsequent auth events.
func (c *HTTPClient) OnAuthStateChange(fn Callback) Unsubscribe {
	return c.subs.add(fn)
}

func (c *HTTPClient) refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.toSession(), nil
}

// post issues one JSON request to the provider. bearer overrides the api key
// in the Authorization header when set. out may be nil for empty responses.
func (c *HTTPClient) post(ctx context.Context, path, bearer string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close identity response body", "error", closeErr)
		}
	}()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}

// decodeError maps provider error bodies onto the package's named errors.
func (c *HTTPClient) decodeError(resp *http.Response) error {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)

	msg := body.Msg
	if msg == "" {
		msg = body.Message
	}
	if msg == "" {
		msg = body.ErrorDescription
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "already registered"):
		return ErrUserAlreadyExists
	case strings.Contains(lower, "invalid login credentials"):
		return ErrInvalidCredentials
	}
	if msg == "" {
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("identity provider returned status %d: %s", resp.StatusCode, msg)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (r *tokenResponse) toSession() *domain.Session {
	sess := &domain.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		User:         domain.User{ID: r.User.ID, Email: r.User.Email},
	}
	if r.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return sess
}

var _ Client = (*HTTPClient)(nil)
