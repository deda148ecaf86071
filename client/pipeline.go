package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds every request end to end
	DefaultTimeout = 5 * time.Second

	codeSuccess  = 0
	maxBodyBytes = 1 << 20
)

// CredentialSource supplies the bearer token for outgoing calls and is told
// when the server rejected it
type CredentialSource interface {
	Token() string
	Invalidate()
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures the pipeline and the session store built on it
type Option func(*options)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.timeout}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Pipeline sends JSON requests to the auth server. It attaches the current
// credential, unwraps the response envelope and turns every failure into
// an *Error.
type Pipeline struct {
	baseURL string
	http    *http.Client
	source  CredentialSource
	logger  *slog.Logger
}

// NewPipeline creates a pipeline for baseURL. source may be nil for
// unauthenticated use.
func NewPipeline(baseURL string, source CredentialSource, opts ...Option) *Pipeline {
	o := buildOptions(opts)
	return &Pipeline{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    o.httpClient,
		source:  source,
		logger:  o.logger,
	}
}

// Do performs one call. body is JSON encoded when non-nil; the envelope's
// data is decoded into out when out is non-nil.
func (p *Pipeline) Do(ctx context.Context, method, path string, body, out any) error {
	req, err := p.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		p.logger.DebugContext(ctx, "request failed", slog.String("path", path), slog.Any("error", err))
		return &Error{Kind: KindTransient, Message: msgNetwork}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindTransient, Status: resp.StatusCode, Message: msgNetwork}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return p.statusError(ctx, resp.StatusCode, env, decodeErr == nil)
	}

	if decodeErr != nil {
		return &Error{Kind: KindTransient, Status: resp.StatusCode, Message: msgServer}
	}
	if env.Code != codeSuccess {
		return &Error{Kind: KindBusiness, Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Kind: KindTransient, Status: resp.StatusCode, Message: msgServer}
		}
	}
	return nil
}

func (p *Pipeline) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	req.Header.Set("Accept", "application/json")

	if p.source != nil {
		if token := p.source.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, nil
}

func (p *Pipeline) statusError(ctx context.Context, status int, env envelope, hasEnvelope bool) error {
	carried := func(fallback string) string {
		if hasEnvelope && env.Message != "" {
			return env.Message
		}
		return fallback
	}

	switch {
	case status == http.StatusUnauthorized:
		if p.source != nil {
			p.source.Invalidate()
		}
		p.logger.InfoContext(ctx, "session invalidated by server")
		return &Error{Kind: KindSessionExpired, Status: status, Code: env.Code, Message: msgSessionExpired}
	case status == http.StatusForbidden:
		return &Error{Kind: KindForbidden, Status: status, Code: env.Code, Message: carried(msgForbidden)}
	case status >= http.StatusInternalServerError:
		return &Error{Kind: KindTransient, Status: status, Message: msgServer}
	default:
		return &Error{Kind: KindBusiness, Status: status, Code: env.Code, Message: carried(http.StatusText(status))}
	}
}
