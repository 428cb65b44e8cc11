// Package httpclient issues REST calls against the booking backend with a
// fixed header set and carries the caller's session cookie both ways.
package httpclient

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

	"github.com/Domenick1991/fieldbooking/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxBodySize  = 4 << 20
	userAgent    = "fieldbooking-client/1.0"
	headerReqID  = "X-Request-ID"
	errorSnippet = 256
)

type Config struct {
	// BaseURL of the REST API, e.g. "https://api.example.com/api".
	BaseURL string
	// HTTPClient is used for all requests. If nil, a client with Timeout is built.
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zerolog.Logger
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("httpclient: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("httpclient: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		log:        log.With().Str("component", "httpclient").Logger(),
	}, nil
}

// Request describes one call. Body is JSON encoded when non-nil.
// NoCache adds Cache-Control/Pragma headers so intermediaries do not serve stale reads.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	NoCache bool
}

// Do performs req and returns the raw 2xx body. Failures are *TransportError,
// *AuthError (401) or *StatusError.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	requestURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		requestURL += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(headerReqID, requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.NoCache {
		httpReq.Header.Set("Cache-Control", "no-cache")
		httpReq.Header.Set("Pragma", "no-cache")
	}

	sess := session.FromContext(ctx)
	attachSession(httpReq, sess)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	absorbCookies(sess, resp.Cookies())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("backend call")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	msg := errorMessage(body)
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &AuthError{Method: req.Method, Path: req.Path, Message: msg}
	}
	return nil, &StatusError{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Message: msg}
}

func attachSession(r *http.Request, sess *session.Session) {
	if sess == nil {
		return
	}
	if token := sess.Token(); token != "" {
		r.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: token})
	}
	if sess.LoggedIn() {
		r.AddCookie(&http.Cookie{Name: session.FlagCookie, Value: "true"})
	}
}

func absorbCookies(sess *session.Session, cookies []*http.Cookie) {
	if sess == nil {
		return
	}
	for _, ck := range cookies {
		expired := ck.MaxAge < 0 || ck.Value == "" ||
			(!ck.Expires.IsZero() && ck.Expires.Before(time.Now()))
		switch ck.Name {
		case session.TokenCookie:
			if expired {
				sess.SetToken("")
				continue
			}
			sess.SetToken(ck.Value)
			sess.MarkLoggedIn()
		case session.FlagCookie:
			if expired || ck.Value != "true" {
				sess.ClearFlag()
				continue
			}
			sess.MarkLoggedIn()
		}
	}
}

// errorMessage pulls a human readable message out of an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > errorSnippet {
		text = text[:errorSnippet]
	}
	return text
}
