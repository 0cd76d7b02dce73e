// Package api is the client of the issue tracker REST API. Every failure
// it returns wraps one of the apperr kinds.
package api

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

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/models"
)

// DefaultTimeout bounds a single request when no *http.Client is supplied.
const DefaultTimeout = 15 * time.Second

// TokenSource returns the bearer token to attach, or "" for none.
type TokenSource func() string

// Client talks to the REST gateway.
type Client struct {
	base  *url.URL
	hc    *http.Client
	token TokenSource
}

// New returns a client for the API at baseURL (e.g. "http://localhost:8080").
// hc may be nil. token may be nil for unauthenticated use.
func New(baseURL string, hc *http.Client, token TokenSource) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must start with http:// or https://", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{base: u, hc: hc, token: token}, nil
}

// BaseURL returns the server address the client was built with.
func (c *Client) BaseURL() string { return c.base.String() }

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, email, password string) (models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": password,
	}, &out)
	return out, err
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	}, &out)
	return out, err
}

// Verify resolves tok to its user. It uses tok rather than the token
// source so a persisted token can be checked before it is adopted.
func (c *Client) Verify(ctx context.Context, tok string) (models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/verify", tok, nil, &out)
	return out.User, err
}

// Logout asks the server to revoke tok.
func (c *Client) Logout(ctx context.Context, tok string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", tok, nil, nil)
}

// ListIssues returns every issue, newest first.
func (c *Client) ListIssues(ctx context.Context) ([]models.Issue, error) {
	var out []models.Issue
	if err := c.do(ctx, http.MethodGet, "/api/issues", c.token(), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Issue{}
	}
	return out, nil
}

// GetIssue returns one issue.
func (c *Client) GetIssue(ctx context.Context, id string) (models.Issue, error) {
	var out models.Issue
	err := c.do(ctx, http.MethodGet, "/api/issues/"+url.PathEscape(id), c.token(), nil, &out)
	return out, err
}

// CreateIssue submits draft after validating it locally.
func (c *Client) CreateIssue(ctx context.Context, draft models.IssueDraft) (models.Issue, error) {
	if err := draft.ValidateForCreate(); err != nil {
		return models.Issue{}, err
	}
	var out models.Issue
	err := c.do(ctx, http.MethodPost, "/api/issues", c.token(), draft, &out)
	return out, err
}

// UpdateIssue submits the supplied fields of draft and returns the merged
// issue as stored by the server.
func (c *Client) UpdateIssue(ctx context.Context, id string, draft models.IssueDraft) (models.Issue, error) {
	if draft.IsEmpty() {
		return models.Issue{}, apperr.Validation("no fields to update")
	}
	if err := draft.Validate(); err != nil {
		return models.Issue{}, err
	}
	var out models.Issue
	err := c.do(ctx, http.MethodPut, "/api/issues/"+url.PathEscape(id), c.token(), draft, &out)
	return out, err
}

// DeleteIssue removes an issue.
func (c *Client) DeleteIssue(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/issues/"+url.PathEscape(id), c.token(), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, tok string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return classify(res)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperr.ErrServer, err)
	}
	return nil
}

// classify turns a non-2xx response into an apperr-kinded error carrying
// the server's message.
func classify(res *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = http.StatusText(res.StatusCode)
	}

	var kind error
	switch {
	case res.StatusCode == http.StatusBadRequest,
		res.StatusCode == http.StatusUnprocessableEntity,
		res.StatusCode == http.StatusUnsupportedMediaType:
		kind = apperr.ErrValidation
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		kind = apperr.ErrAuth
	case res.StatusCode == http.StatusNotFound:
		kind = apperr.ErrNotFound
	default:
		kind = apperr.ErrServer
	}
	return &StatusError{Code: res.StatusCode, Message: body.Error, kind: kind}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return e.kind.Error() + ": " + e.Message
}

// Unwrap exposes the apperr kind to errors.Is.
func (e *StatusError) Unwrap() error { return e.kind }

// IsStatus reports whether err is a response with the given status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
