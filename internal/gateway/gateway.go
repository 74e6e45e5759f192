// Package gateway sends requests to the Aura API on behalf of a session.
package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aura.app/internal/obs"
	"aura.app/internal/platform"
	"aura.app/internal/session"
)

// Options mirror the method/headers/body of a fetch call.
type Options struct {
	Method string
	Header http.Header
	Body   io.Reader
}

// Gateway injects the session's bearer token into API calls and turns
// authentication failures into a logout plus navigation to the login page.
// It keeps no state between calls.
type Gateway struct {
	base    string
	doer    platform.Doer
	session *session.Store
	nav     platform.Navigator
}

func New(base string, doer platform.Doer, store *session.Store, nav platform.Navigator) *Gateway {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Gateway{
		base:    strings.TrimRight(base, "/"),
		doer:    doer,
		session: store,
		nav:     nav,
	}
}

// BaseURL is the API root requests are sent to.
func (g *Gateway) BaseURL() string { return g.base }

// Session returns the store the gateway reads its token from.
func (g *Gateway) Session() *session.Store { return g.session }

// Call sends an authenticated request. Without a stored token it navigates to
// the login page and returns ErrNotAuthenticated before touching the network.
// A 401 or 403 answer clears the token, navigates to login and returns
// ErrSessionExpired; the response body is closed in that case.
func (g *Gateway) Call(ctx context.Context, endpoint string, opts Options) (*http.Response, error) {
	token, ok := g.session.Token()
	if !ok {
		g.nav.Navigate(platform.To(platform.PageLogin))
		return nil, ErrNotAuthenticated
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	for k, vs := range opts.Header {
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	header.Set("Authorization", "Bearer "+token)

	resp, err := g.send(ctx, endpoint, opts, header)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_ = resp.Body.Close()
		if err := g.session.Clear(); err != nil {
			obs.Logger().Warn("session clear failed", zap.Error(err))
		}
		g.nav.Navigate(platform.To(platform.PageLogin))
		return nil, ErrSessionExpired
	}
	return resp, nil
}

// Public sends a request without credentials. Login and registration use it;
// their 401 answers are ordinary failures, not expired sessions.
func (g *Gateway) Public(ctx context.Context, endpoint string, opts Options) (*http.Response, error) {
	header := http.Header{}
	for k, vs := range opts.Header {
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return g.send(ctx, endpoint, opts, header)
}

func (g *Gateway) send(ctx context.Context, endpoint string, opts Options, header http.Header) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, g.base+endpoint, opts.Body)
	if err != nil {
		return nil, err
	}
	req.Header = header
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}

	start := time.Now()
	resp, err := g.doer.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			obs.ObserveAPICall(method, endpoint, "canceled", time.Since(start))
			return nil, ctxErr
		}
		obs.ObserveAPICall(method, endpoint, "unreachable", time.Since(start))
		obs.Logger().Warn("api unreachable",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	obs.ObserveAPICall(method, endpoint, outcome(resp.StatusCode), time.Since(start))
	return resp, nil
}

func outcome(code int) string {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "unauthorized"
	case code >= 500:
		return "server_error"
	case code >= 400:
		return "client_error"
	default:
		return "ok"
	}
}

// IsAuthFailure reports whether err already navigated the user to login.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionExpired)
}
