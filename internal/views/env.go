// Package views holds the page controllers shared by the web console and
// the terminal client. Controllers read the session, call the API and keep
// the resulting page state as plain fields; they never write markup.
package views

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"aura.app/internal/api"
	"aura.app/internal/gateway"
	"aura.app/internal/obs"
	"aura.app/internal/platform"
	"aura.app/internal/session"
)

// Env is everything a controller needs from its platform.
type Env struct {
	API      *api.Client
	Session  *session.Store
	Nav      platform.Navigator
	Location *time.Location
}

// NewEnv wires a session store, gateway and API client over one platform.
func NewEnv(apiBase string, doer platform.Doer, storage platform.Storage, nav platform.Navigator) Env {
	store := session.New(storage)
	gw := gateway.New(apiBase, doer, store, nav)
	return Env{
		API:      api.NewClient(gw),
		Session:  store,
		Nav:      nav,
		Location: time.Local,
	}
}

// APIBase is the root the env's gateway talks to.
func (e Env) APIBase() string { return e.API.Gateway().BaseURL() }

const (
	msgNoToken     = "No token found. Please log in."
	msgExpired     = "Session expired. Please log in again."
	msgUnreachable = "Cannot connect to server. Please check if the backend is running."
	msgTimeout     = "The server took too long to respond."
	msgUnexpected  = "Unexpected response from server."
)

// Message converts an error from the API layer into text for the user.
func Message(err error) string {
	var apiErr *api.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, gateway.ErrNotAuthenticated):
		return msgNoToken
	case errors.Is(err, gateway.ErrSessionExpired):
		return msgExpired
	case errors.Is(err, gateway.ErrUnreachable):
		return msgUnreachable
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.As(err, &apiErr):
		return apiErr.Detail
	default:
		return msgUnexpected
	}
}

func logFailure(action string, err error) {
	if gateway.IsAuthFailure(err) {
		return
	}
	obs.Logger().Warn("view action failed", zap.String("action", action), zap.Error(err))
}
