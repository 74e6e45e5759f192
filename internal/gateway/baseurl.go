package gateway

import (
	"net"
	"net/http"
	"strings"
)

const (
	// LocalAPIBase is used while the console itself runs on a loopback host.
	LocalAPIBase = "http://127.0.0.1:8000"
	apiPort      = "8000"
)

// ResolveBaseURL derives the API base from the scheme and host the console
// was reached on: loopback hosts use LocalAPIBase, any other host gets the
// same scheme and hostname on the API port.
func ResolveBaseURL(scheme, host string) string {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	hostname = strings.Trim(hostname, "[]")
	if hostname == "" || hostname == "localhost" || hostname == "127.0.0.1" {
		return LocalAPIBase
	}
	if scheme != "https" {
		scheme = "http"
	}
	return scheme + "://" + net.JoinHostPort(hostname, apiPort)
}

// BaseURLFor applies ResolveBaseURL to an inbound request, honouring
// X-Forwarded-Proto from a terminating proxy.
func BaseURLFor(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); p != "" {
		scheme = strings.ToLower(p)
	}
	return ResolveBaseURL(scheme, r.Host)
}
