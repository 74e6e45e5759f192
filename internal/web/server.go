// Package web serves the Aura console as server-rendered pages. Each request
// runs the matching view controller against the API with the session kept
// in a signed cookie; navigations become 303 redirects.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"aura.app/internal/api"
	"aura.app/internal/obs"
	"aura.app/internal/session"
	"aura.app/internal/views"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Options configure a Server.
type Options struct {
	// APIBase is the API root. Empty derives it from each request's host.
	APIBase string
	Client  *http.Client
	Jar     *session.CookieJar
	Version string
	// APITimeout bounds the API calls of one page. Zero means no bound.
	APITimeout   time.Duration
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
	Location     *time.Location
}

// Server is the console's HTTP layer.
type Server struct {
	router *mux.Router
	tmpl   *template.Template

	apiBase    string
	client     *http.Client
	jar        *session.CookieJar
	version    string
	timeout    time.Duration
	rateBurst  int
	ratePerSec int
	maxBody    int64
	loc        *time.Location

	// scans is shared by every dashboard request so a user's project runs
	// one scan at a time.
	scans *views.ScanGuard
}

func New(opts Options) (*Server, error) {
	if opts.Jar == nil {
		return nil, errors.New("web: cookie jar is required")
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		router:     mux.NewRouter(),
		tmpl:       tmpl,
		apiBase:    opts.APIBase,
		client:     opts.Client,
		jar:        opts.Jar,
		version:    opts.Version,
		timeout:    opts.APITimeout,
		rateBurst:  opts.RateBurst,
		ratePerSec: opts.RatePerSec,
		maxBody:    opts.MaxBodyBytes,
		loc:        opts.Location,
		scans:      views.NewScanGuard(),
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	if s.rateBurst <= 0 {
		s.rateBurst = 40
	}
	if s.ratePerSec <= 0 {
		s.ratePerSec = 20
	}
	if s.maxBody <= 0 {
		s.maxBody = 1 << 20
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	// pages
	r.HandleFunc("/", s.authPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.submitAuth(false)).Methods(http.MethodPost)
	r.HandleFunc("/register", s.submitAuth(true)).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.logout).Methods(http.MethodPost)
	r.HandleFunc("/dashboard", s.dashboard).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/projects", s.createProject).Methods(http.MethodPost)
	r.HandleFunc("/dashboard/delete", s.deleteProject).Methods(http.MethodPost)
	r.HandleFunc("/dashboard/scan", s.startScan).Methods(http.MethodPost)
	r.HandleFunc("/history", s.history).Methods(http.MethodGet)
	r.HandleFunc("/history/delete", s.deleteScan).Methods(http.MethodPost)
	r.HandleFunc("/results", s.results).Methods(http.MethodGet)

	static, _ := fs.Sub(staticFS, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// health/ready/info
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.ready).Methods(http.MethodGet)
	r.HandleFunc("/v1/info", s.info).Methods(http.MethodGet)

	// Prometheus metrics
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = MaxBodyBytes(h, s.maxBody)
	h = RateLimit(h, s.rateBurst, s.ratePerSec)
	h = SecurityHeaders(h, s.apiBase)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return api.WithTimeout(r.Context(), s.timeout)
}
