// Package apitest runs an in-memory fake of the Aura REST API for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Failure is an injected answer for the next matching request.
type Failure struct {
	Status int
	Detail string
}

// Server is a fake Aura API. It is safe for concurrent use.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]string // email -> password
	tokens   map[string]string // token -> email
	projects map[string]*project
	scans    map[string]*scan
	failures map[string]Failure // "METHOD /path" -> failure
	calls    []string
	clock    time.Time

	// NewScan builds the body of a scan for a project URL. Tests may replace it.
	NewScan func(url string) ScanBody
}

type project struct {
	ID          string `json:"_id"`
	ProjectName string `json:"projectName"`
	URL         string `json:"url"`
	UserID      string `json:"userId"`
	CreatedAt   string `json:"createdAt"`
	created     time.Time
}

type scan struct {
	ID        string `json:"_id"`
	ProjectID string `json:"projectId"`
	ScanType  string `json:"scanType"`
	ScanBody
	CreatedAt string `json:"createdAt"`
	created   time.Time
}

// ScanBody is the scanner-produced part of a scan result.
type ScanBody struct {
	AccessibilityScore int      `json:"accessibilityScore"`
	Issues             []Issue  `json:"issues"`
	GenericSuggestions []string `json:"genericSuggestions"`
	AISuggestions      []string `json:"aiSuggestions"`
	ScreenshotURL      string   `json:"screenshotUrl"`
}

type Issue struct {
	Guideline   string `json:"guideline"`
	Description string `json:"description"`
	Element     string `json:"element"`
}

// New starts a fake API. It is closed when the test ends.
func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		users:    make(map[string]string),
		tokens:   make(map[string]string),
		projects: make(map[string]*project),
		scans:    make(map[string]*scan),
		failures: make(map[string]Failure),
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		NewScan:  defaultScan,
	}
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/register", s.register).Methods(http.MethodPost)
	r.HandleFunc("/projects", s.authed(s.listProjects)).Methods(http.MethodGet)
	r.HandleFunc("/projects", s.authed(s.createProject)).Methods(http.MethodPost)
	r.HandleFunc("/projects/{id}", s.authed(s.getProject)).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}", s.authed(s.deleteProject)).Methods(http.MethodDelete)
	r.HandleFunc("/projects/{id}/history", s.authed(s.history)).Methods(http.MethodGet)
	r.HandleFunc("/scan/results/{id}", s.authed(s.getScan)).Methods(http.MethodGet)
	r.HandleFunc("/scan/results/{id}", s.authed(s.deleteScan)).Methods(http.MethodDelete)
	r.HandleFunc("/scan/{id}", s.authed(s.startScan)).Methods(http.MethodPost)

	s.Server = httptest.NewServer(s.intercept(r))
	t.Cleanup(s.Server.Close)
	return s
}

func defaultScan(url string) ScanBody {
	return ScanBody{
		AccessibilityScore: 82,
		Issues: []Issue{{
			Guideline:   "WCAG 1.1.1",
			Description: "Image is missing alternative text",
			Element:     `<img src="hero.png">`,
		}},
		GenericSuggestions: []string{"Add alt attributes to informative images."},
		AISuggestions:      []string{`AI Suggestion for readability: The sentence "Utilize synergies" is complex. Simplify it.`},
		ScreenshotURL:      "screenshots/" + uuid.NewString() + ".png",
	}
}

// AddUser registers credentials directly.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// TokenFor issues a valid token for email, registering the user if needed.
func (s *Server) TokenFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; !ok {
		s.users[email] = "password123"
	}
	return s.issueLocked(email)
}

// AddProject stores a project owned by email and returns its id.
func (s *Server) AddProject(email, name, url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addProjectLocked(email, name, url).ID
}

// AddScan stores a scan for a project and returns its id.
func (s *Server) AddScan(projectID string, body ScanBody) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addScanLocked(projectID, body).ID
}

// Fail makes the next request to method+path answer with f.
func (s *Server) Fail(method, path string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = f
}

// Calls counts received requests for method+path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == method+" "+path {
			n++
		}
	}
	return n
}

// TotalCalls counts every received request.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Handlers ----------------------------------------------------------------

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls = append(s.calls, key)
		f, failing := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()
		if failing {
			writeJSON(w, f.Status, map[string]any{"detail": f.Detail})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxHandler func(w http.ResponseWriter, r *http.Request, email string)

func (s *Server) authed(h ctxHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		s.mu.Lock()
		email, ok := s.tokens[token]
		s.mu.Unlock()
		if !strings.HasPrefix(header, "Bearer ") || !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})
			return
		}
		h(w, r, email)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "environment": "test"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid form"})
		return
	}
	email, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.users[email]; !ok || stored != password {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Incorrect email or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access_token": s.issueLocked(email), "token_type": "bearer"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid body"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{{
			"loc": []string{"body", "password"},
			"msg": "String should have at least 8 characters",
		}}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.Email]; ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Email already registered"})
		return
	}
	s.users[req.Email] = req.Password
	writeJSON(w, http.StatusOK, map[string]any{"_id": uuid.NewString(), "email": req.Email})
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*project{}
	for _, p := range s.projects {
		if p.UserID == email {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].created.After(out[j].created) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request, email string) {
	var req struct {
		ProjectName string `json:"projectName"`
		URL         string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid body"})
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid URL format or unsafe URL detected"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.UserID == email && p.ProjectName == req.ProjectName {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "A project with this name already exists."})
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.addProjectLocked(email, req.ProjectName, req.URL))
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[mux.Vars(r)["id"]]
	if !ok || p.UserID != email {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Project not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	p, ok := s.projects[id]
	if !ok || p.UserID != email {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Project not found"})
		return
	}
	for sid, sc := range s.scans {
		if sc.ProjectID == id {
			delete(s.scans, sid)
		}
	}
	delete(s.projects, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	if p, ok := s.projects[id]; !ok || p.UserID != email {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Project not found"})
		return
	}
	out := []*scan{}
	for _, sc := range s.scans {
		if sc.ProjectID == id {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].created.After(out[j].created) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	p, ok := s.projects[mux.Vars(r)["id"]]
	if !ok || p.UserID != email {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Project not found"})
		return
	}
	build := s.NewScan
	target := p.URL
	s.mu.Unlock()

	body := build(target)
	s.mu.Lock()
	sc := s.addScanLocked(p.ID, body)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scans[mux.Vars(r)["id"]]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Scan result not found"})
		return
	}
	if p, ok := s.projects[sc.ProjectID]; !ok || p.UserID != email {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "Not authorized to view this scan result"})
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) deleteScan(w http.ResponseWriter, r *http.Request, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	sc, ok := s.scans[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Scan result not found"})
		return
	}
	if p, ok := s.projects[sc.ProjectID]; !ok || p.UserID != email {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "Not authorized to delete this scan result"})
		return
	}
	delete(s.scans, id)
	w.WriteHeader(http.StatusNoContent)
}

// Helpers -----------------------------------------------------------------

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *Server) issueLocked(email string) string {
	claims := jwt.RegisteredClaims{
		Subject:   email,
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("apitest-secret"))
	if err != nil {
		panic(err)
	}
	s.tokens[tok] = email
	return tok
}

func (s *Server) addProjectLocked(email, name, url string) *project {
	now := s.tick()
	p := &project{
		ID:          strings.ReplaceAll(uuid.NewString(), "-", "")[:24],
		ProjectName: name,
		URL:         url,
		UserID:      email,
		CreatedAt:   now.Format("2006-01-02T15:04:05.000000"),
		created:     now,
	}
	s.projects[p.ID] = p
	return p
}

func (s *Server) addScanLocked(projectID string, body ScanBody) *scan {
	now := s.tick()
	sc := &scan{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", "")[:24],
		ProjectID: projectID,
		ScanType:  "live",
		ScanBody:  body,
		CreatedAt: now.Format("2006-01-02T15:04:05.000000"),
		created:   now,
	}
	s.scans[sc.ID] = sc
	return sc
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
