package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"aura.app/internal/audit"
	"aura.app/internal/obs"
	"aura.app/internal/platform"
	"aura.app/internal/session"
	"aura.app/internal/views"
)

// pageRequest is the per-request platform a view runs on.
type pageRequest struct {
	env    views.Env
	nav    *platform.Recorder
	ctx    context.Context
	cancel context.CancelFunc
	user   string
}

func (s *Server) begin(w http.ResponseWriter, r *http.Request) *pageRequest {
	nav := &platform.Recorder{}
	env := views.NewEnv(s.apiBaseFor(r), s.client, s.jar.Storage(w, r), nav)
	env.Location = s.loc
	ctx, cancel := s.withTimeout(r)
	p := &pageRequest{env: env, nav: nav, ctx: ctx, cancel: cancel}
	if sub, err := env.Session.Subject(); err == nil {
		p.user = sub
		p.ctx = session.ContextWithUser(p.ctx, sub)
	}
	return p
}

// redirected turns the view's last navigation into a 303.
func (s *Server) redirected(w http.ResponseWriter, r *http.Request, p *pageRequest) bool {
	loc, ok := p.nav.Last()
	if !ok {
		return false
	}
	http.Redirect(w, r, loc.String(), http.StatusSeeOther)
	return true
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid form")
		return false
	}
	return true
}

func (s *Server) audit(ctx context.Context, event string, fields map[string]string) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		obs.Logger().Warn("audit failed", zap.String("event", event), zap.Error(err))
	}
}

// --- templates ---

type layout struct {
	Title string
	User  string
	Alert string
}

type authData struct {
	layout
	View       *views.AuthView
	Action     string
	Prompt     string
	Link       string
	ToggleHref string
}

type dashboardData struct {
	layout
	View *views.DashboardView
}

type historyData struct {
	layout
	View *views.HistoryView
}

type resultsData struct {
	layout
	View *views.ResultsView
}

type modalData struct {
	Text   string
	Action string
	Hidden map[string]string
}

func (d dashboardData) ModalData() modalData {
	return modalData{
		Text:   d.View.Modal.Text(),
		Action: "/dashboard/delete",
		Hidden: map[string]string{"projectId": d.View.Modal.PendingID()},
	}
}

func (d historyData) ModalData() modalData {
	return modalData{
		Text:   d.View.Modal.Text(),
		Action: "/history/delete",
		Hidden: map[string]string{"projectId": d.View.ProjectID, "scanId": d.View.Modal.PendingID()},
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, code int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		obs.Logger().Error("render failed",
			zap.String("template", name),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderAuth(w http.ResponseWriter, r *http.Request, v *views.AuthView) {
	d := authData{layout: layout{Title: v.Title()}, View: v, Action: "/login", ToggleHref: "/?mode=register"}
	if v.Mode == views.ModeRegister {
		d.Action, d.ToggleHref = "/register", "/"
	}
	d.Prompt, d.Link = v.TogglePrompt()
	s.render(w, r, "auth", d)
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, v *views.DashboardView) {
	s.renderDashboardStatus(w, r, http.StatusOK, v)
}

func (s *Server) renderDashboardStatus(w http.ResponseWriter, r *http.Request, code int, v *views.DashboardView) {
	s.renderStatus(w, r, code, "dashboard", dashboardData{
		layout: layout{Title: "Dashboard", User: v.User, Alert: v.Alert},
		View:   v,
	})
}

func (s *Server) renderHistory(w http.ResponseWriter, r *http.Request, p *pageRequest, v *views.HistoryView) {
	s.render(w, r, "history", historyData{
		layout: layout{Title: "Scan History", User: p.user, Alert: v.Alert},
		View:   v,
	})
}

// --- auth ---

func (s *Server) authPage(w http.ResponseWriter, r *http.Request) {
	p := s.begin(w, r)
	defer p.cancel()
	v := views.NewAuthView(p.env)
	if !v.Load() {
		s.redirected(w, r, p)
		return
	}
	if r.URL.Query().Get("mode") == views.ModeRegister.String() {
		v.SetMode(views.ModeRegister)
	}
	s.renderAuth(w, r, v)
}

func (s *Server) submitAuth(register bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.parseForm(w, r) {
			return
		}
		p := s.begin(w, r)
		defer p.cancel()
		v := views.NewAuthView(p.env)
		if register {
			v.SetMode(views.ModeRegister)
		}
		err := v.Submit(p.ctx, r.PostForm.Get("email"), r.PostForm.Get("password"))
		fields := map[string]string{"email": v.Email}
		switch {
		case register && err == nil:
			s.audit(p.ctx, audit.EventRegister, fields)
		case !register && err == nil:
			s.audit(session.ContextWithUser(p.ctx, v.Email), audit.EventLogin, fields)
		case !register:
			s.audit(p.ctx, audit.EventLoginFailed, fields)
		}
		if s.redirected(w, r, p) {
			return
		}
		s.renderAuth(w, r, v)
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	p := s.begin(w, r)
	defer p.cancel()
	v := s.dashboardView(p)
	if err := v.Logout(); err != nil {
		obs.Logger().Warn("clear session", zap.Error(err))
	}
	s.audit(p.ctx, audit.EventLogout, nil)
	s.redirected(w, r, p)
}

// --- dashboard ---

func (s *Server) dashboardView(p *pageRequest) *views.DashboardView {
	return views.NewDashboardView(p.env).WithScanGuard(s.scans)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	p := s.begin(w, r)
	defer p.cancel()
	v := s.dashboardView(p)
	v.Load(p.ctx)
	if s.redirected(w, r, p) {
		return
	}
	if id := r.URL.Query().Get("confirm"); id != "" {
		v.RequestDelete(id)
	}
	s.renderDashboard(w, r, v)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	p := s.begin(w, r)
	defer p.cancel()
	v := s.dashboardView(p)
	if !v.Authorize() {
		s.redirected(w, r, p)
		return
	}
	name, target := r.PostForm.Get("projectName"), r.PostForm.Get("url")
	if err := v.CreateProject(p.ctx, name, target); err == nil {
		s.audit(p.ctx, audit.EventProjectCreate, map[string]string{"name": name, "url": target})
	} else if p.nav.Count() == 0 {
		v.Refresh(p.ctx)
	}
	if s.redirected(w, r, p) {
		return
	}
	s.renderDashboard(w, r, v)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	p := s.begin(w, r)
	defer p.cancel()
	v := s.dashboardView(p)
	if !v.Authorize() {
		s.redirected(w, r, p)
		return
	}
	id := r.PostForm.Get("projectId")
	if !v.RequestDelete(id) || r.PostForm.Get("action") != "confirm" {
		v.CancelDelete()
		http.Redirect(w, r, string(platform.PageDashboard), http.StatusSeeOther)
		return
	}
	if err := v.ConfirmDelete(p.ctx); err == nil {
		s.audit(p.ctx, audit.EventProjectDelete, map[string]string{"project_id": id})
	} else if p.nav.Count() == 0 {
		v.Refresh(p.ctx)
	}
	if s.redirected(w, r, p) {
		return
	}
	s.renderDashboard(w, r, v)
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	p := s.begin(w, r)
	defer p.cancel()
	v := s.dashboardView(p)
	if !v.Authorize() {
		s.redirected(w, r, p)
		return
	}
	id := r.PostForm.Get("projectId")
	err := v.StartScan(p.ctx, id)
	switch {
	case err == nil:
		s.audit(p.ctx, audit.EventScanStart, map[string]string{"project_id": id})
	case p.nav.Count() == 0:
		v.Refresh(p.ctx)
	}
	if s.redirected(w, r, p) {
		return
	}
	if errors.Is(err, views.ErrScanInFlight) {
		s.renderDashboardStatus(w, r, http.StatusConflict, v)
		return
	}
	s.renderDashboard(w, r, v)
}

// --- history ---

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	p := s.begin(w, r)
	defer p.cancel()
	q := r.URL.Query()
	v := views.NewHistoryView(p.env)
	v.Load(p.ctx, q.Get("projectId"))
	if s.redirected(w, r, p) {
		return
	}
	if id := q.Get("confirm"); id != "" {
		v.RequestDelete(id)
	}
	s.renderHistory(w, r, p, v)
}

func (s *Server) deleteScan(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	projectID := r.PostForm.Get("projectId")
	if r.PostForm.Get("action") != "confirm" {
		http.Redirect(w, r, platform.To(platform.PageHistory, "projectId", projectID).String(), http.StatusSeeOther)
		return
	}
	p := s.begin(w, r)
	defer p.cancel()
	v := views.NewHistoryView(p.env)
	v.Load(p.ctx, projectID)
	if s.redirected(w, r, p) {
		return
	}
	scanID := r.PostForm.Get("scanId")
	if v.Error == "" {
		if err := v.Delete(p.ctx, scanID); err == nil {
			s.audit(p.ctx, audit.EventScanDelete, map[string]string{"project_id": projectID, "scan_id": scanID})
		}
		if s.redirected(w, r, p) {
			return
		}
	}
	s.renderHistory(w, r, p, v)
}

// --- results ---

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	p := s.begin(w, r)
	defer p.cancel()
	v := views.NewResultsView(p.env)
	v.Load(p.ctx, r.URL.Query().Get("scanId"))
	if s.redirected(w, r, p) {
		return
	}
	s.render(w, r, "results", resultsData{
		layout: layout{Title: "Scan Results", User: p.user},
		View:   v,
	})
}
