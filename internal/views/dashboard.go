package views

import (
	"context"
	"errors"
	"strings"
	"sync"

	"aura.app/internal/api"
	"aura.app/internal/platform"
)

const (
	ScanLabel     = "Scan Now"
	ScanningLabel = "Scanning..."

	msgNoProjects       = "No projects yet. Create one!"
	msgProjectsFailed   = "Error loading projects."
	msgConfirmProject   = "Are you sure you want to delete this project? This action cannot be undone."
	msgDeleteProjectErr = "Could not delete the project."
	msgScanFailedPrefix = "An error occurred during the scan: "
	msgScanInFlight     = "A scan is already running for this project."
)

// ErrScanInFlight rejects a second scan of a project whose scan is running.
var ErrScanInFlight = errors.New("views: scan already running")

// ScanButton is the state of a project's scan trigger.
type ScanButton struct {
	Label    string
	Disabled bool
}

// DashboardView is the project list page.
type DashboardView struct {
	env Env

	User     string
	Projects []api.Project
	// Placeholder replaces the project rows when the list is empty or
	// could not be loaded. Rows carry no actions then.
	Placeholder string
	FormError   string
	FormName    string
	FormURL     string
	Alert       string
	Modal       Modal[string]

	scans *ScanGuard
}

func NewDashboardView(env Env) *DashboardView {
	return &DashboardView{env: env, scans: NewScanGuard()}
}

// WithScanGuard makes the view share running-scan state with other views,
// such as the dashboards of concurrent requests from the same user.
func (v *DashboardView) WithScanGuard(g *ScanGuard) *DashboardView {
	if g != nil {
		v.scans = g
	}
	return v
}

// ScanGuard records which projects have a scan in flight, per user.
type ScanGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func NewScanGuard() *ScanGuard {
	return &ScanGuard{running: make(map[string]struct{})}
}

func (g *ScanGuard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	return true
}

func (g *ScanGuard) release(key string) {
	g.mu.Lock()
	delete(g.running, key)
	g.mu.Unlock()
}

func (g *ScanGuard) busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

func (v *DashboardView) scanKey(projectID string) string {
	return v.User + "\x00" + projectID
}

// Authorize checks for a token and reads the signed-in user from it.
func (v *DashboardView) Authorize() bool {
	if _, ok := v.env.Session.Token(); !ok {
		v.env.Nav.Navigate(platform.To(platform.PageLogin))
		return false
	}
	sub, err := v.env.Session.Subject()
	if err != nil {
		logFailure("read token subject", err)
	}
	v.User = sub
	return true
}

// Load authorizes and fetches the project list.
func (v *DashboardView) Load(ctx context.Context) bool {
	if !v.Authorize() {
		return false
	}
	v.Refresh(ctx)
	return true
}

// Refresh refetches the project list.
func (v *DashboardView) Refresh(ctx context.Context) error {
	projects, err := v.env.API.ListProjects(ctx)
	if err != nil {
		v.Projects = nil
		v.Placeholder = msgProjectsFailed
		logFailure("list projects", err)
		return err
	}
	v.Projects = projects
	v.Placeholder = ""
	if len(projects) == 0 {
		v.Placeholder = msgNoProjects
	}
	return nil
}

// CreateProject adds a project. On success the form is cleared and the list
// refetched; on failure the server's message is shown next to the form.
func (v *DashboardView) CreateProject(ctx context.Context, name, target string) error {
	v.FormError = ""
	v.FormName = strings.TrimSpace(name)
	v.FormURL = strings.TrimSpace(target)
	if _, err := v.env.API.CreateProject(ctx, v.FormName, v.FormURL); err != nil {
		v.FormError = Message(err)
		logFailure("create project", err)
		return err
	}
	v.FormName, v.FormURL = "", ""
	return v.Refresh(ctx)
}

// RequestDelete opens the confirmation dialog for a project. It reports
// false, leaving the dialog closed, when no project is named.
func (v *DashboardView) RequestDelete(projectID string) bool {
	if strings.TrimSpace(projectID) == "" {
		return false
	}
	v.Modal.Open(projectID, projectID, msgConfirmProject)
	return true
}

// CancelDelete closes the dialog without calling the API.
func (v *DashboardView) CancelDelete() { v.Modal.Cancel() }

// ConfirmDelete deletes the pending project and refetches the list.
func (v *DashboardView) ConfirmDelete(ctx context.Context) error {
	id, _, ok := v.Modal.Take()
	if !ok {
		return nil
	}
	if err := v.env.API.DeleteProject(ctx, id); err != nil {
		v.Alert = msgDeleteProjectErr
		logFailure("delete project", err)
		return err
	}
	return v.Refresh(ctx)
}

// Button returns the scan trigger state of a project.
func (v *DashboardView) Button(projectID string) ScanButton {
	if v.scans.busy(v.scanKey(projectID)) {
		return ScanButton{Label: ScanningLabel, Disabled: true}
	}
	return ScanButton{Label: ScanLabel}
}

// StartScan runs a scan and navigates to its results. The project's button
// stays disabled while the scan runs and a second trigger is rejected.
func (v *DashboardView) StartScan(ctx context.Context, projectID string) error {
	key := v.scanKey(projectID)
	if !v.scans.acquire(key) {
		v.Alert = msgScanInFlight
		return ErrScanInFlight
	}
	defer v.scans.release(key)

	scan, err := v.env.API.StartScan(ctx, projectID)
	if err != nil {
		v.Alert = msgScanFailedPrefix + Message(err)
		logFailure("start scan", err)
		return err
	}
	v.env.Nav.Navigate(platform.To(platform.PageResults, "scanId", scan.ID))
	return nil
}

// Logout ends the session.
func (v *DashboardView) Logout() error {
	err := v.env.Session.Clear()
	v.env.Nav.Navigate(platform.To(platform.PageLogin))
	return err
}
