package views_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"aura.app/internal/api"
	"aura.app/internal/api/apitest"
	"aura.app/internal/gateway"
	"aura.app/internal/platform"
	"aura.app/internal/views"
)

const user = "ada@example.com"

type fixture struct {
	srv     *apitest.Server
	storage *platform.MemoryStorage
	nav     *platform.Recorder
	env     views.Env
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New(t)
	f := &fixture{srv: srv, storage: platform.NewMemoryStorage(), nav: &platform.Recorder{}}
	f.env = views.NewEnv(srv.URL, srv.Client(), f.storage, f.nav)
	f.env.Location = time.UTC
	return f
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	if err := f.env.Session.Save(f.srv.TokenFor(user)); err != nil {
		t.Fatalf("save token: %v", err)
	}
}

func (f *fixture) lastPage(t *testing.T) platform.Location {
	t.Helper()
	loc, ok := f.nav.Last()
	if !ok {
		t.Fatalf("expected a navigation")
	}
	return loc
}

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{gateway.ErrNotAuthenticated, "No token found. Please log in."},
		{gateway.ErrSessionExpired, "Session expired. Please log in again."},
		{&gateway.TransportError{Endpoint: "/projects", Err: errors.New("dial tcp: refused")}, "Cannot connect to server. Please check if the backend is running."},
		{&api.Error{Status: 400, Detail: "A project with this name already exists."}, "A project with this name already exists."},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "The server took too long to respond."},
		{errors.New("json: cannot unmarshal"), "Unexpected response from server."},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := views.Message(tc.err); got != tc.want {
			t.Errorf("Message(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestModalTakeClears(t *testing.T) {
	var m views.Modal[int]
	if _, _, ok := m.Take(); ok {
		t.Fatalf("idle modal should have nothing pending")
	}
	m.Open("abc", 7, "sure?")
	if !m.IsOpen() || m.PendingID() != "abc" || m.Text() != "sure?" {
		t.Fatalf("unexpected modal state after open")
	}
	id, el, ok := m.Take()
	if !ok || id != "abc" || el != 7 {
		t.Fatalf("Take returned %q %d %v", id, el, ok)
	}
	if m.IsOpen() || m.Text() != "" {
		t.Fatalf("modal should be idle after Take")
	}
	m.Open("def", 1, "sure?")
	m.Cancel()
	if _, _, ok := m.Take(); ok {
		t.Fatalf("cancel should clear pending state")
	}
}

func TestAuthLoadRedirectsWithToken(t *testing.T) {
	f := newFixture(t)
	v := views.NewAuthView(f.env)
	if !v.Load() {
		t.Fatalf("form should show without a token")
	}
	f.signIn(t)
	if v.Load() {
		t.Fatalf("form should not show with a token")
	}
	if f.lastPage(t).Page != platform.PageDashboard {
		t.Fatalf("expected dashboard navigation")
	}
}

func TestAuthLogin(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser(user, "correct-horse")
	v := views.NewAuthView(f.env)

	if err := v.Submit(context.Background(), user, "nope"); err == nil {
		t.Fatalf("expected login failure")
	}
	if v.Error != "Incorrect email or password" || f.nav.Count() != 0 {
		t.Fatalf("unexpected failure state %q, %d navigations", v.Error, f.nav.Count())
	}
	if v.Email != user {
		t.Fatalf("email should be kept after a failed login")
	}

	f.srv.Fail(http.MethodPost, "/login", apitest.Failure{Status: http.StatusInternalServerError})
	_ = v.Submit(context.Background(), user, "correct-horse")
	if v.Error != "Login failed" {
		t.Fatalf("expected fallback message, got %q", v.Error)
	}

	if err := v.Submit(context.Background(), " "+user+" ", "correct-horse"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if tok, ok := f.env.Session.Token(); !ok || tok == "" {
		t.Fatalf("token not stored")
	}
	if v.Error != "" || f.lastPage(t).Page != platform.PageDashboard {
		t.Fatalf("expected dashboard after login")
	}
}

func TestAuthRegisterSwitchesToLogin(t *testing.T) {
	f := newFixture(t)
	v := views.NewAuthView(f.env)
	v.Toggle()
	if v.Mode != views.ModeRegister || v.Title() != "Register" || v.ButtonLabel() != "Create Account" {
		t.Fatalf("unexpected register labels %q %q", v.Title(), v.ButtonLabel())
	}
	if prompt, link := v.TogglePrompt(); prompt != "Already have an account?" || link != "Login." {
		t.Fatalf("unexpected prompt %q %q", prompt, link)
	}

	if err := v.Submit(context.Background(), user, "short"); err == nil {
		t.Fatalf("expected validation error")
	}
	if v.Error != "String should have at least 8 characters" || v.Mode != views.ModeRegister {
		t.Fatalf("unexpected state %q mode=%v", v.Error, v.Mode)
	}

	if err := v.Submit(context.Background(), user, "correct-horse"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if v.Mode != views.ModeLogin || v.Success != "Registration successful! Please login." || v.Error != "" {
		t.Fatalf("unexpected state after register: mode=%v success=%q error=%q", v.Mode, v.Success, v.Error)
	}
	if v.Title() != "Login" || v.ButtonLabel() != "Login" {
		t.Fatalf("labels should follow mode")
	}
	if f.nav.Count() != 0 {
		t.Fatalf("register should not navigate")
	}

	v.Toggle()
	if v.Success != "" || v.Error != "" || v.Email != "" {
		t.Fatalf("toggle should reset messages and form")
	}
}

func TestDashboardRequiresToken(t *testing.T) {
	f := newFixture(t)
	v := views.NewDashboardView(f.env)
	if v.Load(context.Background()) {
		t.Fatalf("Load should fail without a token")
	}
	if f.lastPage(t).Page != platform.PageLogin || f.srv.TotalCalls() != 0 {
		t.Fatalf("expected login navigation and no API call")
	}
}

func TestDashboardListsProjects(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	v := views.NewDashboardView(f.env)
	ctx := context.Background()

	if !v.Load(ctx) {
		t.Fatalf("Load failed")
	}
	if v.User != user {
		t.Fatalf("unexpected user %q", v.User)
	}
	if v.Placeholder != "No projects yet. Create one!" || len(v.Projects) != 0 {
		t.Fatalf("expected empty placeholder, got %q", v.Placeholder)
	}

	if err := v.CreateProject(ctx, "Docs", "not a url"); err == nil {
		t.Fatalf("expected validation error")
	}
	if v.FormError != "Invalid URL format or unsafe URL detected" || v.FormName != "Docs" {
		t.Fatalf("unexpected form state %q %q", v.FormError, v.FormName)
	}

	if err := v.CreateProject(ctx, "Docs", "https://docs.example.com"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if v.FormError != "" || v.FormName != "" || v.FormURL != "" {
		t.Fatalf("form should be cleared after create")
	}
	if len(v.Projects) != 1 || v.Projects[0].ProjectName != "Docs" || v.Placeholder != "" {
		t.Fatalf("unexpected projects %+v", v.Projects)
	}

	f.srv.Fail(http.MethodGet, "/projects", apitest.Failure{Status: http.StatusInternalServerError})
	if err := v.Refresh(ctx); err == nil {
		t.Fatalf("expected refresh failure")
	}
	if v.Placeholder != "Error loading projects." || v.Projects != nil {
		t.Fatalf("expected error row, got %q", v.Placeholder)
	}
}

func TestDashboardDeleteFlow(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	id := f.srv.AddProject(user, "Docs", "https://docs.example.com")
	v := views.NewDashboardView(f.env)
	ctx := context.Background()
	v.Load(ctx)

	v.RequestDelete(id)
	if !v.Modal.IsOpen() || v.Modal.Text() != "Are you sure you want to delete this project? This action cannot be undone." {
		t.Fatalf("modal should be open with the project prompt")
	}
	v.CancelDelete()
	if v.Modal.IsOpen() || f.srv.Calls(http.MethodDelete, "/projects/"+id) != 0 {
		t.Fatalf("cancel should close without a call")
	}
	if err := v.ConfirmDelete(ctx); err != nil || f.srv.Calls(http.MethodDelete, "/projects/"+id) != 0 {
		t.Fatalf("confirm with nothing pending should be a no-op")
	}

	f.srv.Fail(http.MethodDelete, "/projects/"+id, apitest.Failure{Status: http.StatusInternalServerError, Detail: "db down"})
	v.RequestDelete(id)
	if err := v.ConfirmDelete(ctx); err == nil {
		t.Fatalf("expected delete failure")
	}
	if v.Alert != "Could not delete the project." || v.Modal.IsOpen() {
		t.Fatalf("unexpected state after failure: alert=%q", v.Alert)
	}

	v.Alert = ""
	v.RequestDelete(id)
	if err := v.ConfirmDelete(ctx); err != nil {
		t.Fatalf("ConfirmDelete: %v", err)
	}
	if f.srv.Calls(http.MethodDelete, "/projects/"+id) != 2 {
		t.Fatalf("expected exactly one DELETE per confirm")
	}
	if len(v.Projects) != 0 || v.Placeholder != "No projects yet. Create one!" {
		t.Fatalf("list should be refetched after delete")
	}
}

func TestDashboardScanNavigatesToResults(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	id := f.srv.AddProject(user, "Docs", "https://docs.example.com")
	v := views.NewDashboardView(f.env)

	if b := v.Button(id); b.Label != "Scan Now" || b.Disabled {
		t.Fatalf("unexpected idle button %+v", b)
	}
	if err := v.StartScan(context.Background(), id); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	loc := f.lastPage(t)
	if loc.Page != platform.PageResults || loc.Query.Get("scanId") == "" {
		t.Fatalf("unexpected navigation %s", loc)
	}
}

func TestDashboardScanRejectsSecondTrigger(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	id := f.srv.AddProject(user, "Docs", "https://docs.example.com")
	release := make(chan struct{})
	f.srv.NewScan = func(url string) apitest.ScanBody {
		<-release
		return apitest.ScanBody{AccessibilityScore: 90}
	}
	v := views.NewDashboardView(f.env)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = v.StartScan(context.Background(), id)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for f.srv.Calls(http.MethodPost, "/scan/"+id) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("scan request never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if b := v.Button(id); b.Label != "Scanning..." || !b.Disabled {
		t.Fatalf("button should be busy, got %+v", b)
	}
	if err := v.StartScan(context.Background(), id); !errors.Is(err, views.ErrScanInFlight) {
		t.Fatalf("expected ErrScanInFlight, got %v", err)
	}
	close(release)
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("first scan: %v", firstErr)
	}
	if n := f.srv.Calls(http.MethodPost, "/scan/"+id); n != 1 {
		t.Fatalf("expected one scan call, got %d", n)
	}
}

func TestDashboardScanGuardSpansViews(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	id := f.srv.AddProject(user, "Docs", "https://docs.example.com")
	release := make(chan struct{})
	f.srv.NewScan = func(url string) apitest.ScanBody {
		<-release
		return apitest.ScanBody{AccessibilityScore: 90}
	}
	guard := views.NewScanGuard()
	first := views.NewDashboardView(f.env).WithScanGuard(guard)
	second := views.NewDashboardView(f.env).WithScanGuard(guard)
	first.Authorize()
	second.Authorize()

	done := make(chan error, 1)
	go func() { done <- first.StartScan(context.Background(), id) }()

	deadline := time.Now().Add(5 * time.Second)
	for f.srv.Calls(http.MethodPost, "/scan/"+id) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("scan request never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if b := second.Button(id); !b.Disabled || b.Label != "Scanning..." {
		t.Fatalf("other view should see the busy button, got %+v", b)
	}
	if err := second.StartScan(context.Background(), id); !errors.Is(err, views.ErrScanInFlight) {
		t.Fatalf("expected ErrScanInFlight, got %v", err)
	}
	if second.Alert != "A scan is already running for this project." {
		t.Fatalf("unexpected alert %q", second.Alert)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if n := f.srv.Calls(http.MethodPost, "/scan/"+id); n != 1 {
		t.Fatalf("expected one scan call, got %d", n)
	}
	if b := second.Button(id); b.Disabled {
		t.Fatalf("guard should be released after the scan, got %+v", b)
	}
}

func TestDashboardRequestDeleteNeedsID(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	v := views.NewDashboardView(f.env)
	if v.RequestDelete("") || v.RequestDelete("  ") || v.Modal.IsOpen() {
		t.Fatalf("an empty id must not open the modal")
	}
	if !v.RequestDelete("p1") || v.Modal.PendingID() != "p1" {
		t.Fatalf("modal should open for a named project")
	}
}

func TestDashboardScanFailureRestoresButton(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	id := f.srv.AddProject(user, "Docs", "https://docs.example.com")
	f.srv.Fail(http.MethodPost, "/scan/"+id, apitest.Failure{Status: http.StatusInternalServerError, Detail: "Scanner crashed"})
	v := views.NewDashboardView(f.env)

	if err := v.StartScan(context.Background(), id); err == nil {
		t.Fatalf("expected scan failure")
	}
	if v.Alert != "An error occurred during the scan: Scanner crashed" {
		t.Fatalf("unexpected alert %q", v.Alert)
	}
	if b := v.Button(id); b.Label != "Scan Now" || b.Disabled {
		t.Fatalf("button should be restored, got %+v", b)
	}
	if f.nav.Count() != 0 {
		t.Fatalf("failed scan should not navigate")
	}
}

func TestDashboardExpiredSession(t *testing.T) {
	f := newFixture(t)
	if err := f.env.Session.Save("stale-token"); err != nil {
		t.Fatal(err)
	}
	v := views.NewDashboardView(f.env)
	v.Load(context.Background())
	if _, ok := f.env.Session.Token(); ok {
		t.Fatalf("token should be cleared on 401")
	}
	if f.nav.Count() != 1 || f.lastPage(t).Page != platform.PageLogin {
		t.Fatalf("expected exactly one login navigation, got %d", f.nav.Count())
	}
}

func TestDashboardLogout(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	v := views.NewDashboardView(f.env)
	if err := v.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok := f.env.Session.Token(); ok || f.lastPage(t).Page != platform.PageLogin {
		t.Fatalf("logout should clear token and navigate to login")
	}
}

func TestHistoryRequiresProject(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	v := views.NewHistoryView(f.env)
	if v.Load(context.Background(), "") {
		t.Fatalf("Load should not show without a project id")
	}
	if f.lastPage(t).Page != platform.PageDashboard || f.srv.TotalCalls() != 0 {
		t.Fatalf("expected dashboard navigation without API calls")
	}
}

func TestHistoryListAndDelete(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	pid := f.srv.AddProject(user, `Docs "v2"`, "https://docs.example.com")
	older := f.srv.AddScan(pid, apitest.ScanBody{AccessibilityScore: 70})
	newer := f.srv.AddScan(pid, apitest.ScanBody{AccessibilityScore: 95})
	v := views.NewHistoryView(f.env)
	ctx := context.Background()

	if !v.Load(ctx, pid) {
		t.Fatalf("Load failed")
	}
	if v.Header != `Scan History for "Docs "v2""` {
		t.Fatalf("unexpected header %q", v.Header)
	}
	if len(v.Rows) != 2 || v.Rows[0].ScanID != newer || v.Rows[1].ScanID != older {
		t.Fatalf("rows should be newest first: %+v", v.Rows)
	}
	if v.Rows[0].Score != 95 || v.Rows[0].When != "May 1, 2024, 12:03:00 PM" {
		t.Fatalf("unexpected row %+v", *v.Rows[0])
	}

	if v.RequestDelete("missing") {
		t.Fatalf("unknown rows cannot be deleted")
	}
	if !v.RequestDelete(newer) || v.Modal.Text() != "Are you sure you want to delete this scan result?" {
		t.Fatalf("modal should open for a listed scan")
	}
	if err := v.ConfirmDelete(ctx); err != nil {
		t.Fatalf("ConfirmDelete: %v", err)
	}
	if len(v.Rows) != 1 || v.Rows[0].ScanID != older {
		t.Fatalf("row should be removed locally: %+v", v.Rows)
	}
	if f.srv.Calls(http.MethodGet, "/projects/"+pid+"/history") != 1 {
		t.Fatalf("delete should not refetch history")
	}

	f.srv.Fail(http.MethodDelete, "/scan/results/"+older, apitest.Failure{Status: http.StatusInternalServerError})
	v.RequestDelete(older)
	if err := v.ConfirmDelete(ctx); err == nil {
		t.Fatalf("expected delete failure")
	}
	if v.Alert != "Could not delete the scan result." || len(v.Rows) != 1 || v.Modal.IsOpen() {
		t.Fatalf("failure should alert and keep the row")
	}
}

func TestHistoryDeleteUnlistedScan(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	pid := f.srv.AddProject(user, "Docs", "https://docs.example.com")
	sid := f.srv.AddScan(pid, apitest.ScanBody{AccessibilityScore: 70})
	v := views.NewHistoryView(f.env)
	ctx := context.Background()
	v.Load(ctx, pid)

	if err := v.Delete(ctx, "missing"); !errors.Is(err, views.ErrScanNotListed) {
		t.Fatalf("expected ErrScanNotListed, got %v", err)
	}
	if v.Alert != "Could not delete the scan result." || f.srv.Calls(http.MethodDelete, "/scan/results/missing") != 0 {
		t.Fatalf("unlisted scan should alert without a call, alert=%q", v.Alert)
	}

	v.Alert = ""
	if err := v.Delete(ctx, sid); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(v.Rows) != 0 || v.Alert != "" || f.srv.Calls(http.MethodDelete, "/scan/results/"+sid) != 1 {
		t.Fatalf("listed scan should be deleted once and dropped")
	}
}

func TestHistoryEmptyAndErrors(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	pid := f.srv.AddProject(user, "Docs", "https://docs.example.com")
	ctx := context.Background()

	v := views.NewHistoryView(f.env)
	v.Load(ctx, pid)
	if v.Placeholder() != "No scans have been run for this project yet." {
		t.Fatalf("unexpected placeholder %q", v.Placeholder())
	}

	v = views.NewHistoryView(f.env)
	v.Load(ctx, "nope")
	if v.Error != "Error loading scan history: Project not found" || v.Placeholder() != "" {
		t.Fatalf("unexpected error %q", v.Error)
	}
	if f.srv.Calls(http.MethodGet, "/projects/nope/history") != 0 {
		t.Fatalf("history must not be fetched when the project fails")
	}

	f.srv.Fail(http.MethodGet, "/projects/"+pid+"/history", apitest.Failure{Status: http.StatusInternalServerError})
	v = views.NewHistoryView(f.env)
	v.Load(ctx, pid)
	if v.Error != "Error loading scan history: Could not fetch scan history." || v.Header != "" {
		t.Fatalf("unexpected error %q header %q", v.Error, v.Header)
	}
}

func TestResultsView(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	pid := f.srv.AddProject(user, "Docs", "https://docs.example.com")
	sid := f.srv.AddScan(pid, apitest.ScanBody{
		AccessibilityScore: 64,
		Issues:             []apitest.Issue{{Guideline: "WCAG 1.1.1", Description: "Missing alt", Element: "<img>"}},
		ScreenshotURL:      "screenshots/a.png",
	})
	ctx := context.Background()

	v := views.NewResultsView(f.env)
	if !v.Load(ctx, sid) {
		t.Fatalf("Load failed")
	}
	html := string(v.HTML())
	for _, want := range []string{
		"64</span> / 100",
		"https://docs.example.com",
		f.srv.URL + "/screenshots/a.png",
		"All Issues Found (1)",
		"&lt;img&gt;",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("results missing %q", want)
		}
	}

	v = views.NewResultsView(f.env)
	v.Load(ctx, "missing")
	if v.Error != "Scan result not found" || !strings.Contains(string(v.HTML()), `href="/dashboard"`) {
		t.Fatalf("expected error block, got %q", v.HTML())
	}

	v = views.NewResultsView(f.env)
	if v.Load(ctx, "") {
		t.Fatalf("missing scan id should navigate away")
	}
	if f.lastPage(t).Page != platform.PageDashboard {
		t.Fatalf("expected dashboard navigation")
	}
}

func TestUnreachableBackend(t *testing.T) {
	srv := apitest.New(t)
	base := srv.URL
	srv.Close()

	storage := platform.NewMemoryStorage()
	env := views.NewEnv(base, http.DefaultClient, storage, &platform.Recorder{})
	_ = env.Session.Save("token")
	v := views.NewDashboardView(env)
	v.Load(context.Background())
	if v.Placeholder != "Error loading projects." {
		t.Fatalf("unexpected placeholder %q", v.Placeholder)
	}
	if err := v.StartScan(context.Background(), "p1"); err == nil {
		t.Fatalf("expected transport failure")
	}
	if v.Alert != "An error occurred during the scan: Cannot connect to server. Please check if the backend is running." {
		t.Fatalf("unexpected alert %q", v.Alert)
	}
}
