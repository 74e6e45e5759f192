package cli

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aura.app/internal/api/apitest"
	"aura.app/internal/session"
)

const (
	testUser     = "ada@example.com"
	testPassword = "correct-horse"
)

type harness struct {
	t         *testing.T
	api       *apitest.Server
	tokenFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		t:         t,
		api:       apitest.New(t),
		tokenFile: filepath.Join(t.TempDir(), "aura", "token"),
	}
}

func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	root := NewRootCommand(h.api.Client())
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--api", h.api.URL, "--token-file", h.tokenFile, "--no-color"}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func (h *harness) signIn() {
	h.t.Helper()
	store := session.New(session.NewFileStorage(h.tokenFile))
	if err := store.Save(h.api.TokenFor(testUser)); err != nil {
		h.t.Fatalf("save token: %v", err)
	}
}

func mustContain(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)
	h.api.AddUser(testUser, testPassword)

	_, _, err := h.run("", "login", "-e", testUser, "-p", "wrong-password")
	if err == nil || err.Error() != "Incorrect email or password" {
		t.Fatalf("unexpected login error: %v", err)
	}

	out, _, err := h.run("", "login", "-e", testUser, "-p", testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	mustContain(t, out, "Logged in as ada@example.com.")

	info, err := os.Stat(h.tokenFile)
	if err != nil {
		t.Fatalf("token file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("token file mode %v", info.Mode().Perm())
	}

	out, _, err = h.run("", "whoami")
	if err != nil || strings.TrimSpace(out) != testUser {
		t.Fatalf("whoami: %q %v", out, err)
	}

	out, _, _ = h.run("", "login", "-e", testUser, "-p", testPassword)
	mustContain(t, out, "Already logged in as ada@example.com.")

	out, errOut, err := h.run("", "logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	mustContain(t, out, "Logged out.")
	if strings.Contains(errOut, "aura login") {
		t.Fatalf("logout should not print the login hint")
	}

	_, errOut, err = h.run("", "whoami")
	if err != errNotLoggedIn {
		t.Fatalf("expected errNotLoggedIn, got %v", err)
	}
	mustContain(t, errOut, "Run 'aura login' to sign in.")
}

func TestLoginPromptsForMissingValues(t *testing.T) {
	h := newHarness(t)
	h.api.AddUser(testUser, testPassword)

	out, errOut, err := h.run(testUser+"\n"+testPassword+"\n", "login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	mustContain(t, errOut, "Email: ", "Password: ")
	mustContain(t, out, "Logged in as ada@example.com.")
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("", "register", "-e", testUser, "-p", "short")
	if err == nil || err.Error() != "String should have at least 8 characters" {
		t.Fatalf("unexpected register error: %v", err)
	}

	out, _, err := h.run("", "register", "-e", testUser, "-p", testPassword)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	mustContain(t, out, "Registration successful! Please login.")

	if _, _, err := h.run("", "register", "-e", testUser, "-p", testPassword); err == nil || err.Error() != "Email already registered" {
		t.Fatalf("unexpected duplicate error: %v", err)
	}
}

func TestProjectCommands(t *testing.T) {
	h := newHarness(t)
	h.signIn()

	out, _, err := h.run("", "projects")
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	mustContain(t, out, "No projects yet. Create one!")

	_, _, err = h.run("", "projects", "add", "Docs", "not-a-url")
	if err == nil || err.Error() != "Invalid URL format or unsafe URL detected" {
		t.Fatalf("unexpected add error: %v", err)
	}

	out, _, err = h.run("", "projects", "add", "Docs", "https://docs.example.com")
	if err != nil {
		t.Fatalf("projects add: %v", err)
	}
	mustContain(t, out, "Created project Docs.", "https://docs.example.com")

	id := h.api.AddProject(testUser, "Blog", "https://blog.example.com")
	out, _, err = h.run("", "projects", "list")
	if err != nil {
		t.Fatalf("projects list: %v", err)
	}
	mustContain(t, out, id, "Blog", "Docs")

	out, errOut, err := h.run("n\n", "projects", "rm", id)
	if err != nil {
		t.Fatalf("projects rm: %v", err)
	}
	mustContain(t, errOut, "Are you sure you want to delete this project? This action cannot be undone. [y/N]")
	mustContain(t, out, "Cancelled.")
	if n := h.api.Calls(http.MethodDelete, "/projects/"+id); n != 0 {
		t.Fatalf("cancel should not delete, got %d calls", n)
	}

	out, _, err = h.run("y\n", "projects", "rm", id)
	if err != nil {
		t.Fatalf("projects rm: %v", err)
	}
	mustContain(t, out, "Project deleted.")
	if n := h.api.Calls(http.MethodDelete, "/projects/"+id); n != 1 {
		t.Fatalf("expected one DELETE, got %d", n)
	}

	h.api.Fail(http.MethodDelete, "/projects/"+id, apitest.Failure{Status: http.StatusInternalServerError})
	if _, _, err := h.run("", "projects", "rm", "--yes", id); err == nil || err.Error() != "Could not delete the project." {
		t.Fatalf("unexpected delete error: %v", err)
	}
}

func TestScanPrintsResults(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	id := h.api.AddProject(testUser, "Docs", "https://docs.example.com")

	out, errOut, err := h.run("", "scan", id)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	mustContain(t, errOut, "Scanning...")
	mustContain(t, out,
		"Accessibility Score: 82 / 100",
		"URL Scanned: https://docs.example.com",
		h.api.URL+"/screenshots/",
		"All Issues Found (1)",
		"[WCAG 1.1.1] Image is missing alternative text",
		`<img src="hero.png">`,
		"AI-Powered Suggestions",
		`"Utilize synergies"`,
		"is complex. Simplify it.",
		"General Fixes",
	)

	h.api.Fail(http.MethodPost, "/scan/"+id, apitest.Failure{Status: http.StatusInternalServerError, Detail: "Scanner crashed"})
	_, _, err = h.run("", "scan", id)
	if err == nil || err.Error() != "An error occurred during the scan: Scanner crashed" {
		t.Fatalf("unexpected scan error: %v", err)
	}
}

func TestResultsWithoutIssues(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	pid := h.api.AddProject(testUser, "Docs", "https://docs.example.com")
	sid := h.api.AddScan(pid, apitest.ScanBody{AccessibilityScore: 100})

	out, _, err := h.run("", "results", sid)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	mustContain(t, out, "All Issues Found (0)", "No issues found! Great job!")
	if strings.Contains(out, "Screenshot") || strings.Contains(out, "Suggestions") {
		t.Fatalf("empty sections should be omitted:\n%s", out)
	}

	if _, _, err := h.run("", "results", "missing"); err == nil || err.Error() != "Scan result not found" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHistoryAndScanRemoval(t *testing.T) {
	h := newHarness(t)
	h.signIn()
	pid := h.api.AddProject(testUser, "Docs", "https://docs.example.com")

	out, _, err := h.run("", "history", pid)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	mustContain(t, out, `Scan History for "Docs"`, "No scans have been run for this project yet.")

	first := h.api.AddScan(pid, apitest.ScanBody{AccessibilityScore: 45})
	second := h.api.AddScan(pid, apitest.ScanBody{AccessibilityScore: 91})
	out, _, _ = h.run("", "history", pid)
	mustContain(t, out, first, second, "45 / 100", "91 / 100")

	out, _, err = h.run("", "scans", "rm", "--yes", second)
	if err != nil {
		t.Fatalf("scans rm: %v", err)
	}
	mustContain(t, out, "Scan result deleted.", first)
	if strings.Contains(out, second) {
		t.Fatalf("deleted scan still listed:\n%s", out)
	}

	if _, _, err := h.run("", "history", "unknown"); err == nil || err.Error() != "Error loading scan history: Project not found" {
		t.Fatalf("unexpected history error: %v", err)
	}
}

func TestExpiredSessionPrintsHint(t *testing.T) {
	h := newHarness(t)
	store := session.New(session.NewFileStorage(h.tokenFile))
	if err := store.Save("stale-token"); err != nil {
		t.Fatal(err)
	}

	_, errOut, err := h.run("", "projects")
	if err == nil || err.Error() != "Error loading projects. Session expired. Please log in again." {
		t.Fatalf("unexpected error: %v", err)
	}
	mustContain(t, errOut, "Run 'aura login' to sign in.")
	if _, ok := store.Token(); ok {
		t.Fatalf("token should be cleared")
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{{"projects"}, {"scan", "p1"}, {"projects", "add", "a", "https://a.example"}} {
		_, errOut, err := h.run("", args...)
		if err != errNotLoggedIn {
			t.Errorf("%v: expected errNotLoggedIn, got %v", args, err)
		}
		mustContain(t, errOut, "Run 'aura login' to sign in.")
	}
	if n := h.api.TotalCalls(); n != 0 {
		t.Fatalf("expected no API calls, got %d", n)
	}
}
