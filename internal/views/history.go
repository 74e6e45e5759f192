package views

import (
	"context"
	"errors"
	"fmt"

	"aura.app/internal/platform"
	"aura.app/internal/render"
)

const (
	msgNoScans        = "No scans have been run for this project yet."
	msgHistoryPrefix  = "Error loading scan history: "
	msgConfirmScan    = "Are you sure you want to delete this scan result?"
	msgDeleteScanErr  = "Could not delete the scan result."
	historyHeaderForm = "Scan History for \"%s\""
)

// ErrScanNotListed rejects deleting a scan that is not in the loaded history.
var ErrScanNotListed = errors.New("views: scan not in history")

// HistoryRow is one past scan.
type HistoryRow struct {
	ScanID string
	Score  int
	When   string
}

// HistoryView lists the scans of one project.
type HistoryView struct {
	env Env

	ProjectID string
	Header    string
	Rows      []*HistoryRow
	// Error replaces the list when the project or its history failed to load.
	Error string
	Alert string
	Modal Modal[*HistoryRow]
}

func NewHistoryView(env Env) *HistoryView {
	return &HistoryView{env: env}
}

// Load fetches the project and then its history. Nothing is shown unless
// both succeed.
func (v *HistoryView) Load(ctx context.Context, projectID string) bool {
	if projectID == "" {
		v.env.Nav.Navigate(platform.To(platform.PageDashboard))
		return false
	}
	v.ProjectID = projectID

	project, err := v.env.API.GetProject(ctx, projectID)
	if err != nil {
		v.fail(err)
		return true
	}
	scans, err := v.env.API.History(ctx, projectID)
	if err != nil {
		v.fail(err)
		return true
	}

	v.Header = fmt.Sprintf(historyHeaderForm, project.ProjectName)
	v.Rows = make([]*HistoryRow, 0, len(scans))
	for _, s := range scans {
		v.Rows = append(v.Rows, &HistoryRow{
			ScanID: s.ID,
			Score:  s.AccessibilityScore,
			When:   render.FormatTime(s.CreatedAt.Time, v.env.Location),
		})
	}
	return true
}

func (v *HistoryView) fail(err error) {
	v.Rows = nil
	v.Error = msgHistoryPrefix + Message(err)
	logFailure("load history", err)
}

// Placeholder is the text shown in place of an empty list.
func (v *HistoryView) Placeholder() string {
	if v.Error == "" && len(v.Rows) == 0 {
		return msgNoScans
	}
	return ""
}

// RequestDelete opens the confirmation dialog for a listed scan.
func (v *HistoryView) RequestDelete(scanID string) bool {
	for _, row := range v.Rows {
		if row.ScanID == scanID {
			v.Modal.Open(scanID, row, msgConfirmScan)
			return true
		}
	}
	return false
}

func (v *HistoryView) CancelDelete() { v.Modal.Cancel() }

// Delete opens and confirms the dialog for scanID in one step. A scan that
// is not listed alerts like a failed delete and issues no call.
func (v *HistoryView) Delete(ctx context.Context, scanID string) error {
	if !v.RequestDelete(scanID) {
		v.Alert = msgDeleteScanErr
		return ErrScanNotListed
	}
	return v.ConfirmDelete(ctx)
}

// ConfirmDelete deletes the pending scan and drops its row without
// refetching the list.
func (v *HistoryView) ConfirmDelete(ctx context.Context) error {
	id, row, ok := v.Modal.Take()
	if !ok {
		return nil
	}
	if err := v.env.API.DeleteScan(ctx, id); err != nil {
		v.Alert = msgDeleteScanErr
		logFailure("delete scan", err)
		return err
	}
	for i, r := range v.Rows {
		if r == row {
			v.Rows = append(v.Rows[:i], v.Rows[i+1:]...)
			break
		}
	}
	return nil
}
