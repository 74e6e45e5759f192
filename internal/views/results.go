package views

import (
	"context"
	"html/template"

	"aura.app/internal/api"
	"aura.app/internal/platform"
	"aura.app/internal/render"
)

// ResultsView shows one scan.
type ResultsView struct {
	env Env

	Scan     api.Scan
	Project  api.Project
	Sections []render.Section
	Error    string
}

func NewResultsView(env Env) *ResultsView {
	return &ResultsView{env: env}
}

// Load fetches the scan and then its project for the scanned URL.
func (v *ResultsView) Load(ctx context.Context, scanID string) bool {
	if scanID == "" {
		v.env.Nav.Navigate(platform.To(platform.PageDashboard))
		return false
	}
	scan, err := v.env.API.GetScan(ctx, scanID)
	if err != nil {
		v.fail(err)
		return true
	}
	project, err := v.env.API.GetProject(ctx, scan.ProjectID)
	if err != nil {
		v.fail(err)
		return true
	}
	v.Scan, v.Project = scan, project
	v.Sections = render.Results(scan, project.URL, render.Options{
		APIBase:  v.env.APIBase(),
		Location: v.env.Location,
	})
	return true
}

func (v *ResultsView) fail(err error) {
	v.Sections = nil
	v.Error = Message(err)
	logFailure("load results", err)
}

// HTML is the page body: the result sections or the error block.
func (v *ResultsView) HTML() template.HTML {
	if v.Error != "" {
		return render.ErrorBlock(v.Error, string(platform.PageDashboard))
	}
	return render.HTML(v.Sections)
}
