package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"aura.app/internal/platform"
	"aura.app/internal/views"
)

func (a *app) scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <projectId>",
		Short: "Scan a project's URL and show the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			v := views.NewDashboardView(a.env)
			if !v.Authorize() {
				return a.done(cmd, errNotLoggedIn)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), colorFaint(views.ScanningLabel))
			if err := v.StartScan(ctx, args[0]); err != nil {
				return a.done(cmd, failure(v.Alert))
			}
			loc, _ := a.nav.Last()
			if loc.Page != platform.PageResults {
				return a.done(cmd, errors.New("scan finished without a result"))
			}
			return a.showResults(cmd, loc.Query.Get("scanId"))
		},
	}
}

func (a *app) resultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <scanId>",
		Short: "Show the results of a scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showResults(cmd, args[0])
		},
	}
}

func (a *app) showResults(cmd *cobra.Command, scanID string) error {
	ctx, cancel := a.context(cmd)
	defer cancel()
	v := views.NewResultsView(a.env)
	if !v.Load(ctx, scanID) {
		return errors.New("a scan id is required")
	}
	if v.Error != "" {
		return a.done(cmd, failure(v.Error))
	}
	printResults(cmd.OutOrStdout(), v, a.env.APIBase(), a.env.Location)
	return nil
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <projectId>",
		Short: "List the scans of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			v := views.NewHistoryView(a.env)
			if !v.Load(ctx, args[0]) {
				return errors.New("a project id is required")
			}
			if v.Error != "" {
				return a.done(cmd, failure(v.Error))
			}
			printHistory(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func (a *app) scansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "Manage scan results",
	}
	var yes bool
	rm := &cobra.Command{
		Use:     "rm <scanId>",
		Aliases: []string{"delete"},
		Short:   "Delete a scan result",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			scanID := args[0]

			scan, err := a.env.API.GetScan(ctx, scanID)
			if err != nil {
				return a.done(cmd, failure(views.Message(err)))
			}
			v := views.NewHistoryView(a.env)
			v.Load(ctx, scan.ProjectID)
			if v.Error != "" {
				return a.done(cmd, failure(v.Error))
			}
			if !v.RequestDelete(scanID) {
				return fmt.Errorf("scan %s is not in the project's history", scanID)
			}
			if !a.confirm(cmd, v.Modal.Text(), yes) {
				v.CancelDelete()
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if err := v.ConfirmDelete(ctx); err != nil {
				return a.done(cmd, failure(v.Alert))
			}
			fmt.Fprintln(cmd.OutOrStdout(), colorGreen("Scan result deleted."))
			printHistory(cmd.OutOrStdout(), v)
			return nil
		},
	}
	rm.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.AddCommand(rm)
	return cmd
}
