package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"aura.app/internal/views"
)

func (a *app) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List and manage projects",
		Args:    cobra.NoArgs,
		RunE:    a.listProjects,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List projects",
			Args:  cobra.NoArgs,
			RunE:  a.listProjects,
		},
		&cobra.Command{
			Use:   "add <name> <url>",
			Short: "Create a project",
			Args:  cobra.ExactArgs(2),
			RunE:  a.addProject,
		},
		a.removeProjectCmd(),
	)
	return cmd
}

func (a *app) listProjects(cmd *cobra.Command, args []string) error {
	ctx, cancel := a.context(cmd)
	defer cancel()
	v := views.NewDashboardView(a.env)
	if !v.Authorize() {
		return a.done(cmd, errNotLoggedIn)
	}
	if err := v.Refresh(ctx); err != nil {
		return a.done(cmd, fmt.Errorf("%s %s", v.Placeholder, views.Message(err)))
	}
	printProjects(cmd.OutOrStdout(), v)
	return nil
}

func (a *app) addProject(cmd *cobra.Command, args []string) error {
	ctx, cancel := a.context(cmd)
	defer cancel()
	v := views.NewDashboardView(a.env)
	if !v.Authorize() {
		return a.done(cmd, errNotLoggedIn)
	}
	// a failed refresh after a successful create leaves FormError empty
	if err := v.CreateProject(ctx, args[0], args[1]); err != nil && v.FormError != "" {
		return a.done(cmd, failure(v.FormError))
	}
	fmt.Fprintln(cmd.OutOrStdout(), colorGreen("Created project "+args[0]+"."))
	printProjects(cmd.OutOrStdout(), v)
	return nil
}

func (a *app) removeProjectCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <projectId>",
		Aliases: []string{"delete"},
		Short:   "Delete a project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			v := views.NewDashboardView(a.env)
			if !v.Authorize() {
				return a.done(cmd, errNotLoggedIn)
			}
			if !v.RequestDelete(args[0]) {
				return errors.New("a project id is required")
			}
			if !a.confirm(cmd, v.Modal.Text(), yes) {
				v.CancelDelete()
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if err := v.ConfirmDelete(ctx); err != nil && v.Alert != "" {
				return a.done(cmd, failure(v.Alert))
			}
			fmt.Fprintln(cmd.OutOrStdout(), colorGreen("Project deleted."))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
