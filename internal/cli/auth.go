package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"aura.app/internal/views"
)

type credentials struct {
	email    string
	password string
}

func (a *app) credentialFlags(cmd *cobra.Command, c *credentials) {
	cmd.Flags().StringVarP(&c.email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "account password (prompted when empty)")
}

func (a *app) readCredentials(cmd *cobra.Command, c *credentials) error {
	var err error
	if c.email == "" {
		if c.email, err = a.readLine(cmd, "Email: "); err != nil {
			return err
		}
	}
	if c.password == "" {
		if c.password, err = a.readLine(cmd, "Password: "); err != nil {
			return err
		}
	}
	if c.email == "" || c.password == "" {
		return errors.New("email and password are required")
	}
	return nil
}

func (a *app) loginCmd() *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := views.NewAuthView(a.env)
			if !v.Load() {
				user, _ := a.env.Session.Subject()
				fmt.Fprintf(cmd.OutOrStdout(), "Already logged in as %s. Run 'aura logout' first to switch accounts.\n", user)
				return nil
			}
			if err := a.readCredentials(cmd, &c); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := v.Submit(ctx, c.email, c.password); err != nil {
				return failure(v.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), colorGreen("Logged in as "+v.Email+"."))
			return nil
		},
	}
	a.credentialFlags(cmd, &c)
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.readCredentials(cmd, &c); err != nil {
				return err
			}
			v := views.NewAuthView(a.env)
			v.SetMode(views.ModeRegister)
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := v.Submit(ctx, c.email, c.password); err != nil {
				return failure(v.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), colorGreen(v.Success))
			return nil
		},
	}
	a.credentialFlags(cmd, &c)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.quiet = true
			if err := views.NewDashboardView(a.env).Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := views.NewDashboardView(a.env)
			if !v.Authorize() {
				return a.done(cmd, errNotLoggedIn)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.User)
			return nil
		},
	}
}
