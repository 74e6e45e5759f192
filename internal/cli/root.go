// Package cli is the terminal front end of the Aura console. Commands drive
// the same view controllers as the web console, with the token kept in a
// file and navigations turned into hints.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aura.app/internal/api"
	"aura.app/internal/config"
	"aura.app/internal/gateway"
	"aura.app/internal/obs"
	"aura.app/internal/platform"
	"aura.app/internal/session"
	"aura.app/internal/views"
)

var errNotLoggedIn = errors.New("not logged in")

type app struct {
	apiBase   string
	tokenFile string
	timeout   time.Duration
	debug     bool
	noColor   bool

	doer   platform.Doer
	nav    *platform.Recorder
	env    views.Env
	in     *bufio.Reader
	quiet  bool
	loaded bool
}

// NewRootCommand builds the aura command tree. doer may be nil to use a
// plain http.Client.
func NewRootCommand(doer platform.Doer) *cobra.Command {
	a := &app{doer: doer}
	if a.doer == nil {
		a.doer = &http.Client{}
	}
	cfg := config.Default()
	if loaded, err := config.Load(); err == nil {
		cfg = loaded
	}

	root := &cobra.Command{
		Use:           "aura",
		Short:         "Aura - web accessibility scans from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = gateway.LocalAPIBase
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.apiBase, "api", apiBase, "Aura API base URL")
	flags.StringVar(&a.tokenFile, "token-file", cfg.TokenFile, "where the session token is kept")
	flags.DurationVar(&a.timeout, "timeout", cfg.APITimeout, "bound on each command's API calls (0: none)")
	flags.BoolVar(&a.debug, "debug", cfg.Debug, "log API failures to stderr")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		a.loginCmd(), a.registerCmd(), a.logoutCmd(), a.whoamiCmd(),
		a.projectsCmd(), a.scanCmd(), a.historyCmd(), a.resultsCmd(), a.scansCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCommand(nil)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), colorRed("Error:"), err)
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.loaded {
		return nil
	}
	if a.noColor {
		color.NoColor = true
	}
	if a.debug {
		logCfg := zap.NewDevelopmentConfig()
		logCfg.OutputPaths = []string{"stderr"}
		l, err := logCfg.Build()
		if err != nil {
			return err
		}
		obs.SetLogger(l)
	} else {
		obs.SetLogger(zap.NewNop())
	}
	a.nav = &platform.Recorder{}
	a.env = views.NewEnv(strings.TrimRight(a.apiBase, "/"), a.doer, session.NewFileStorage(a.tokenFile), a.nav)
	a.in = bufio.NewReader(cmd.InOrStdin())
	a.loaded = true
	return nil
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return api.WithTimeout(ctx, a.timeout)
}

// done reports a pending navigation to the login page as a hint.
func (a *app) done(cmd *cobra.Command, err error) error {
	if loc, ok := a.nav.Last(); ok && loc.Page == platform.PageLogin && !a.quiet {
		fmt.Fprintln(cmd.ErrOrStderr(), colorYellow("Run 'aura login' to sign in."))
	}
	return err
}

func (a *app) readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// confirm asks the modal's question unless skip is set.
func (a *app) confirm(cmd *cobra.Command, question string, skip bool) bool {
	if skip {
		return true
	}
	answer, err := a.readLine(cmd, question+" [y/N] ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func failure(msg string) error {
	if msg == "" {
		msg = "request failed"
	}
	return errors.New(msg)
}
