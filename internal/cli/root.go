// Package cli implements tubedeskctl, the terminal dashboard for TubeDesk.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tubedesk/backend/internal/client"
	"github.com/tubedesk/backend/internal/dashboard"
	"github.com/tubedesk/backend/internal/models"
)

// Options wires the command tree to its environment. Zero values fall back
// to the process stdio and the real terminal.
type Options struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// ReadSecret reads a value without echo after printing prompt.
	ReadSecret func(prompt string) (string, error)
	HTTPClient *http.Client
}

// session is everything a subcommand needs, opened per invocation.
type session struct {
	settings Settings
	api      *client.Client
	state    *dashboard.State
	out      io.Writer
	errOut   io.Writer
}

type runner struct {
	opts         Options
	settingsPath string
	baseURL      string
}

// NewRootCommand builds the tubedeskctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	r := &runner{opts: opts}
	if r.opts.ReadSecret == nil {
		r.opts.ReadSecret = r.readSecret
	}

	root := &cobra.Command{
		Use:           "tubedeskctl",
		Short:         "Manage your TubeDesk dashboard from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	root.PersistentFlags().StringVar(&r.settingsPath, "config", "", "settings file (default $XDG_CONFIG_HOME/tubedesk/tubedeskctl.toml)")
	root.PersistentFlags().StringVar(&r.baseURL, "api-url", "", "TubeDesk server URL, overrides base_url")

	root.AddCommand(
		r.loginCommand(),
		r.logoutCommand(),
		r.whoamiCommand(),
		r.youtubeTokenCommand(),
		r.videosCommand(),
		r.commentsCommand(),
		r.notesCommand(),
	)
	return root
}

// open loads settings and the persisted dashboard state.
func (r *runner) open() (*session, error) {
	path := r.settingsPath
	if path == "" {
		var err error
		if path, err = DefaultSettingsPath(); err != nil {
			return nil, err
		}
	}
	settings, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	if r.baseURL != "" {
		settings.BaseURL = r.baseURL
	}

	httpClient := r.opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: settings.RequestTimeout}
	}

	s := &session{settings: settings, out: r.opts.Out, errOut: r.opts.Err}
	s.api = client.New(settings.BaseURL,
		client.WithHTTPClient(httpClient),
		client.WithTokenListener(func(tokens models.TokenPair) {
			if s.state != nil {
				s.state.SetTokens(tokens)
			}
		}),
	)
	s.state = dashboard.New(s.api)
	if err := s.state.Load(settings.StatePath); err != nil {
		return nil, err
	}
	s.api.SetTokens(s.state.Snapshot().Tokens)
	return s, nil
}

type action func(ctx context.Context, s *session, args []string) error

// run opens a session for fn and saves the state afterwards, also when fn
// failed, so refreshed tokens are not lost.
func (r *runner) run(fn action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := r.open()
		if err != nil {
			return err
		}
		runErr := fn(cmd.Context(), s, args)
		if err := s.state.Save(s.settings.StatePath); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	}
}

// authed is run for commands that require a signed-in user.
func (r *runner) authed(fn action) func(*cobra.Command, []string) error {
	return r.run(func(ctx context.Context, s *session, args []string) error {
		if !s.state.SignedIn() {
			return errors.New("not signed in; run tubedeskctl login")
		}
		return fn(ctx, s, args)
	})
}

func (r *runner) readSecret(prompt string) (string, error) {
	fmt.Fprint(r.opts.Err, prompt)
	if f, ok := r.opts.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.opts.Err)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(r.opts.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", what, raw)
	}
	return id, nil
}
