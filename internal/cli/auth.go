package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (r *runner) loginCommand() *cobra.Command {
	var credential string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a Google ID token",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, s *session, _ []string) error {
			if credential == "" {
				var err error
				if credential, err = r.opts.ReadSecret("Google ID token: "); err != nil {
					return err
				}
			}
			if strings.TrimSpace(credential) == "" {
				return errors.New("a Google ID token is required")
			}
			if err := s.state.SignIn(ctx, credential); err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			if err := s.state.LoadVideos(ctx); err != nil {
				return fmt.Errorf("load videos: %w", err)
			}
			user := s.state.Snapshot().User
			fmt.Fprintf(s.out, "Signed in as %s <%s>\n", user.Name, user.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&credential, "credential", "", "Google ID token (prompted for when omitted)")
	return cmd
}

func (r *runner) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, s *session, _ []string) error {
			if err := s.state.SignOut(ctx); err != nil {
				fmt.Fprintf(s.errOut, "warning: server logout failed: %v\n", err)
			}
			fmt.Fprintln(s.out, "Signed out")
			return nil
		}),
	}
}

func (r *runner) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, s *session, _ []string) error {
			profile, err := s.api.Me(ctx)
			if err != nil {
				return err
			}
			access := "no"
			if profile.HasYouTubeAccess {
				access = "yes"
			}
			tw := newTable(s.out)
			row(tw, "ID:", profile.User.ID)
			row(tw, "Name:", profile.User.Name)
			row(tw, "Email:", profile.User.Email)
			row(tw, "YouTube access:", access)
			return tw.Flush()
		}),
	}
}

func (r *runner) youtubeTokenCommand() *cobra.Command {
	var refreshToken string
	cmd := &cobra.Command{
		Use:   "youtube-token",
		Short: "Store a YouTube OAuth access token for publishing",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, s *session, _ []string) error {
			accessToken, err := r.opts.ReadSecret("YouTube access token: ")
			if err != nil {
				return err
			}
			if accessToken == "" {
				return errors.New("an access token is required")
			}
			if err := s.api.StoreYouTubeToken(ctx, accessToken, refreshToken); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "YouTube access token stored")
			return nil
		}),
	}
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "optional YouTube refresh token")
	return cmd
}
