package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tubedesk/backend/internal/models"
	"github.com/tubedesk/backend/internal/youtube"
)

func (r *runner) videosCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "videos",
		Aliases: []string{"video"},
		Short:   "List, sync and edit dashboard videos",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List dashboard videos",
			Args:  cobra.NoArgs,
			RunE: r.authed(func(ctx context.Context, s *session, _ []string) error {
				if err := s.state.LoadVideos(ctx); err != nil {
					return err
				}
				return writeVideos(s.out, s.state.Videos())
			}),
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a video, refreshed from YouTube when possible",
			Args:  cobra.ExactArgs(1),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				id, err := parseID(args[0], "video id")
				if err != nil {
					return err
				}
				result, err := s.api.GetVideo(ctx, id)
				if err != nil {
					return err
				}
				if result.Warning != "" {
					fmt.Fprintf(s.errOut, "warning: %s\n", result.Warning)
				}
				return writeVideo(s.out, result.Video)
			}),
		},
		&cobra.Command{
			Use:   "sync <youtube-id-or-url>",
			Short: "Add one of your YouTube videos to the dashboard",
			Args:  cobra.ExactArgs(1),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				videoID, err := youtube.ExtractVideoID(args[0])
				if err != nil {
					return fmt.Errorf("%q is not a YouTube video id or URL", args[0])
				}
				video, err := s.state.SyncVideo(ctx, videoID)
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Synced video %d: %s\n", video.ID, video.Title)
				return nil
			}),
		},
		r.videoEditCommand(),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Remove a video and its comments and notes from the dashboard",
			Args:  cobra.ExactArgs(1),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				id, err := parseID(args[0], "video id")
				if err != nil {
					return err
				}
				if err := s.state.DeleteVideo(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Removed video %d\n", id)
				return nil
			}),
		},
		r.videoRemoteCommand(),
		&cobra.Command{
			Use:   "publish <id>",
			Short: "Push the stored title and description to YouTube",
			Args:  cobra.ExactArgs(1),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				id, err := parseID(args[0], "video id")
				if err != nil {
					return err
				}
				video, err := s.api.PublishVideo(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Published video %d to YouTube\n", video.ID)
				return nil
			}),
		},
	)
	return cmd
}

func (r *runner) videoEditCommand() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit the local title or description of a video",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = r.authed(func(ctx context.Context, s *session, args []string) error {
		id, err := parseID(args[0], "video id")
		if err != nil {
			return err
		}
		var patch models.VideoPatch
		if cmd.Flags().Changed("title") {
			patch.Title = &title
		}
		if cmd.Flags().Changed("description") {
			patch.Description = &description
		}
		if patch.Empty() {
			return errors.New("nothing to update; pass --title or --description")
		}
		if err := s.state.UpdateVideo(ctx, id, patch); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Updated video %d\n", id)
		return nil
	})
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

func (r *runner) videoRemoteCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "List your uploads on YouTube",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(ctx context.Context, s *session, _ []string) error {
			videos, err := s.api.RemoteVideos(ctx, limit)
			if err != nil {
				return err
			}
			return writeRemoteVideos(s.out, videos)
		}),
	}
	cmd.Flags().IntVar(&limit, "max", 0, "number of uploads to list (1-50)")
	return cmd
}
