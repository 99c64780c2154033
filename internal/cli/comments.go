package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (r *runner) commentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Read and write comments on dashboard videos",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <video-id>",
			Short: "List stored comments of a video",
			Args:  cobra.ExactArgs(1),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				id, err := parseID(args[0], "video id")
				if err != nil {
					return err
				}
				if err := s.state.SelectVideo(ctx, id); err != nil {
					return err
				}
				return writeComments(s.out, s.state.Comments())
			}),
		},
		r.commentAddCommand(),
		&cobra.Command{
			Use:   "reply <comment-id> <text>",
			Short: "Reply on YouTube to a published comment",
			Args:  cobra.MinimumNArgs(2),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				reply, err := s.state.Reply(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Replied with %s\n", reply.YouTubeCommentID)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <comment-id>",
			Short: "Delete a comment, on YouTube too when it was published",
			Args:  cobra.ExactArgs(1),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				if err := s.state.DeleteComment(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Deleted comment %s\n", args[0])
				return nil
			}),
		},
	)
	return cmd
}

func (r *runner) commentAddCommand() *cobra.Command {
	var publish bool
	cmd := &cobra.Command{
		Use:   "add <video-id> <text>",
		Short: "Add a comment, kept locally unless --publish is set",
		Args:  cobra.MinimumNArgs(2),
		RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
			id, err := parseID(args[0], "video id")
			if err != nil {
				return err
			}
			if err := s.state.SelectVideo(ctx, id); err != nil {
				return err
			}
			comment, err := s.state.AddComment(ctx, strings.Join(args[1:], " "), publish)
			if err != nil {
				return err
			}
			where := "locally"
			if !comment.IsLocal() {
				where = "on YouTube"
			}
			fmt.Fprintf(s.out, "Added comment %s %s\n", comment.YouTubeCommentID, where)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&publish, "publish", false, "publish the comment to YouTube")
	return cmd
}
