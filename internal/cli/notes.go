package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tubedesk/backend/internal/client"
	"github.com/tubedesk/backend/internal/models"
)

type noteFlags struct {
	title    string
	content  string
	category string
	priority int
}

func (f *noteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "note title")
	cmd.Flags().StringVar(&f.content, "content", "", "note body")
	cmd.Flags().StringVar(&f.category, "category", "", "one of "+strings.Join(models.NoteCategories, ", "))
	cmd.Flags().IntVar(&f.priority, "priority", models.NotePriorityDefault, "1 (low) to 5 (critical)")
}

func (f *noteFlags) patch(cmd *cobra.Command) models.NotePatch {
	var p models.NotePatch
	if cmd.Flags().Changed("title") {
		p.Title = &f.title
	}
	if cmd.Flags().Changed("content") {
		p.Content = &f.content
	}
	if cmd.Flags().Changed("category") {
		p.Category = &f.category
	}
	if cmd.Flags().Changed("priority") {
		p.Priority = &f.priority
	}
	return p
}

func (r *runner) notesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note"},
		Short:   "Manage personal notes on dashboard videos",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <video-id>",
			Short: "List the notes of a video",
			Args:  cobra.ExactArgs(1),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				id, err := parseID(args[0], "video id")
				if err != nil {
					return err
				}
				if err := s.state.SelectVideo(ctx, id); err != nil {
					return err
				}
				return writeNotes(s.out, s.state.Notes())
			}),
		},
		r.noteAddCommand(),
		r.noteEditCommand(),
		r.noteDoneCommand(),
		&cobra.Command{
			Use:   "delete <note-id>",
			Short: "Delete a note",
			Args:  cobra.ExactArgs(1),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				id, err := parseID(args[0], "note id")
				if err != nil {
					return err
				}
				if err := s.state.DeleteNote(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Deleted note %d\n", id)
				return nil
			}),
		},
		r.noteSearchCommand(),
		&cobra.Command{
			Use:   "category <category>",
			Short: "List notes across videos filed under a category",
			Args:  cobra.ExactArgs(1),
			RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
				notes, err := s.api.NotesByCategory(ctx, args[0])
				if err != nil {
					return err
				}
				return writeNotes(s.out, notes)
			}),
		},
	)
	return cmd
}

func (r *runner) noteAddCommand() *cobra.Command {
	var flags noteFlags
	cmd := &cobra.Command{
		Use:   "add <video-id>",
		Short: "Add a note to a video",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = r.authed(func(ctx context.Context, s *session, args []string) error {
		id, err := parseID(args[0], "video id")
		if err != nil {
			return err
		}
		p := flags.patch(cmd)
		note := client.NewNote{VideoID: id, Title: flags.title, Content: flags.content, Priority: p.Priority}
		if p.Category != nil && *p.Category != "" {
			note.Category = p.Category
		}
		if err := s.state.SelectVideo(ctx, id); err != nil {
			return err
		}
		created, err := s.state.AddNote(ctx, note)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Added note %d (%s)\n", created.ID, models.PriorityLabel(created.Priority))
		return nil
	})
	flags.register(cmd)
	return cmd
}

func (r *runner) noteEditCommand() *cobra.Command {
	var flags noteFlags
	cmd := &cobra.Command{
		Use:   "edit <note-id>",
		Short: "Change fields of a note; --category \"\" clears the category",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = r.authed(func(ctx context.Context, s *session, args []string) error {
		id, err := parseID(args[0], "note id")
		if err != nil {
			return err
		}
		patch := flags.patch(cmd)
		if patch.Empty() {
			return errors.New("nothing to update; pass --title, --content, --category or --priority")
		}
		if _, err := s.state.UpdateNote(ctx, id, patch); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Updated note %d\n", id)
		return nil
	})
	flags.register(cmd)
	return cmd
}

func (r *runner) noteDoneCommand() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "done <note-id>",
		Short: "Mark a note completed",
		Args:  cobra.ExactArgs(1),
		RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
			id, err := parseID(args[0], "note id")
			if err != nil {
				return err
			}
			completed := !undo
			if _, err := s.state.UpdateNote(ctx, id, models.NotePatch{IsCompleted: &completed}); err != nil {
				return err
			}
			if completed {
				fmt.Fprintf(s.out, "Completed note %d\n", id)
			} else {
				fmt.Fprintf(s.out, "Reopened note %d\n", id)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the note as not completed")
	return cmd
}

func (r *runner) noteSearchCommand() *cobra.Command {
	var videoID int64
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search note titles and contents",
		Args:  cobra.MinimumNArgs(1),
		RunE: r.authed(func(ctx context.Context, s *session, args []string) error {
			notes, err := s.api.SearchNotes(ctx, strings.Join(args, " "), videoID)
			if err != nil {
				return err
			}
			return writeNotes(s.out, notes)
		}),
	}
	cmd.Flags().Int64Var(&videoID, "video", 0, "limit the search to one video")
	return cmd
}
