package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/tubedesk/backend/internal/models"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func row(w io.Writer, cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}

// clip shortens s to n runes and flattens newlines for table cells.
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func writeVideos(w io.Writer, videos []models.Video) error {
	tw := newTable(w)
	row(tw, "ID", "YOUTUBE ID", "TITLE", "VIEWS", "LIKES", "COMMENTS", "NOTES")
	for _, v := range videos {
		row(tw, v.ID, v.YouTubeVideoID, clip(v.Title, 48), v.ViewCount, v.LikeCount, v.LocalComments, v.LocalNotes)
	}
	return tw.Flush()
}

func writeVideo(w io.Writer, v models.Video) error {
	tw := newTable(w)
	row(tw, "ID:", v.ID)
	row(tw, "YouTube ID:", v.YouTubeVideoID)
	row(tw, "Title:", v.Title)
	row(tw, "Published:", formatTime(v.PublishedAt))
	row(tw, "Views:", v.ViewCount)
	row(tw, "Likes:", v.LikeCount)
	row(tw, "Comments:", fmt.Sprintf("%d on YouTube, %d stored", v.CommentCount, v.LocalComments))
	row(tw, "Notes:", v.LocalNotes)
	if err := tw.Flush(); err != nil {
		return err
	}
	if v.Description != "" {
		fmt.Fprintf(w, "\n%s\n", v.Description)
	}
	return nil
}

func writeRemoteVideos(w io.Writer, videos []models.VideoDetails) error {
	tw := newTable(w)
	row(tw, "YOUTUBE ID", "TITLE", "VIEWS", "PUBLISHED")
	for _, v := range videos {
		row(tw, v.YouTubeVideoID, clip(v.Title, 48), v.ViewCount, formatTime(v.PublishedAt))
	}
	return tw.Flush()
}

func writeComments(w io.Writer, comments []models.Comment) error {
	tw := newTable(w)
	row(tw, "COMMENT ID", "AUTHOR", "LIKES", "REPLY TO", "TEXT")
	for _, c := range comments {
		parent := "-"
		if c.IsReply {
			parent = c.ParentCommentID
		}
		row(tw, c.YouTubeCommentID, clip(c.AuthorName, 24), c.LikeCount, parent, clip(c.TextDisplay, 60))
	}
	return tw.Flush()
}

func writeNotes(w io.Writer, notes []models.Note) error {
	tw := newTable(w)
	row(tw, "ID", "VIDEO", "PRIORITY", "CATEGORY", "DONE", "TITLE")
	for _, n := range notes {
		category := "-"
		if n.Category != nil {
			category = *n.Category
		}
		video := fmt.Sprint(n.VideoID)
		if n.Video != nil {
			video = clip(n.Video.Title, 24)
		}
		done := "no"
		if n.IsCompleted {
			done = "yes"
		}
		row(tw, n.ID, video, models.PriorityLabel(n.Priority), category, done, clip(n.Title, 48))
	}
	return tw.Flush()
}
