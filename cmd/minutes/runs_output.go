package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"minutes/internal/api"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

var labelCaser = cases.Title(language.English)

// stageLabel turns "create_record" into "Create Record" for display.
func stageLabel(stage string) string {
	return labelCaser.String(strings.ReplaceAll(stage, "_", " "))
}

func colorizeStatus(status string, enabled bool) string {
	if !enabled {
		return status
	}
	switch status {
	case "completed":
		return ansiGreen + status + ansiReset
	case "processing", "started":
		return ansiYellow + status + ansiReset
	case "failed":
		return ansiRed + status + ansiReset
	default:
		return status
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatDuration(seconds int64) string {
	if seconds <= 0 {
		return ""
	}
	return (time.Duration(seconds) * time.Second).String()
}

func formatTimestamp(value string) string {
	if value == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}

func writeRunsTable(out io.Writer, views []api.Run) {
	if len(views) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}

	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			strconv.FormatInt(view.ID, 10),
			view.Title,
			colorizeStatus(view.Status, colorize),
			formatDuration(view.DurationSeconds),
			view.MeetingType,
			view.MeetingTopic,
			formatTimestamp(view.CreatedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Status", "Duration", "Type", "Topic", "Created"},
		rows,
		0, 3,
	))
}

func writeRunDetail(out io.Writer, view api.Run) {
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "Run #%d\n", view.ID)
	fmt.Fprintf(out, "  Title:    %s\n", view.Title)
	fmt.Fprintf(out, "  Token:    %s\n", view.SourceToken)
	if view.SourceURL != "" {
		fmt.Fprintf(out, "  URL:      %s\n", view.SourceURL)
	}
	if view.Owner != "" {
		fmt.Fprintf(out, "  Owner:    %s\n", view.Owner)
	}
	fmt.Fprintf(out, "  Status:   %s\n", colorizeStatus(view.Status, colorize))
	if view.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:    %s\n", view.ErrorMessage)
	}
	if duration := formatDuration(view.DurationSeconds); duration != "" {
		fmt.Fprintf(out, "  Duration: %s\n", duration)
	}
	if view.MeetingType != "" {
		fmt.Fprintf(out, "  Type:     %s\n", view.MeetingType)
	}
	if view.MeetingTopic != "" {
		fmt.Fprintf(out, "  Topic:    %s\n", view.MeetingTopic)
	}
	fmt.Fprintf(out, "  Created:  %s\n", formatTimestamp(view.CreatedAt))
	if view.ProcessedAt != nil {
		fmt.Fprintf(out, "  Finished: %s\n", formatTimestamp(*view.ProcessedAt))
	}
}

func writeEventsTable(out io.Writer, events []api.StageEvent) {
	if len(events) == 0 {
		fmt.Fprintln(out, "No stage events recorded")
		return
	}

	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		message := event.Message
		if message == "" {
			message = event.Metadata
		}
		rows = append(rows, []string{
			stageLabel(event.Stage),
			colorizeStatus(event.Status, colorize),
			message,
			formatTimestamp(event.CreatedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Status", "Detail", "At"},
		rows,
	))
}
