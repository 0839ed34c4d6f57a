package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"minutes/internal/api"
	"minutes/internal/lark"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <meeting-url>",
		Short: "Trigger processing of a meeting recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meetingURL := strings.TrimSpace(args[0])
			if _, err := lark.ExtractMinuteToken(meetingURL); err != nil {
				return fmt.Errorf("not a minutes recording url: %s", meetingURL)
			}

			var ack api.WebhookAck
			payload := map[string]string{"meeting_url": meetingURL}
			if err := ctx.apiRequest(http.MethodPost, "/webhook/meeting", payload, &ack); err != nil {
				return err
			}
			if !ack.Accepted {
				return fmt.Errorf("daemon did not accept the meeting")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Accepted meeting %s for processing\n", ack.SourceToken)
			fmt.Fprintln(cmd.OutOrStdout(), "Watch progress with: minutes runs")
			return nil
		},
	}
}
