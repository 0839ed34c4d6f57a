package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"minutes/internal/api"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/runs"
			if len(statusFilters) > 0 {
				query := url.Values{}
				for _, status := range statusFilters {
					query.Add("status", strings.TrimSpace(status))
				}
				path += "?" + query.Encode()
			}

			var list api.RunListResponse
			if err := ctx.apiRequest(http.MethodGet, path, nil, &list); err != nil {
				return err
			}
			writeRunsTable(cmd.OutOrStdout(), list.Runs)
			return nil
		},
	}
	runsCmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (processing, completed, failed)")

	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsEventsCommand(ctx))
	return runsCmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			var single api.RunResponse
			if err := ctx.apiRequest(http.MethodGet, fmt.Sprintf("/api/runs/%d", id), nil, &single); err != nil {
				return err
			}
			writeRunDetail(cmd.OutOrStdout(), single.Run)
			return nil
		},
	}
}

func newRunsEventsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "events <run-id>",
		Short: "Show the stage audit trail for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			var events api.EventListResponse
			if err := ctx.apiRequest(http.MethodGet, fmt.Sprintf("/api/runs/%d/events", id), nil, &events); err != nil {
				return err
			}
			writeEventsTable(cmd.OutOrStdout(), events.Events)
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show daemon run counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var health api.Health
			if err := ctx.apiRequest(http.MethodGet, "/healthz", nil, &health); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:     %s\n", health.Status)
			fmt.Fprintf(out, "Total:      %d\n", health.Total)
			fmt.Fprintf(out, "Processing: %d\n", health.Processing)
			fmt.Fprintf(out, "Completed:  %d\n", health.Completed)
			fmt.Fprintf(out, "Failed:     %d\n", health.Failed)
			return nil
		},
	}
}
