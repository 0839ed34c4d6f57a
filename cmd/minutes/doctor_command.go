package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"minutes/internal/media"
	"minutes/internal/runs"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the pipeline environment is usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failures := 0

			report := func(label string, err error) {
				if err != nil {
					failures++
					fmt.Fprintf(out, "FAIL %s: %v\n", label, err)
					return
				}
				fmt.Fprintf(out, "ok   %s\n", label)
			}

			report("configuration", cfg.Validate())
			report("media tools", media.NewTranscoder(cfg).CheckBinaries())

			report("run store", func() error {
				if err := cfg.EnsureDirectories(); err != nil {
					return err
				}
				store, err := runs.Open(cfg)
				if err != nil {
					return err
				}
				return store.Close()
			}())

			report("lark credentials", func() error {
				if strings.TrimSpace(cfg.Lark.AppID) == "" || strings.TrimSpace(cfg.Lark.AppSecret) == "" {
					return fmt.Errorf("lark.app_id and lark.app_secret are required for downloads")
				}
				return nil
			}())

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
