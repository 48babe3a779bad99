// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/cinelog/internal/logging"
	"github.com/tomtom215/cinelog/internal/reaper"
)

func newReapCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Delete expired sessions once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			count, err := reaper.New(a.db, a.cfg.Session.ReapInterval, logging.Logger()).RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("reap failed: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired session(s)\n", count)
			return err
		},
	}
}
