package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"leadflow-workers/internal/rollup"
	"leadflow-workers/internal/store/elastic"
)

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Recompute one server's daily record",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverID, _ := cmd.Flags().GetString("server")
		date, _ := cmd.Flags().GetString("date")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if date, err = s.engine.Calendar.ResolveDate(date); err != nil {
			return err
		}
		rec, err := s.engine.Rollup.Run(cmd.Context(), rollup.Request{
			ServerID: serverID,
			Date:     date,
			Finalize: s.engine.Calendar.IsPast(date),
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

var rollupAllCmd = &cobra.Command{
	Use:   "rollup-all",
	Short: "Recompute the daily record of every active server",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if date, err = s.engine.Calendar.ResolveDate(date); err != nil {
			return err
		}
		summary, err := s.engine.Rollup.RunAll(cmd.Context(), date, s.engine.Calendar.IsPast(date))
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d server(s) failed", summary.Failed)
		}
		return nil
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Search indexed daily records",
	RunE: func(cmd *cobra.Command, args []string) error {
		var q elastic.RecordQuery
		q.ServerID, _ = cmd.Flags().GetString("server")
		q.From, _ = cmd.Flags().GetString("from")
		q.To, _ = cmd.Flags().GetString("to")
		q.Size, _ = cmd.Flags().GetInt("size")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if s.engine.Records == nil {
			return fmt.Errorf("elasticsearch is disabled or unreachable")
		}
		recs, total, err := s.engine.Records.Search(cmd.Context(), q)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"total":   total,
			"records": recs,
		})
	},
}

func init() {
	rollupCmd.Flags().String("server", "", "server id")
	rollupCmd.Flags().String("date", "", "business date YYYY-MM-DD (default today)")
	_ = rollupCmd.MarkFlagRequired("server")

	rollupAllCmd.Flags().String("date", "", "business date YYYY-MM-DD (default today)")

	recordsCmd.Flags().String("server", "", "server id")
	recordsCmd.Flags().String("from", "", "first date, inclusive")
	recordsCmd.Flags().String("to", "", "last date, inclusive")
	recordsCmd.Flags().Int("size", 31, "maximum records")
}
