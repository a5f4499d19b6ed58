package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"leadflow-workers/internal/distribution"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Show which phone the next lead would go to",
	RunE: func(cmd *cobra.Command, args []string) error {
		franchiseID, _ := cmd.Flags().GetString("franchise")
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
		franchiseID, err = s.engine.Selector.ResolveFranchise(cmd.Context(), franchiseID, serverID)
		if err != nil {
			return err
		}
		sel, err := s.engine.Selector.Select(cmd.Context(), franchiseID, date)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), sel)
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Select a phone and record the lead on it in one step",
	RunE: func(cmd *cobra.Command, args []string) error {
		franchiseID, _ := cmd.Flags().GetString("franchise")
		serverID, _ := cmd.Flags().GetString("server")
		leadID, _ := cmd.Flags().GetString("lead")
		date, _ := cmd.Flags().GetString("date")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if date, err = s.engine.Calendar.ResolveDate(date); err != nil {
			return err
		}
		franchiseID, err = s.engine.Selector.ResolveFranchise(cmd.Context(), franchiseID, serverID)
		if err != nil {
			return err
		}
		res, err := s.engine.Selector.Claim(cmd.Context(), distribution.ClaimRequest{
			FranchiseID: franchiseID,
			LeadID:      leadID,
			ServerID:    serverID,
			Date:        date,
		})
		if err != nil {
			return err
		}
		if res.Duplicate {
			fmt.Fprintf(cmd.ErrOrStderr(), "lead %s was already assigned\n", leadID)
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var distributionCmd = &cobra.Command{
	Use:   "distribution",
	Short: "Print how a day's assignments spread across franchises",
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
		report, err := s.engine.Store.DistributionReport(cmd.Context(), date)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	for _, c := range []*cobra.Command{selectCmd, claimCmd} {
		c.Flags().String("franchise", "", "franchise id")
		c.Flags().String("server", "", "server id, routes to its default franchise when --franchise is empty")
		c.Flags().String("date", "", "business date YYYY-MM-DD (default today)")
	}
	claimCmd.Flags().String("lead", "", "lead id")
	_ = claimCmd.MarkFlagRequired("lead")

	distributionCmd.Flags().String("date", "", "business date YYYY-MM-DD (default today)")
}
