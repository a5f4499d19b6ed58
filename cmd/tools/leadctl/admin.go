package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"leadflow-workers/internal/common/database"
	"leadflow-workers/internal/models"
)

var phoneCmd = &cobra.Command{
	Use:   "phone",
	Short: "Activate or deactivate a phone",
}

func phoneToggle(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <phone-id>",
		Short: use + " a phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.engine.Store.SetPhoneActive(cmd.Context(), args[0], active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "phone %s active=%t\n", args[0], active)
			return nil
		},
	}
}

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage phone lead goals",
}

var goalSetCmd = &cobra.Command{
	Use:   "set <phone-id>",
	Short: "Set the daily, weekly and monthly goal of a phone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		daily, _ := cmd.Flags().GetInt("daily")
		weekly, _ := cmd.Flags().GetInt("weekly")
		monthly, _ := cmd.Flags().GetInt("monthly")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		g := models.Goal{PhoneID: args[0], DailyGoal: daily, WeeklyGoal: weekly, MonthlyGoal: monthly}
		if err := s.engine.Store.SetGoal(cmd.Context(), g); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), g)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			path = cfg.Database.Postgres.MigrationsPath
		}

		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := database.RunMigrations(pg.GetDB(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrations in %s applied\n", path)
		return nil
	},
}

func init() {
	phoneCmd.AddCommand(phoneToggle("activate", true), phoneToggle("deactivate", false))

	goalSetCmd.Flags().Int("daily", models.DefaultGoal.DailyGoal, "daily goal")
	goalSetCmd.Flags().Int("weekly", models.DefaultGoal.WeeklyGoal, "weekly goal")
	goalSetCmd.Flags().Int("monthly", models.DefaultGoal.MonthlyGoal, "monthly goal")
	goalCmd.AddCommand(goalSetCmd)

	migrateCmd.Flags().String("path", "", "migrations directory (default from config)")
}
