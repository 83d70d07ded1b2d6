package main

import (
	"fmt"
	"os"

	"manuscript-review-api/config"
	"manuscript-review-api/models"
	"manuscript-review-api/services"
	"manuscript-review-api/store"

	"github.com/spf13/cobra"
)

// systemActor is the identity recorded on writes made from the CLI.
var systemActor = models.CurrentUser{ID: "system", Role: models.RoleAdmin}

type openFunc func() (store.Store, error)

func newRootCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "manuscriptctl",
		Short:        "Operator tasks for the manuscript review portal",
		SilenceUsage: true,
	}

	cmd.AddCommand(newMigrateCmd(open))
	cmd.AddCommand(newSweepCmd(open))
	cmd.AddCommand(newRecomputeCmd(open))

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	return cmd
}

func newService(st store.Store) *services.ManuscriptService {
	notifications := services.NewNotificationService(st, st)
	return services.NewManuscriptService(st, notifications, config.LoadWorkflowSettings()).RunEffectsInline()
}

func newMigrateCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			m, ok := st.(store.Migrator)
			if !ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "store has no schema to migrate")
				return nil
			}
			if err := m.AutoMigrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema migrated")
			return nil
		},
	}
}

func newSweepCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-deadlines",
		Short: "Send due reviewer and revision deadline reminders once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			sum, err := newService(st).SendDeadlineReminders(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scanned %d manuscripts: %d reviewer and %d author reminders sent, %d failed\n",
				sum.Scanned, sum.Reviewers, sum.Authors, sum.Failed)
			return nil
		},
	}
}

func newRecomputeCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <manuscript-id>",
		Short: "Re-derive a manuscript's status from its reviewer state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			m, err := newService(st).Recompute(cmd.Context(), args[0], systemActor)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (revision %d)\n", m.ID, m.Status, m.Revision)
			return nil
		},
	}
}
