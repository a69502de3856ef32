package main

import (
	"fmt"

	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/careerprep/db"
	"github.com/garnizeh/careerprep/internal/db"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			conn, err := db.New(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Migrate(cmd.Context(), conn, dbfs.Migrations); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date.\n", cfg.DatabasePath)
			return nil
		},
	}
}

func newMigrationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrations",
		Short: "List applied schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			conn, err := db.New(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer conn.Close()

			versions, err := db.Applied(cmd.Context(), conn)
			if err != nil {
				return fmt.Errorf("list migrations: %w", err)
			}
			if len(versions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied.")
				return nil
			}
			for _, v := range versions {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

func newBackupCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent snapshot of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.DatabasePath + ".bak"
			}
			conn, err := db.New(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Backup(cmd.Context(), conn, out); err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database backup written to %s.\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Backup file (default <database>.bak)")
	return cmd
}

func newRestoreCmd(opts *rootOptions) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the database with a backup; the server must be stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := db.Restore(in, cfg.DatabasePath); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s restored from %s.\n", cfg.DatabasePath, in)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "Backup file to restore")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
