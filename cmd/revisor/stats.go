/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lewtec/revisor/internal/domain"
	"github.com/lewtec/revisor/internal/repository"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review progress for a project database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		databaseFile, _ := cmd.Flags().GetString("database")
		if databaseFile == "" {
			return fmt.Errorf("--database flag is required")
		}
		db, err := repository.Open(databaseFile)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		stats, err := repository.NewAnnotationRepository(db).Stats(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "images\t%d\n", stats.Images)
		fmt.Fprintf(out, "annotations\t%d\n", stats.Annotations)
		for _, state := range domain.States {
			fmt.Fprintf(out, "%s\t%d\n", state, stats.ByState[state])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
