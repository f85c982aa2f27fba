/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lewtec/revisor/internal/imagesource"
	"github.com/lewtec/revisor/internal/repository"
	"github.com/lewtec/revisor/review"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "revisor [folder|config.yaml]",
	Short: "Review machine-suggested image annotations",
	Long: strings.TrimSpace(`
Serve a web interface to review, correct and verify machine-suggested
object detections over a folder of images, and export the result in
training formats.
    `),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, databaseFile, imagesDir, err := resolveProject(cmd, args)
		if err != nil {
			return err
		}

		config, err := review.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := repository.Open(databaseFile)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		repo := repository.NewAnnotationRepository(db)

		source := imagesource.New(imagesDir)
		if err := source.Scan(cmd.Context()); err != nil {
			return fmt.Errorf("failed to scan images: %w", err)
		}

		app := review.NewApp(source, repo, config, nil)
		defer app.Saver().Flush()

		addr, _ := cmd.Flags().GetString("addr")

		log.Printf("Configuration: %s", configFile)
		log.Printf("Database: %s", databaseFile)
		log.Printf("Images: %s (%d scanned)", imagesDir, len(source.List()))
		log.Printf("Classes configured: %d", len(config.Classes))
		for _, cls := range config.Classes {
			log.Printf("  - %s", cls.Name)
		}
		log.Printf("Starting server on: %s", addr)

		return http.ListenAndServe(addr, app.Handler())
	},
}

// resolveProject turns the positional argument or flags into the three
// project paths, creating a default config in folder mode.
func resolveProject(cmd *cobra.Command, args []string) (configFile, databaseFile, imagesDir string, err error) {
	if len(args) == 1 {
		arg := args[0]

		if stat, statErr := os.Stat(arg); statErr == nil && stat.IsDir() {
			// It's a folder - initialize it
			configFile = filepath.Join(arg, "config.yaml")
			databaseFile = filepath.Join(arg, "revisor.db")
			imagesDir = arg

			if _, statErr := os.Stat(configFile); os.IsNotExist(statErr) {
				log.Printf("Creating default config: %s", configFile)
				if err = review.WriteSample(configFile); err != nil {
					return "", "", "", fmt.Errorf("failed to create config: %w", err)
				}
			}
			return configFile, databaseFile, imagesDir, nil
		}

		// Assume it's a config file
		configFile = arg
	} else {
		configFile, err = cmd.Flags().GetString("config")
		if err != nil || configFile == "" {
			return "", "", "", fmt.Errorf("either provide a folder/config argument or use --config flag")
		}
	}

	databaseFile, err = cmd.Flags().GetString("database")
	if err != nil || databaseFile == "" {
		return "", "", "", fmt.Errorf("--database flag is required")
	}
	imagesDir, err = cmd.Flags().GetString("images")
	if err != nil || imagesDir == "" {
		return "", "", "", fmt.Errorf("--images flag is required")
	}
	return configFile, databaseFile, imagesDir, nil
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatalf("Error executing command: %v", err)
		os.Exit(1)
	}
}

func init() {
	// Optional flags (only used when not providing a folder argument)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file for the review project")
	rootCmd.PersistentFlags().StringP("database", "d", "", "Database file path")
	rootCmd.PersistentFlags().StringP("images", "i", "", "Images directory path")
	rootCmd.Flags().StringP("addr", "a", ":8080", "Address to bind the webserver")
}
