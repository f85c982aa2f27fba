/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-git/go-billy/v6/osfs"
	"github.com/spf13/cobra"

	"github.com/lewtec/revisor/internal/export"
	"github.com/lewtec/revisor/internal/imagesource"
	"github.com/lewtec/revisor/internal/repository"
	"github.com/lewtec/revisor/review"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <output-dir>",
	Short: "Export reviewed annotations to training formats",
	Long: `Export the saved annotations of every scanned image to an output
directory, one file per image per format.

Formats: yolo, pascal_voc, coco, json (default: all of them)

Example:
  revisor export -c config.yaml -d revisor.db -i ./images ./out
  revisor export --format yolo -c config.yaml -d revisor.db -i ./images ./out`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputDir := args[0]

		configFile, _ := cmd.Flags().GetString("config")
		if configFile == "" {
			return fmt.Errorf("--config flag is required")
		}
		config, err := review.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		databaseFile, _ := cmd.Flags().GetString("database")
		if databaseFile == "" {
			return fmt.Errorf("--database flag is required")
		}
		db, err := repository.Open(databaseFile)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		repo := repository.NewAnnotationRepository(db)

		imagesDir, _ := cmd.Flags().GetString("images")
		if imagesDir == "" {
			return fmt.Errorf("--images flag is required")
		}
		source := imagesource.New(imagesDir)
		if err := source.Scan(cmd.Context()); err != nil {
			return fmt.Errorf("failed to scan images: %w", err)
		}

		formats := export.Formats
		if name, _ := cmd.Flags().GetString("format"); name != "" {
			formats = []export.Format{export.Format(name)}
		}

		classNames := config.ClassNames()
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		fs := osfs.New(outputDir)
		exported := 0
		for _, img := range source.List() {
			annotations, err := repo.GetForImage(cmd.Context(), img.ID)
			if err != nil {
				return fmt.Errorf("while loading annotations for %s: %w", img.Filename, err)
			}
			if len(annotations) == 0 {
				continue
			}
			meta := export.ImageMeta{
				ID:       img.ID,
				Filename: img.Filename,
				Width:    img.Width,
				Height:   img.Height,
			}
			var results []export.Result
			for _, format := range formats {
				result, err := export.Export(format, annotations, meta, classNames)
				if err != nil {
					return fmt.Errorf("while exporting %s as %s: %w", img.Filename, format, err)
				}
				results = append(results, result)
			}
			if err := export.WriteResults(fs, "", results...); err != nil {
				return fmt.Errorf("while writing exports for %s: %w", img.Filename, err)
			}
			exported++
		}
		log.Printf("export: wrote %d formats for %d images to %s", len(formats), exported, outputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "", "Export only one format (yolo, pascal_voc, coco, json)")
}
