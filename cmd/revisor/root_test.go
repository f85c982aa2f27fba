package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveProject(t *testing.T) {
	// Merges the persistent flags into the command's flag set, which
	// cobra otherwise only does on Execute.
	if err := rootCmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}

	t.Run("folder argument initializes the project", func(t *testing.T) {
		tempDir := t.TempDir()

		configFile, databaseFile, imagesDir, err := resolveProject(rootCmd, []string{tempDir})
		if err != nil {
			t.Fatal(err)
		}
		if configFile != filepath.Join(tempDir, "config.yaml") {
			t.Errorf("unexpected config path: %s", configFile)
		}
		if databaseFile != filepath.Join(tempDir, "revisor.db") {
			t.Errorf("unexpected database path: %s", databaseFile)
		}
		if imagesDir != tempDir {
			t.Errorf("unexpected images dir: %s", imagesDir)
		}
		if _, err := os.Stat(configFile); err != nil {
			t.Errorf("default config was not created: %v", err)
		}
	})

	t.Run("config file argument requires the other flags", func(t *testing.T) {
		tempDir := t.TempDir()
		configFile := filepath.Join(tempDir, "config.yaml")
		if err := os.WriteFile(configFile, []byte("meta:\n  title: x\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		rootCmd.PersistentFlags().Set("database", "")
		rootCmd.PersistentFlags().Set("images", "")
		if _, _, _, err := resolveProject(rootCmd, []string{configFile}); err == nil {
			t.Errorf("expected an error without --database")
		}

		rootCmd.PersistentFlags().Set("database", filepath.Join(tempDir, "revisor.db"))
		rootCmd.PersistentFlags().Set("images", tempDir)
		got, db, images, err := resolveProject(rootCmd, []string{configFile})
		if err != nil {
			t.Fatal(err)
		}
		if got != configFile || db == "" || images != tempDir {
			t.Errorf("resolveProject = %s, %s, %s", got, db, images)
		}
	})

	t.Run("no argument and no flags fails", func(t *testing.T) {
		rootCmd.PersistentFlags().Set("config", "")
		if _, _, _, err := resolveProject(rootCmd, nil); err == nil {
			t.Errorf("expected an error")
		}
	})
}
