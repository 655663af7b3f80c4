package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// runInit writes a settings.yaml into dir from the defaults and flags.
// The API key is never persisted; it comes from the environment.
func runInit(args []string, dir string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	dbPath := fs.String("db-path", "", "journal database path (default: <dir>/drawsynth.db)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	profile := fs.String("canvas-profile", "square", "canvas profile: square or wide")
	maxAttempts := fs.Int("max-attempts", 0, "refine attempts before the best-effort render")
	model := fs.String("model", "", "model name")
	force := fs.Bool("force", false, "overwrite an existing settings file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	path := filepath.Join(dir, "settings.yaml")
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := defaultConfig(dir)
	cfg.LogLevel = *logLevel
	cfg.CanvasProfile = *profile
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *maxAttempts > 0 {
		cfg.MaxAttempts = *maxAttempts
	}
	if *model != "" {
		cfg.Model = *model
	}
	if _, err := cfg.validationConfig(); err != nil {
		return err
	}
	cfg.APIKey = ""

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	fmt.Printf("Config written to %s\n", path)
	return nil
}
