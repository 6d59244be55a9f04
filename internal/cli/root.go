// Package cli wires configuration, the model client and the analyzer into
// the resumepro commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmuoria/resumepro-agent/internal/agent"
	"github.com/fmuoria/resumepro-agent/internal/config"
	"github.com/fmuoria/resumepro-agent/internal/export"
	"github.com/fmuoria/resumepro-agent/internal/llm"
	"github.com/fmuoria/resumepro-agent/internal/models"
)

// Version is reported by --version
const Version = "1.0.0"

//nolint:gochecknoglobals // Cobra boilerplate
var configPath string

//nolint:gochecknoglobals // Cobra boilerplate
var backend string

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "resumepro",
	Short: "Score a resume against a job description with a generative model",
	Long: `ResumePro analyses a resume (PDF, DOCX or TXT) against an optional job
description and reports a 0-100 match score, skill lists and a sectioned
narrative.

Configuration is read from .env, the config file and the environment.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Model backend: vertex, gemini or stub (overrides config)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the configuration of the current invocation
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and builds the analyzer around the selected backend
func setup(ctx context.Context) (*config.Config, *agent.ResumeAnalyzer, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	client, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s client: %w", cfg.Backend, err)
	}
	log.Printf("Using %s backend (model %s, template %s)", cfg.Backend, cfg.Model, cfg.TemplateVersion)

	analyzer := agent.NewResumeAnalyzer(client, agent.Options{
		TemplateVersion: cfg.TemplateVersion,
		UploadsDir:      cfg.UploadsDir,
	})
	return cfg, analyzer, nil
}

// readJobDescription treats value as a file path when such a file exists and
// as the job description text otherwise.
func readJobDescription(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	info, err := os.Stat(value)
	if err != nil || info.IsDir() {
		return value, nil
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return "", fmt.Errorf("failed to read job description: %w", err)
	}
	return string(data), nil
}

// writeReports renders entries in format, separated by a blank line
func writeReports(w io.Writer, entries []models.HistoryEntry, format string) error {
	for i, entry := range entries {
		body, err := export.Render(entry, format)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		if _, err := io.WriteString(w, body); err != nil {
			return err
		}
		if !strings.HasSuffix(body, "\n") {
			fmt.Fprintln(w)
		}
	}
	return nil
}
