package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmuoria/resumepro-agent/internal/gui"
	"github.com/fmuoria/resumepro-agent/internal/llm"
)

//nolint:gochecknoglobals // Cobra boilerplate
var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the desktop application",
	Args:  cobra.NoArgs,
	RunE:  runGUI,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(guiCmd)
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := llm.New(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", cfg.Backend, err)
	}

	gui.NewApp(cfg, client).Run()
	return nil
}
