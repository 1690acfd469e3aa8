package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deeppavlov/dreamctl/config"
	"github.com/deeppavlov/dreamctl/infra/logger"
)

var (
	dreamRoot string
	cfgPath   string

	log logger.Logger = logger.NopLogger{}
)

var rootCmd = &cobra.Command{
	Use:               "dreamctl",
	Short:             "dreamctl manages configuration files of Dream distributions",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func init() {
	defaultRoot := os.Getenv("DREAM_ROOT_DIR")
	if defaultRoot == "" {
		defaultRoot = "."
	}
	rootCmd.PersistentFlags().StringVarP(&dreamRoot, "dream", "D", defaultRoot, "Dream root directory")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "dreamctl configuration file")
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log = logger.NewZerologLogger("dreamctl", cfg.Logging.Level)
	if !cmd.Flags().Changed("dream") && os.Getenv("DREAM_ROOT_DIR") == "" && cfg.DreamRoot != "" {
		dreamRoot = cfg.DreamRoot
	}
	log.Debugw("resolved dream root", map[string]any{"root": dreamRoot})
	return nil
}

// mustBeInsideDream verifies the root looks like a Dream checkout before any
// command touches it.
func mustBeInsideDream(root string) error {
	for _, sub := range []string{"assistant_dists", "annotators", "skills"} {
		info, err := os.Stat(filepath.Join(root, sub))
		if err != nil || !info.IsDir() {
			return fmt.Errorf(
				"%s is not a Dream directory: missing %s/ (run dreamctl inside the Dream directory or pass -D)",
				root, sub,
			)
		}
	}
	return nil
}
