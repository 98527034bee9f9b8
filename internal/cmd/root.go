package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpnn-design-labs/design-node/internal/database"
	"github.com/mpnn-design-labs/design-node/internal/pipeline"
	"github.com/mpnn-design-labs/design-node/internal/utils"
)

var (
	configPath string
	mockMode   bool
	config     *utils.ConfigManager
	logger     *utils.LogsManager
	dbManager  *database.SQLiteManager
	designer   *pipeline.Designer
)

var rootCmd = &cobra.Command{
	Use:   "design-node",
	Short: "ProteinMPNN design node",
	Long: `A web-facing wrapper around the ProteinMPNN sequence design model.

Accepts protein structures (.pdb/.cif), runs the three-step design
pipeline against a local ProteinMPNN checkout (or a deterministic mock),
and keeps a complete per-job artifact and provenance trail.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize configuration
		config = utils.NewConfigManager(configPath)

		// Override mock_mode from command line flag if provided
		if mockMode {
			config.SetConfig("mock_mode", true)
		}

		// Initialize logging
		logger = utils.NewLogsManager(config)

		// Stop only needs the PID file, skip the heavy initialization
		cmdName := cmd.Name()
		if cmdName == "stop" || cmdName == "stop-node" || cmdName == "kill" {
			return
		}

		var err error
		dbManager, err = database.NewSQLiteManager(config, logger)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to initialize job index: %v", err), "cli")
			os.Exit(1)
		}

		designer, err = pipeline.NewDesigner(config, logger, dbManager)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to initialize designer: %v", err), "cli")
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbManager != nil {
			dbManager.Close()
		}
		if logger != nil {
			logger.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&mockMode, "mock", "m", false, "use the deterministic mock model instead of ProteinMPNN")
}
