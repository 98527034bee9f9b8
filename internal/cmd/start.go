package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mpnn-design-labs/design-node/internal/api"
	"github.com/mpnn-design-labs/design-node/internal/utils"
	"github.com/mpnn-design-labs/design-node/internal/workers"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the design node",
	Long: `Start the design node HTTP API.

This will:
- Open the job index database
- Verify the ProteinMPNN installation (unless running in mock mode)
- Start the REST API server for design submissions`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Info("Starting design node...", "cli")

		// Initialize PID manager and write current PID
		pidManager, err := utils.NewPIDManager(config)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to create PID manager: %v", err), "cli")
			os.Exit(1)
		}

		// Check if another instance is already running
		if existingPID, err := pidManager.ReadPID(); err == nil {
			if pidManager.IsProcessRunning(existingPID) {
				logger.Error(fmt.Sprintf("Another instance is already running with PID: %d", existingPID), "cli")
				fmt.Printf("Another instance is already running with PID: %d\n", existingPID)
				fmt.Println("Use 'design-node stop' to stop the existing instance first")
				os.Exit(1)
			} else {
				// Clean up stale PID file
				pidManager.RemovePIDFile()
			}
		}

		currentPID := os.Getpid()
		if err := pidManager.WritePID(currentPID); err != nil {
			logger.Error(fmt.Sprintf("Failed to write PID file: %v", err), "cli")
			os.Exit(1)
		}
		defer func() {
			if err := pidManager.RemovePIDFile(); err != nil {
				logger.Warn(fmt.Sprintf("Failed to remove PID file: %v", err), "cli")
			}
		}()

		logger.Info(fmt.Sprintf("Node started with PID: %d", currentPID), "cli")

		if designer.MockMode() {
			logger.Warn("Running in mock mode, designs are synthesized locally", "cli")
			fmt.Println("Mock mode enabled: no ProteinMPNN installation will be used")
		}

		apiServer := api.NewAPIServer(config, logger, designer, dbManager)
		if err := apiServer.Start(); err != nil {
			logger.Error(fmt.Sprintf("Failed to start API server: %v", err), "cli")
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		janitor := workers.NewJanitor(context.Background(), config, logger, dbManager, designer.JobsDir())
		janitor.Start()

		fmt.Printf("Design node is running on port %s. Press Ctrl+C to stop.\n", apiServer.GetPort())

		// Setup signal handling for graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		<-sigChan
		logger.Info("Shutdown signal received, stopping node...", "cli")

		janitor.Stop()
		if err := apiServer.Stop(); err != nil {
			logger.Error(fmt.Sprintf("Error stopping API server: %v", err), "cli")
		}
		if err := pidManager.RemovePIDFile(); err != nil {
			logger.Warn(fmt.Sprintf("Failed to remove PID file: %v", err), "cli")
		}

		logger.Info("Design node stopped successfully", "cli")
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
