package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mpnn-design-labs/design-node/internal/pipeline"
)

var (
	jobsLimit      int
	jobsPruneAge   time.Duration
	jobsExportPath string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and maintain the job index",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List design jobs, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		jobs, err := dbManager.ListJobs(jobsLimit)
		if err != nil {
			fmt.Printf("Error listing jobs: %v\n", err)
			os.Exit(1)
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs recorded")
			return
		}

		fmt.Printf("%-34s %-10s %-24s %10s  %s\n", "ID", "STATUS", "CREATED", "RUNTIME", "FILE")
		for _, job := range jobs {
			runtime := "-"
			if job.RuntimeMS > 0 {
				runtime = fmt.Sprintf("%dms", job.RuntimeMS)
			}
			fmt.Printf("%-34s %-10s %-24s %10s  %s\n", job.ID, job.Status, job.CreatedAt, runtime, job.Filename)
		}
	},
}

var jobsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished jobs and their workspaces older than a cutoff",
	Run: func(cmd *cobra.Command, args []string) {
		ids, err := dbManager.PruneJobs(jobsPruneAge)
		if err != nil {
			fmt.Printf("Error pruning jobs: %v\n", err)
			os.Exit(1)
		}

		for _, id := range ids {
			ws, err := pipeline.OpenWorkspace(designer.JobsDir(), id)
			if err != nil {
				continue
			}
			ws.Cleanup()
		}

		fmt.Printf("Pruned %d job(s) older than %s\n", len(ids), jobsPruneAge)
	},
}

var jobsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the job index as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		jobs, err := dbManager.ListJobs(0)
		if err != nil {
			fmt.Printf("Error listing jobs: %v\n", err)
			os.Exit(1)
		}

		out, err := yaml.Marshal(map[string]interface{}{"jobs": jobs})
		if err != nil {
			fmt.Printf("Error encoding jobs: %v\n", err)
			os.Exit(1)
		}

		if jobsExportPath == "" || jobsExportPath == "-" {
			fmt.Print(string(out))
			return
		}
		if err := os.WriteFile(jobsExportPath, out, 0644); err != nil {
			fmt.Printf("Error writing %s: %v\n", jobsExportPath, err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d job(s) to %s\n", len(jobs), jobsExportPath)
	},
}

func init() {
	jobsListCmd.Flags().IntVarP(&jobsLimit, "limit", "l", 0, "maximum number of jobs to list (0 for all)")
	jobsPruneCmd.Flags().DurationVar(&jobsPruneAge, "older-than", 7*24*time.Hour, "prune finished jobs older than this")
	jobsExportCmd.Flags().StringVarP(&jobsExportPath, "output", "o", "", "output file (default stdout)")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsPruneCmd)
	jobsCmd.AddCommand(jobsExportCmd)
	rootCmd.AddCommand(jobsCmd)
}
