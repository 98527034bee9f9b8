package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective node configuration",
	Run: func(cmd *cobra.Command, args []string) {
		configs := config.GetAllConfigs()

		keys := make([]string, 0, len(configs))
		for key := range configs {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			fmt.Printf("%s = %s\n", key, configs[key])
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
