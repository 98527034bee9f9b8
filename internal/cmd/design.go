package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mpnn-design-labs/design-node/internal/structure"
	"github.com/mpnn-design-labs/design-node/internal/types"
)

var (
	designChains       string
	designNumSequences int
	designModelName    string
	designSamplingTemp string
	designPayloadPath  string
)

var designCmd = &cobra.Command{
	Use:   "design <structure-file>",
	Short: "Run one design job from the command line",
	Long: `Run one design job against a local structure file without the HTTP API.

The request can be given either as flags or as a JSON payload file with
the same shape the API accepts ("chains", "num_sequences", "model_name").
The response document is printed to stdout and the full artifact tree is
kept under the jobs directory like any API-submitted job.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		structurePath := args[0]
		data, err := os.ReadFile(structurePath)
		if err != nil {
			fmt.Printf("Error reading structure file: %v\n", err)
			os.Exit(1)
		}

		req, err := buildDesignRequest(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		jobID, resp, err := designer.Design(context.Background(), filepath.Base(structurePath), data, req)
		if err != nil {
			logger.Error(fmt.Sprintf("Design job %s failed: %v", jobID, err), "cli")
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Job %s completed, artifacts under %s\n", jobID, filepath.Join(designer.JobsDir(), jobID))

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			fmt.Printf("Error encoding response: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	},
}

// buildDesignRequest merges the payload file (if given) with flag overrides
func buildDesignRequest(cmd *cobra.Command) (types.DesignRequest, error) {
	var req types.DesignRequest

	if designPayloadPath != "" {
		raw, err := os.ReadFile(designPayloadPath)
		if err != nil {
			return req, fmt.Errorf("failed to read payload file: %v", err)
		}
		var obj struct {
			Chains       interface{} `json:"chains"`
			NumSequences *int        `json:"num_sequences"`
			ModelName    string      `json:"model_name"`
			SamplingTemp string      `json:"sampling_temp"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return req, fmt.Errorf("payload file must be valid JSON: %v", err)
		}
		sel, err := structure.ParseChainSpec(obj.Chains)
		if err != nil {
			return req, err
		}
		req.Chains = sel
		req.NumSequences = obj.NumSequences
		req.ModelName = obj.ModelName
		req.SamplingTemp = obj.SamplingTemp
	}

	if designChains != "" {
		sel, err := structure.ParseChainSpec(designChains)
		if err != nil {
			return req, err
		}
		req.Chains = sel
	}
	if cmd.Flags().Changed("num-sequences") {
		req.NumSequences = &designNumSequences
	}
	if designModelName != "" {
		req.ModelName = designModelName
	}
	if designSamplingTemp != "" {
		req.SamplingTemp = designSamplingTemp
	}

	return req, nil
}

func init() {
	designCmd.Flags().StringVar(&designChains, "chains", "", "chains to design, e.g. \"A\" or \"A,B\" (empty for all)")
	designCmd.Flags().IntVarP(&designNumSequences, "num-sequences", "n", 0, "number of sequences to generate (omit for server default)")
	designCmd.Flags().StringVar(&designModelName, "model-name", "", "ProteinMPNN model weights name")
	designCmd.Flags().StringVar(&designSamplingTemp, "sampling-temp", "", "sampling temperature")
	designCmd.Flags().StringVarP(&designPayloadPath, "payload", "p", "", "path to JSON payload file")
	rootCmd.AddCommand(designCmd)
}
