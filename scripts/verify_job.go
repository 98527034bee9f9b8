package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mpnn-design-labs/design-node/internal/utils"
)

// RunVerifyJob recomputes the digests of a job's artifacts and compares
// them against the recorded metadata/checksums.sha256
func RunVerifyJob(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: verify-job <job_dir>")
		os.Exit(1)
	}
	jobDir := args[0]

	checksumsPath := filepath.Join(jobDir, "metadata", "checksums.sha256")
	f, err := os.Open(checksumsPath)
	if err != nil {
		fmt.Printf("Failed to open %s: %v\n", checksumsPath, err)
		os.Exit(1)
	}
	defer f.Close()

	var checked, failed int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// sha256sum format: "<digest>  <relative path>"
		parts := strings.SplitN(line, "  ", 2)
		if len(parts) != 2 {
			fmt.Printf("SKIP  malformed line: %s\n", line)
			continue
		}
		digest, rel := parts[0], parts[1]

		path := filepath.Join(jobDir, filepath.FromSlash(rel))
		checked++
		actual, err := utils.Sha256File(path)
		if err != nil {
			failed++
			fmt.Printf("FAIL  %s: %v\n", rel, err)
			continue
		}
		if actual != digest {
			failed++
			fmt.Printf("FAIL  %s: digest mismatch\n", rel)
			continue
		}
		fmt.Printf("OK    %s\n", rel)
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("Failed reading %s: %v\n", checksumsPath, err)
		os.Exit(1)
	}

	fmt.Printf("\n%d file(s) checked, %d mismatch(es)\n", checked, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
