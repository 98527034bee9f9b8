package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "verify-job":
		RunVerifyJob(args)
	case "convert-cif":
		RunConvertCIF(args)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: go run ./scripts <command> [args...]")
	fmt.Println("")
	fmt.Println("Available commands:")
	fmt.Println("  verify-job <job_dir>")
	fmt.Println("    Recompute the checksums of a job's artifacts and compare against")
	fmt.Println("    metadata/checksums.sha256")
	fmt.Println("    Example: go run ./scripts verify-job runs/jobs/0b7e4c...")
	fmt.Println("")
	fmt.Println("  convert-cif <file.cif>")
	fmt.Println("    Convert an mmCIF structure to PDB format on stdout")
	fmt.Println("    Example: go run ./scripts convert-cif 1err.cif")
}
