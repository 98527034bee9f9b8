package main

import (
	"fmt"
	"os"

	"github.com/mpnn-design-labs/design-node/internal/structure"
)

// RunConvertCIF converts an mmCIF structure file to PDB format on stdout
func RunConvertCIF(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: convert-cif <file.cif>")
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("Failed to read %s: %v\n", args[0], err)
		os.Exit(1)
	}

	pdb, err := structure.ConvertCIFToPDB(string(data))
	if err != nil {
		fmt.Printf("Conversion failed: %v\n", err)
		os.Exit(1)
	}

	os.Stdout.WriteString(pdb)
}
