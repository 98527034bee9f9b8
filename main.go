package main

import (
	"github.com/mpnn-design-labs/design-node/internal/cmd"
)

func main() {
	cmd.Execute()
}
