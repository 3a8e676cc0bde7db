package main

import (
	"os"

	"github.com/flowboardhq/flowboard/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
