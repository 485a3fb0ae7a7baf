package main

import (
	"os"

	"github.com/cpipredict/cpi-predictor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
