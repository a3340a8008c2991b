package main

import (
	"os"

	"github.com/pyvlad/quizzz-spa/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
