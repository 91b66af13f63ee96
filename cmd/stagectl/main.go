package main

import (
	"os"

	"github.com/JonMunkholm/stageloader/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
