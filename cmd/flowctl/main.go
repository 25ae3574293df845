package main

import (
	"os"

	"github.com/garyjia/lottery-onboarding/cmd/flowctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
