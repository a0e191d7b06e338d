package main

import (
	"os"

	"github.com/Avi18971911/Culprit/cmd/culprit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
