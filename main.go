package main

import (
	"os"

	"github.com/penwyp/go-code-activity/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
