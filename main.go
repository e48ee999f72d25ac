package main

import (
	"os"

	"github.com/nexusflow/taxassist/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
