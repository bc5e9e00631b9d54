package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/wesleyorama2/shopcheck/internal/cli"
)

// Main loads .env, runs the command line and returns the process exit code.
func Main() int {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(Main())
}
