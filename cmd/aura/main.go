package main

import (
	"os"

	"aura.app/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
