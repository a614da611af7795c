package main

import (
	"os"

	"github.com/ytget/mediaq/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
