package main

import (
	"os"

	"github.com/riptide-sh/riptide/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
