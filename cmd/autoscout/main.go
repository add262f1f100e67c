package main

import (
	"os"

	"github.com/wueestry/autoscout/cmd/autoscout/commands"
)

func main() {
	os.Exit(commands.Execute())
}
