package main

import (
	"github.com/kiyo-e/pairlane/internal/cli"
	"github.com/kiyo-e/pairlane/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}
