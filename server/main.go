package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/meikuraledutech/pipeline/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
