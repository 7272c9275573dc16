package main

import (
	"os"

	"github.com/contentforge/studio/internal/cli"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.WithError(err).Error("studio exited")
		os.Exit(1)
	}
}
