package main

import (
	"github.com/paceml-cloud/paceml/cmd"
	"github.com/paceml-cloud/paceml/pkg/env"
	"github.com/paceml-cloud/paceml/pkg/log"
)

func main() {
	if err := env.Process(); err != nil {
		log.Fatal("environment failure", "error", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal("paceml failure", "error", err)
	}
}
