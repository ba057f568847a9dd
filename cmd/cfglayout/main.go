// Package main is the entry point for the cfglayout CLI.
package main

import (
	"os"

	"github.com/Marco-Zechner/SpaceEngineers-ConfigAPI-sub001/cmd/cfglayout/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
