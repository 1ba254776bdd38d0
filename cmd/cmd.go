// Package cmd implements the command-line front end: it parses the
// configuration, assembles the playback stack and drives a single
// playback session from the terminal.
package cmd

import (
	"fmt"

	"github.com/darkhz/vidbridge/utils"
)

// Version stores the version information.
var Version string

// Init parses the command-line parameters and runs the application.
func Init() {
	printer.setup()
	config.setup()

	parse()

	printVersion()
	generate()

	url := GetOptionValue("play")
	if url == "" {
		printer.Error("No URL specified, use --play")
	}
	if _, err := utils.IsValidURL(url); err != nil {
		printer.Error("Invalid URL")
	}

	startSession(url)

	printer.Stop()
}

// printVersion prints the version information.
func printVersion() {
	if !IsOptionEnabled("version") {
		return
	}

	printer.Exit(fmt.Sprintf("vidbridge v%s", Version))
}

// generate generates the configuration.
func generate() {
	if !IsOptionEnabled("generate") {
		return
	}

	generateConfig()

	printer.Exit("Configuration is generated")
}
