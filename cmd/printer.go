package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/theckman/yacspin"
)

// Printer drives the terminal spinner and final status lines.
type Printer struct {
	spinner *yacspin.Spinner
}

var printer Printer

// setup sets up the printer.
func (p *Printer) setup() {
	spinner, err := yacspin.New(
		yacspin.Config{
			Frequency:         100 * time.Millisecond,
			CharSet:           yacspin.CharSets[14],
			Message:           "Starting",
			Suffix:            " ",
			StopCharacter:     "",
			StopMessage:       "",
			StopFailCharacter: "[!] \b",
			ColorAll:          true,
			Colors:            []string{"bold", "fgCyan"},
			StopFailColors:    []string{"bold", "fgRed"},
		})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	p.spinner = spinner
	p.spinner.Start()
}

// Print updates the spinner message.
func (p *Printer) Print(message string) {
	p.spinner.Message(message)
}

// Exit stops the spinner with a final message and exits.
func (p *Printer) Exit(message string) {
	p.spinner.StopMessage(message)
	p.spinner.Stop()

	os.Exit(0)
}

// Stop stops the spinner.
func (p *Printer) Stop() {
	p.spinner.StopMessage("")
	p.spinner.Stop()
}

// Error displays an error and stops the application.
func (p *Printer) Error(message string) {
	p.spinner.StopFailMessage(message)
	p.spinner.StopFail()

	os.Exit(1)
}
