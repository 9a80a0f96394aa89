package main

import (
	"os"

	"github.com/fatih/color"
)

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	hintLabel  = color.New(color.FgYellow)
	warnLabel  = color.New(color.FgYellow, color.Bold)
	faint      = color.New(color.Faint)
	accent     = color.New(color.FgCyan)
)

// ShouldUseColor determines if color output should be used
// Respects --no-color flag and NO_COLOR environment variable
func ShouldUseColor(noColorFlag bool) bool {
	if noColorFlag {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	// Check if stdout is a terminal
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// setColor switches every printer on or off.
func setColor(enabled bool) {
	color.NoColor = !enabled
}
