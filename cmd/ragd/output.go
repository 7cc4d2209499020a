package main

import (
	"fmt"
	"io"
	"os"
)

// feedback is where user-facing CLI output goes. Tests swap it out.
var feedback io.Writer = os.Stderr

// ANSI escape codes for terminal feedback; --no-color disables them.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

func paint(code, text string) string {
	if noColor {
		return text
	}
	return code + text + ansiReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(feedback, paint(ansiGreen, "✔ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(feedback, paint(ansiRed, "✖ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(feedback, paint(ansiYellow, "! "+fmt.Sprintf(format, args...)))
}

// printPhase reports one named step of a run, e.g. a bootstrap phase.
func printPhase(name, format string, args ...any) {
	fmt.Fprintf(feedback, "%s %s\n", paint(ansiCyan, name+":"), fmt.Sprintf(format, args...))
}

// printStatus renders one indented label/value line of a status report.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(feedback, "  %s %s\n", paint(ansiBold, label+":"), fmt.Sprintf(format, args...))
}
