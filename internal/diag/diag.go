// Package diag provides the single shared diagnostic logger used by the
// scheme server loop and by FileResource's node-table flush. Output
// framing adapts to
// whether stderr is an interactive terminal or has been redirected
// (into a log file, a pipe to syslog, etc.): an interactive terminal
// gets bare messages, since the shell already shows when output
// arrived, while a redirected stream gets a date/time prefix so
// entries remain ordered once they leave the terminal.
package diag

import (
	"log"
	"os"

	"github.com/mattn/go-isatty"
)

// Logger is shared by every package in this module; nothing here is
// per-provider state, matching the single global atExit table in the
// root package.
var Logger = newLogger()

func newLogger() *log.Logger {
	flags := 0
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		flags = log.LstdFlags
	}
	return log.New(os.Stderr, "", flags)
}

// Printf logs a formatted diagnostic, matching the original source's
// unconditional debug:: writes (e.g. "Node dirty, should rewrite" in
// file.rs) translated into a real logger instead of raw console output.
func Printf(format string, args ...interface{}) {
	Logger.Printf(format, args...)
}
