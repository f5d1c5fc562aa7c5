// File: cmd/harrier/main.go
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/xkaelum/harrier/cmd"
	"github.com/xkaelum/harrier/internal/observability"
)

const panicLogFile = "panic.log"

func main() {
	defer handlePanic()
	cmd.Execute()
}

// handlePanic writes the stack to a file before exiting so a crash inside a
// supervised engine run leaves evidence even when stderr is discarded.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	report := fmt.Sprintf("panic: %v\n\n%s\n", r, debug.Stack())
	_ = os.WriteFile(panicLogFile, []byte(report), 0o644)

	if logger := observability.GetLogger(); logger != nil {
		logger.Error("Fatal panic, stack written to " + panicLogFile)
		_ = logger.Sync()
	} else {
		fmt.Fprint(os.Stderr, report)
	}
	os.Exit(2)
}
