package main

import (
	"log/slog"
	"sync"

	"github.com/spf13/cobra"
)

// commandExecutionContext describes the command currently running so that the
// fatal error path can log the way the command itself logs.
type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
	Logger            *slog.Logger
}

var (
	commandExecutionMu      sync.RWMutex
	currentCommandExecution commandExecutionContext
)

func setCommandExecutionContext(ctx commandExecutionContext) {
	commandExecutionMu.Lock()
	defer commandExecutionMu.Unlock()
	currentCommandExecution = ctx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{})
}

func currentCommandExecutionContext() commandExecutionContext {
	commandExecutionMu.RLock()
	defer commandExecutionMu.RUnlock()
	return currentCommandExecution
}

// Long-running and operator-facing commands log structured records; the
// interactive ones print plain text.
var structuredLogCommands = map[string]bool{
	"serve":   true,
	"migrate": true,
}

func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Parent() != nil && c.Parent().Parent() == nil {
			return structuredLogCommands[c.Name()]
		}
	}
	return false
}
