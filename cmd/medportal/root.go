package main

import (
	"github.com/medportal/medportal/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "medportal",
	Short:         "MedPortal serves the patient, doctor and admin areas of the portal.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		execCtx := commandExecutionContext{
			CommandPath:       cmd.CommandPath(),
			UsesStructuredLog: commandUsesStructuredLogging(cmd),
		}
		if execCtx.UsesStructuredLog {
			logger, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
				Command: execCtx.CommandPath,
				Writer:  cmd.ErrOrStderr(),
			})
			if err != nil {
				return &exitError{code: exitCodeUsage, err: err}
			}
			execCtx.Logger = logger
		}
		setCommandExecutionContext(execCtx)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, usersCmd, areasCmd, checkCmd)
}
