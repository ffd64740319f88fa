package main

import (
	"os"

	"tracekg/internal/logging"
)

func main() {
	logger := logging.NewFromEnv()

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
