// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "karobar",
	Short: "Pakistan business directory",
	Long: `
karobar runs the public business-directory intake pipeline: listing
submissions, duplicate detection, geocoding, auto-approval and
post-commit notifications.
`,
}

var Version = "dev"

func Execute(version string) {
	Version = version

	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
