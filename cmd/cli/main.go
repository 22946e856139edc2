package main

import (
	"fmt"
	"os"

	"github.com/beforeigo/beforeigo/cmd/cli/questions"
	"github.com/beforeigo/beforeigo/cmd/cli/story"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(questions.Group)
	rootCmd.AddCommand(questions.Validate)
	rootCmd.AddGroup(story.Group)
	rootCmd.AddCommand(story.Export)
}

var rootCmd = &cobra.Command{
	Use:  "beforeigo-cli",
	Long: `Command line utilities for Before I Go`,
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
