package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "hearts",
	Short: "Server for a hearts-style trick-taking card game",
	Long: `hearts runs an authoritative game server for a hearts-style
trick-taking card game. Clients connect over websockets, receive full
state snapshots, and answer the pending requests addressed to them.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
