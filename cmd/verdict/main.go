package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "verdict",
	Short: "VERDICT - multi-specialist trading recommendation engine",
	Long: `VERDICT fans a security out to independent analysis specialists
(technical, fundamental, sentiment, risk, macro, news), fuses their
outputs into one validated recommendation with position sizing, and
monitors finished analyses for drift.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
