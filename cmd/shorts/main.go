package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/faceless-shorts/internal/util"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "shorts",
		Short: "Faceless Shorts - render, publish and track short videos",
		Long: `shorts turns markdown scripts into narrated vertical videos, publishes
them one at a time with an adaptively chosen thumbnail, and tracks how each
video and thumbnail performs.

The video ledger (videos/metadata.jsonl) is the source of truth. Thumbnails
that reach the lock score are promoted and preferred for later uploads.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/shorts.yaml)")
	rootCmd.PersistentFlags().String("ledger", "", "video ledger file (default videos/metadata.jsonl)")
	rootCmd.PersistentFlags().String("history-db", "", "history database file (default shorts-history.db)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("ledger", rootCmd.PersistentFlags().Lookup("ledger"))
	viper.BindPFlag("history_db", rootCmd.PersistentFlags().Lookup("history-db"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	// Secrets usually live in .env next to the ledger; a missing file is fine
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		util.WarnLog("Failed to load .env: %v", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("shorts")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("SHORTS")
	viper.AutomaticEnv()

	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		util.DebugLog("Using config file: %s", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		util.ErrorLog("Failed to read config file %s: %v", cfgFile, err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
