package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "explorerctl",
	Short: "explorerctl is a command line tool for publishing explorers",
	Long: `explorerctl is the command-line interface for the explorer views service.

An explorer is a tab-separated program describing a set of charts and the controls
that switch between them. Publishing a program stores it and schedules a refresh
that materializes one chart configuration per combination of choices.

Common workflows:

  Check a program before publishing it:
    explorerctl check co2.tsv

  Fill in the column definitions of a table from its data file:
    explorerctl autofill co2.tsv co2 --bucket file:///data --write

  Publish a program:
    explorerctl publish co2 co2.tsv -m "Add methane"

  Follow the refresh:
    explorerctl status co2
    explorerctl views co2 -o yaml
    explorerctl jobs --slug co2

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    EXPLORERS_URL      API endpoint (default: http://localhost:6161)
    EXPLORERS_TOKEN    Admin token for the editor endpoints`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".explorerctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".explorerctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "EXPLORERS_VARNAME"
	viper.SetEnvPrefix("EXPLORERS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.explorerctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Admin token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

// newClient builds a client from the resolved url and token.
func newClient() *ExplorerClient {
	return NewExplorerClient(viper.GetString("url"), viper.GetString("token"))
}
