/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nlnetlabs/cascade"
)

var cfgFile, cfgFileUsed string
var debug, verbose bool
var zoneName string

var api *cascade.ApiClient

var rootCmd = &cobra.Command{
	Use:   "cascadectl",
	Short: "cascadectl is a tool used to interact with the cascaded signing pipeline via its API",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig, initApi)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", cascade.DefaultCliCfgFile))
	rootCmd.PersistentFlags().StringVarP(&zoneName, "zone", "z", "", "zone name")

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in the CLI config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(cascade.DefaultCliCfgFile)
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
		cfgFileUsed = viper.ConfigFileUsed()
	} else {
		log.Fatalf("Could not load config %s: Error: %v", cascade.DefaultCliCfgFile, err)
	}
}

func initApi() {
	baseurl := viper.GetString("cli.cascaded.baseurl")
	apikey := viper.GetString("cli.cascaded.apikey")

	cascade.Globals.BaseUri = baseurl
	cascade.Globals.ApiKey = apikey
	cascade.Globals.Verbose = verbose
	cascade.Globals.Debug = debug

	api = cascade.NewClient("cascaded", baseurl, apikey, verbose, debug)
}
