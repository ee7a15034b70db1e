package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/origin"
	"github.com/sw33tLie/valuestream/pkg/payment"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `               _
 __ ____ _ ___| |_  _ ___ ___ __ _ _ _ ___ __ _ _ __
 \ V / _' / _ \ | || / -_)_-<  _| '_/ -_) _' | '  \
  \_/\__,_\___/_|\_,_\___/__/\__|_| \___\__,_|_|_|_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "valuestream",
	Short: "Crowd-funding signal and one-click zaps for curated social posts.",
	Long: LOGO + `valuestream finds posts by curated authors in a feed page, shows how many
people zapped them and pays a fixed amount through your Lightning wallet.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.valuestream.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/valuestream/valuestream.sqlite)")
	rootCmd.PersistentFlags().String("bridge", "", "URL of a running 'valuestream bridge serve' gateway (default: in-process gateway)")
	rootCmd.PersistentFlags().String("bridge-user", "", "Gateway basic auth username")
	rootCmd.PersistentFlags().String("bridge-pass", "", "Gateway basic auth password")

	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("dbpath"))
	viper.BindPFlag("bridge.url", rootCmd.PersistentFlags().Lookup("bridge"))
	viper.BindPFlag("bridge.username", rootCmd.PersistentFlags().Lookup("bridge-user"))
	viper.BindPFlag("bridge.password", rootCmd.PersistentFlags().Lookup("bridge-pass"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".valuestream")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("valuestream")
	viper.AutomaticEnv()

	viper.SetDefault("origin.default", origin.DEFAULT_ORIGIN)
	viper.SetDefault("payment.amount_sats", payment.DEFAULT_AMOUNT_SATS)
	viper.SetDefault("wallet.lnd.url", "")
	viper.SetDefault("wallet.lnd.macaroon", "")
	viper.SetDefault("wallet.lnd.insecure", false)
	viper.SetDefault("wallet.confirm", true)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.valuestream.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
