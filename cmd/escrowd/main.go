package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/app"
	"github.com/iov-one/escrowd/commands/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/log"
)

const (
	flagHome     = "home"
	flagLogLevel = "log_level"
	flagBind     = "bind"
	flagDebug    = "debug"
	flagChainID  = "chain_id"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

// rootCmd builds the command tree. Every flag can also be set in
// $HOME/.escrowd/config/escrowd.toml or with an ESCROWD_ prefixed
// environment variable.
func rootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("escrowd")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "escrowd",
		Short:         "Multi-party escrow ABCI application",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v)
		},
	}
	defaultHome := filepath.Join(os.ExpandEnv("$HOME"), ".escrowd")
	root.PersistentFlags().String(flagHome, defaultHome, "directory to store files under")
	root.PersistentFlags().String(flagLogLevel, "info", "log level: debug, info, error or none")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(
		initCmd(v),
		startCmd(v),
		validateCmd(v),
		versionCmd(),
	)
	return root
}

// loadConfig reads the optional TOML configuration file from the home
// directory. Flags and environment take precedence over the file.
func loadConfig(v *viper.Viper) error {
	v.SetConfigName("escrowd")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(v.GetString(flagHome), "config"))
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}

func newLogger(v *viper.Viper) (log.Logger, error) {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout)).
		With("module", "escrowd")
	opt, err := log.AllowLevel(v.GetString(flagLogLevel))
	if err != nil {
		return nil, err
	}
	return log.NewFilter(logger, opt), nil
}

func initCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [ticker] [fee_bps]",
		Short: "Initialize tendermint files and app state in genesis file",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			return server.InitCmd(GenInitOptions, logger, v.GetString(flagHome), v.GetString(flagChainID), args)
		},
	}
	cmd.Flags().String(flagChainID, "", "chain id of a new genesis file, random if empty")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func startCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the abci server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			return server.StartCmd(GenerateApp, logger, v.GetString(flagHome), v.GetString(flagBind), v.GetBool(flagDebug))
		},
	}
	cmd.Flags().String(flagBind, "tcp://localhost:26658", "address server listens on")
	cmd.Flags().Bool(flagDebug, false, "call stack returned on error")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func validateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [genesis.json...]",
		Short: "Ensure genesis files are accepted by the application",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{filepath.Join(v.GetString(flagHome), "config", "genesis.json")}
			}
			return server.ValidateGenesis(app.Initializers(), args)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the app version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(escrowd.Version())
		},
	}
}
