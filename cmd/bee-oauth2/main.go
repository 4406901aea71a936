// Command bee-oauth2 hosts OAuth 2.0 authorization code logins for the
// clients listed in a configuration file.
//
//	bee-oauth2 keygen                   # print a new OAUTH2_STATE_KEY
//	bee-oauth2 serve  -c config.yaml    # web host: /login/{client}, /callback
//	bee-oauth2 login  -c config.yaml google
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "bee-oauth2",
		Short:         "OAuth 2.0 authorization code client host",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(opts.envFile); err != nil {
				return err
			}
			// Read after the dotenv file so it can name the configuration.
			if opts.configPath == "" {
				opts.configPath = envOr("BEE_OAUTH2_CONFIG", "")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (env BEE_OAUTH2_CONFIG)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the configuration; missing files are ignored")

	root.AddCommand(newServeCmd(opts), newLoginCmd(opts), newKeygenCmd())
	return root
}

// loadEnvFile loads path into the environment. Variables already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
