package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeff377/bee-oauth2/pkg/statecrypt"
)

func newKeygenCmd() *cobra.Command {
	var asEnv bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a base64 state key (AES-256 + HMAC-SHA256)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := statecrypt.GenerateCombinedKey()
			if err != nil {
				return err
			}
			if asEnv {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", statecrypt.EnvKey, key)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asEnv, "env", false, "print as a dotenv line")
	return cmd
}
