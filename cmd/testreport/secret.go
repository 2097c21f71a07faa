package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/testreport/internal/auth"
	"github.com/testreport/internal/config"
	"github.com/testreport/internal/crypto"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Encrypt config secrets and hash passwords",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "encrypt [value]",
			Short: "Seal a value for the config file with TESTREPORT_SECRET_KEY",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.FromEnv()
				if err != nil {
					return err
				}
				sealer, err := crypto.NewSealer(cfg.SecretKey)
				if err != nil {
					return fmt.Errorf("TESTREPORT_SECRET_KEY: %w", err)
				}
				value, err := argOrStdin(cmd, args)
				if err != nil {
					return err
				}
				sealed, err := sealer.Seal(value)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sealed)
				return nil
			},
		},
		&cobra.Command{
			Use:   "hash [password]",
			Short: "Print a bcrypt hash for TESTREPORT_AUTH_PASSWORD_HASH",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := argOrStdin(cmd, args)
				if err != nil {
					return err
				}
				hash, err := auth.Hash(value)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			},
		},
	)
	return cmd
}

func argOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("reading value: %w", err)
		}
		return "", errors.New("empty value")
	}
	return line, nil
}
