package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/securesign/internal/security/secretbox"
)

const masterKeyEnv = "SECRETBOX_MASTER_KEY"

// newMasterKeyCmd genera una clave para SECRETBOX_MASTER_KEY.
func newMasterKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "masterkey",
		Short: "Genera una clave maestra de 32 bytes (base64) para " + masterKeyEnv,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(key))
			return nil
		},
	}
}

func boxFromEnv() (*secretbox.Box, error) {
	k := os.Getenv(masterKeyEnv)
	if strings.TrimSpace(k) == "" {
		return nil, errors.New(masterKeyEnv + " not set")
	}
	return secretbox.FromString(k)
}

// newSealCmd sella un valor (DSN, PEM) con la clave maestra, igual que lo
// guardan los stores.
func newSealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seal <file|->",
		Short: "Sella un valor con " + masterKeyEnv,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			box, err := boxFromEnv()
			if err != nil {
				return err
			}
			plain, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			sealed, err := box.Seal(strings.TrimRight(string(plain), "\r\n"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
}

func newUnsealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unseal <file|->",
		Short: "Abre un valor sellado con " + masterKeyEnv,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			box, err := boxFromEnv()
			if err != nil {
				return err
			}
			sealed, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			plain, err := box.Open(strings.TrimSpace(string(sealed)))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plain)
			return nil
		},
	}
}
