// Command securesign expone las operaciones offline del core: generar claves,
// calcular fingerprints y digests, firmar y verificar archivos. También
// genera la clave maestra y sella valores para los stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/securesign/internal/hasher"
	"github.com/dropDatabas3/securesign/internal/keys"
	"github.com/dropDatabas3/securesign/internal/signature"
	"github.com/dropDatabas3/securesign/internal/util/atomicwrite"
	"github.com/dropDatabas3/securesign/internal/verification"
)

// errInvalid hace que el proceso salga con código 1 sin repetir el mensaje.
var errInvalid = errors.New("invalid")

func main() {
	root := newRootCmd(os.Stdin, os.Stdout)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "securesign",
		Short:         "Firma y verificación offline de documentos (RSA/SHA-256)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)

	root.AddCommand(
		newKeygenCmd(),
		newFingerprintCmd(),
		newHashCmd(),
		newSignCmd(),
		newVerifyCmd(),
		newMasterKeyCmd(),
		newSealCmd(),
		newUnsealCmd(),
	)
	return root
}

// readInput lee un archivo, o stdin si path es "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func newKeygenCmd() *cobra.Command {
	var (
		bits int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Genera un par RSA y lo guarda como <out>.pub.pem y <out>.key.pem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := keys.NewManager(keys.Config{}).GenerateKeyPair(context.Background(), bits)
			if err != nil {
				return err
			}
			ex, err := keys.Export(kp)
			if err != nil {
				return err
			}
			if err := atomicwrite.WriteFile(out+".pub.pem", []byte(ex.PublicPEM+"\n"), 0o644); err != nil {
				return err
			}
			if err := atomicwrite.WriteFile(out+".key.pem", []byte(ex.PrivatePEM+"\n"), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "public:      %s.pub.pem\nprivate:     %s.key.pem\nfingerprint: %s\n", out, out, ex.Fingerprint)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", keys.DefaultBits, "tamaño de clave (2048 | 4096)")
	cmd.Flags().StringVar(&out, "out", "securesign", "prefijo de los archivos de salida")
	return cmd
}

// readKeyFile lee un PEM tolerando el salto de línea final que agregan los editores.
func readKeyFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <pub.pem>",
		Short: "Imprime el fingerprint SHA-256 de una clave pública",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readKeyFile(args[0])
			if err != nil {
				return err
			}
			if _, err := keys.ImportPublic(text); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), keys.Fingerprint(text))
			return nil
		},
	}
}

func newHashCmd() *cobra.Command {
	var expected string
	cmd := &cobra.Command{
		Use:   "hash <file|->",
		Short: "Imprime el digest SHA-256 (hex) del archivo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			in := hasher.Bytes(b)
			if expected == "" {
				d, err := hasher.Of(in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), d)
				return nil
			}
			exp, err := hasher.Parse(expected)
			if err != nil {
				return err
			}
			ok, err := hasher.Matches(in, exp)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "MISMATCH")
				return errInvalid
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&expected, "expected", "", "digest esperado; compara en vez de imprimir")
	return cmd
}

func newSignCmd() *cobra.Command {
	var keyPath string
	cmd := &cobra.Command{
		Use:   "sign --key <priv.pem> <file|->",
		Short: "Firma el digest del archivo e imprime la firma en base64",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			privPEM, err := readKeyFile(keyPath)
			if err != nil {
				return err
			}
			b, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			d, err := hasher.Of(hasher.Bytes(b))
			if err != nil {
				return err
			}
			sig, err := signature.NewEngine(nil).SignArmored(d, privPEM)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "clave privada PKCS#8 (PEM)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var pubPath, sig string
	cmd := &cobra.Command{
		Use:   "verify --pub <pub.pem> --sig <b64> <file|->",
		Short: "Verifica una firma contra el archivo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pubPEM, err := readKeyFile(pubPath)
			if err != nil {
				return err
			}
			b, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			d, err := hasher.Of(hasher.Bytes(b))
			if err != nil {
				return err
			}
			ok, err := verification.VerifyArmored(d, strings.TrimSpace(sig), pubPEM)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Invalid(SignatureMismatch)")
				return errInvalid
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Valid (signer %s)\n", keys.Fingerprint(pubPEM))
			return nil
		},
	}
	cmd.Flags().StringVar(&pubPath, "pub", "", "clave pública SPKI (PEM)")
	cmd.Flags().StringVar(&sig, "sig", "", "firma en base64")
	_ = cmd.MarkFlagRequired("pub")
	_ = cmd.MarkFlagRequired("sig")
	return cmd
}
