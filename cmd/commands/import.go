package commands

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ambientlabs/permitory/pkg/crypt"
	"github.com/ambientlabs/permitory/pkg/keyring"
	"github.com/ambientlabs/permitory/pkg/permit"
)

func NewImportCommand(c *Context) *cobra.Command {
	var (
		keyType string
		name    string
	)

	importCmd := &cobra.Command{
		Use:   "import <hex-secret>",
		Short: "Import a private key into the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imp, ok := c.keyring.(keyring.Importer)
			if !ok {
				return fmt.Errorf("keyring %s cannot import keys", c.keyring.Name())
			}
			kt, err := permit.ParseKeyType(keyType)
			if err != nil {
				return err
			}
			raw, err := hex.DecodeString(args[0])
			if err != nil {
				return err
			}
			priv, err := crypt.ParsePrivateKey(kt, raw)
			if err != nil {
				return err
			}
			key, err := imp.Import(c.Context, priv, name)
			if err != nil {
				return err
			}
			return listTpl.Execute(os.Stdout, listEntries([]keyring.KeyReference{key}))
		},
	}

	importCmd.Flags().StringVarP(&keyType, "type", "t", "ed25519", "Key algorithm: [ed25519, secp256k1]")
	importCmd.Flags().StringVar(&name, "name", "", "Key id, derived from the public key when empty")

	return importCmd
}
