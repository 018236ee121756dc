package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ambientlabs/permitory/pkg/permit"
)

func NewSignCommand(c *Context) *cobra.Command {
	var keyID string

	signCmd := &cobra.Command{
		Use:   "sign <hex-envelope>",
		Short: "Sign canonical envelope bytes with a keyring key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(args[0])
			if err != nil {
				return err
			}

			// reject anything that is not a canonical envelope before
			// it can be signed
			var env permit.Envelope
			if err := env.UnmarshalBinary(raw); err != nil {
				return err
			}

			key, err := c.keyring.Get(c.Context, keyID)
			if err != nil {
				return err
			}
			if key.PublicKey().KeyType() != env.KeyType {
				return fmt.Errorf("envelope declares %v but key %s is %v",
					env.KeyType, keyID, key.PublicKey().KeyType())
			}

			sig, err := key.Sign(c.Context, raw)
			if err != nil {
				return err
			}
			raw64 := sig.Bytes()
			fmt.Println(hex.EncodeToString(raw64[:]))
			return nil
		},
	}

	signCmd.Flags().StringVarP(&keyID, "key", "k", "", "Keyring key id")
	cobra.MarkFlagRequired(signCmd.Flags(), "key")

	return signCmd
}
