package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ambientlabs/permitory/pkg/keyring"
	"github.com/ambientlabs/permitory/pkg/permit"
)

func NewGenerateCommand(c *Context) *cobra.Command {
	var (
		keyType string
		name    string
		keysNum int
	)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and store key(s) in the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := c.keyring.(keyring.Generator)
			if !ok {
				return fmt.Errorf("keyring %s cannot generate keys", c.keyring.Name())
			}
			kt, err := permit.ParseKeyType(keyType)
			if err != nil {
				return err
			}

			keys := make([]keyring.KeyReference, keysNum)
			for i := 0; i < keysNum; i++ {
				id := name
				if keysNum > 1 && name != "" {
					id = fmt.Sprintf("%s-%d", name, i+1)
				}
				if keys[i], err = gen.Generate(c.Context, kt, id); err != nil {
					return err
				}
			}
			return listTpl.Execute(os.Stdout, listEntries(keys))
		},
	}

	generateCmd.Flags().StringVarP(&keyType, "type", "t", "ed25519", "Key algorithm: [ed25519, secp256k1]")
	generateCmd.Flags().StringVar(&name, "name", "", "Key id, generated when empty")
	generateCmd.Flags().IntVarP(&keysNum, "num", "n", 1, "Number of keys to generate")

	return generateCmd
}
