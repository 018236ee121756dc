package commands

import (
	"encoding/hex"
	"os"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/ambientlabs/permitory/pkg/crypt"
	"github.com/ambientlabs/permitory/pkg/keyring"
)

const listTemplateSrc = `{{range . -}}
Key ID:     {{.ID}}
Algorithm:  {{.Algorithm}}
Public Key: {{.PublicKey}}
Keyring:    {{.Keyring}}

{{end -}}
`

var listTpl = template.Must(template.New("list").Parse(listTemplateSrc))

type listEntry struct {
	ID        string
	Algorithm string
	PublicKey string
	Keyring   string
}

func listEntries(keys []keyring.KeyReference) []listEntry {
	out := make([]listEntry, len(keys))
	for i, key := range keys {
		pub := key.PublicKey()
		out[i] = listEntry{
			ID:        key.ID(),
			Algorithm: pub.KeyType().String(),
			PublicKey: hex.EncodeToString(crypt.PublicKeyBytes(pub)),
			Keyring:   key.Keyring().Name(),
		}
	}
	return out
}

func NewListCommand(c *Context) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored signing keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := keyring.Collect(c.keyring.List(c.Context))
			if err != nil {
				return err
			}
			return listTpl.Execute(os.Stdout, listEntries(keys))
		},
	}

	return listCmd
}
