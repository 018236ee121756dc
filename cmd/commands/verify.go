package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ambientlabs/permitory/pkg/permit"
	"github.com/ambientlabs/permitory/pkg/verifier"
)

func NewVerifyCommand(c *Context) *cobra.Command {
	var (
		submitter string
		feeQuote  uint64
	)

	verifyCmd := &cobra.Command{
		Use:   "verify <hex-envelope> <hex-signature>",
		Short: "Run the full acceptance pipeline on a signed envelope",
		Long: "Run the full acceptance pipeline on a signed envelope. " +
			"Acceptance consumes the permit: a second run on the same bytes is rejected as a replay.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(args[0])
			if err != nil {
				return err
			}
			sig, err := hex.DecodeString(args[1])
			if err != nil {
				return err
			}

			req := verifier.Request{
				Envelope:  raw,
				Signature: sig,
			}
			if submitter != "" {
				pk, err := permit.ParsePubKey(submitter)
				if err != nil {
					return err
				}
				req.Submitter = &pk
			}
			if cmd.Flags().Changed("fee") {
				req.FeeQuote = &feeQuote
			}

			event, err := c.verifier.Verify(c.Context, &req)
			if err != nil {
				return err
			}

			fmt.Printf("Permit consumed\n")
			fmt.Printf("Hash:       %s\n", hex.EncodeToString(event.PermitHash[:]))
			fmt.Printf("Authorizer: %s\n", event.Authorizer)
			fmt.Printf("Action:     %s\n", event.Action)
			fmt.Printf("Mode:       %s (%d)\n", event.Mode, event.ReplayValue)
			return nil
		},
	}

	verifyCmd.Flags().StringVar(&submitter, "submitter", "", "Base58 key of the relaying party")
	verifyCmd.Flags().Uint64Var(&feeQuote, "fee", 0, "Fee to check against the envelope fee bound")

	return verifyCmd
}
