package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ambientlabs/permitory/pkg/fixture"
)

func NewFixtureCommand(c *Context) *cobra.Command {
	fixtureCmd := &cobra.Command{
		Use:   "fixture",
		Short: "Generate and check cross-implementation signing vectors",
	}

	var output string
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the built-in vector corpus to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			vectors, err := fixture.Generate(fixture.Corpus())
			if err != nil {
				return err
			}
			if err := fixture.Write(output, vectors); err != nil {
				return err
			}
			fmt.Printf("Wrote %d vectors to %s\n", len(vectors), output)
			return nil
		},
	}
	generateCmd.Flags().StringVarP(&output, "out", "o", "vectors.json", "Output file")

	checkCmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Check every vector in a file for internal consistency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vectors, err := fixture.Read(args[0])
			if err != nil {
				return err
			}
			if err := fixture.Check(vectors); err != nil {
				return err
			}
			fmt.Printf("%d vectors OK\n", len(vectors))
			return nil
		},
	}

	fixtureCmd.AddCommand(generateCmd)
	fixtureCmd.AddCommand(checkCmd)
	return fixtureCmd
}
