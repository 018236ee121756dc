package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ambientlabs/permitory/pkg/metrics"
)

func NewVersionCommand(c *Context) *cobra.Command {
	versionCmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Show build version/release (short alias 'v')",
		RunE: func(cmd *cobra.Command, args []string) error {
			if metrics.GitRevision != metrics.GitBranch {
				fmt.Println("GitRevision: " + metrics.GitRevision)
				fmt.Println("GitBranch: " + metrics.GitBranch)
			} else {
				fmt.Println("Release Version: " + metrics.GitRevision)
			}
			return nil
		},
	}

	return versionCmd
}
