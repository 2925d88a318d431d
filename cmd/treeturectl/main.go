// Command treeturectl runs the bundled example workloads against a
// treeture.WorkerPool and reports how each one performed.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "treeturectl",
		Short: "Run treeture example workloads",
		Long:  `treeturectl drives the bundled divide-and-conquer example workloads against a work-stealing treeture.WorkerPool and reports their results.`,
	}
	root.AddCommand(newRunCmd())
	return root
}
