package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "blockdup",
		Short:   "Find duplicate files without hashing them",
		Version: version + " (" + commit + ")",
	}

	findCmd := newFindCmd()
	root.AddCommand(findCmd)

	// A bare "blockdup dir [dir...]" invocation behaves like "blockdup find
	// dir [dir...]": this keeps the single-verb command-line shape usable
	// without typing "find" every time.
	root.Args = cobra.ArbitraryArgs
	root.RunE = findCmd.RunE
	root.Flags().AddFlagSet(findCmd.Flags())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
