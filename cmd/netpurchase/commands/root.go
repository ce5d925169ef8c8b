package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd assembles the netpurchase command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "netpurchase",
		Short: "Flag purchases that stand out from a user's social network",
		Long: `netpurchase replays a batch log to build the friendship graph and
purchase history, then scores every stream purchase against the spend of
the purchaser's network within D degrees.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")

	root.AddCommand(newRunCmd(&cfgFile))
	root.AddCommand(newDatagenCmd())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
