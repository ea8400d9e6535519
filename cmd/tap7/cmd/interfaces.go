package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/jtag"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List available two-wire adapters",
	Long: `Scan the host for USB debug probes and print the device spec to pass with -d
for each one. The built-in simulator is always listed.`,
	Args: cobra.NoArgs,
	RunE: runInterfaces,
}

// discoverInterfaces lists adapters for the interfaces command.
var discoverInterfaces = jtag.DiscoverInterfaces

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	infos, err := discoverInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("discover interfaces: %w", err)
	}

	out := cmd.OutOrStdout()
	st := newStyles(out)
	if len(infos) == 0 {
		fmt.Fprintln(out, "No interfaces found.")
		return nil
	}

	fmt.Fprintln(out, st.heading.Render("Detected interfaces:"))
	for _, iface := range infos {
		fmt.Fprintf(out, "  - %s [%s] %s\n", iface.Label(), iface.Kind, st.meta.Render("-d "+iface.Spec))
	}
	return nil
}
