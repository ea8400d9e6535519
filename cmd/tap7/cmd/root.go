package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTAP7/internal/config"
	"github.com/OpenTraceLab/OpenTraceTAP7/internal/logging"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/bsdl"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/session"
)

var (
	// Global flags
	deviceName string
	frequency  uint32
	readyCount int
	delayCount int
	scanFormat string
	configPath string
	bsdlDir    string
	verbose    bool
)

// opener opens the resolved device name.
var opener jtag.Opener = jtag.Open

var rootCmd = &cobra.Command{
	Use:   "tap7 -d <device>",
	Short: "IEEE 1149.7 two-wire bring-up and IDCODE scan",
	Long: `Bring a TAP.7 controller from its four-wire state into a two-wire scan
format and read the IDCODE of every device in the chain, once before and
once after the switch.

Examples:
  tap7 -d sim                                # Simulated three-device chain
  tap7 -d cmsisdap -f 1000000 -v             # Raspberry Pi probe at 1 MHz
  tap7 -d bench -rdyc 2 -dlyc 1 -sfmt MScan  # Alias from the config file
  tap7 -d sim -v --bsdl ./bsdl               # Name parts from BSDL files`,
	Version:       "0.1.0",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSession,
}

// Execute runs the root command with the process arguments and exits.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the CLI and returns the process exit code. Errors are
// reported on out.
func run(args []string, out io.Writer) int {
	rootCmd.SetArgs(normalizeArgs(args))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(out, newStyles(out).errorLine(err))
		return 1
	}
	return 0
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&deviceName, "device", "d", "", "device name, alias or spec (sim, sim:<ids>, cmsisdap[:<vid>:<pid>])")
	flags.Uint32VarP(&frequency, "freq", "f", 0, "TCK frequency in Hz")
	flags.IntVar(&readyCount, "rdyc", 0, "ready bit count (1-4)")
	flags.IntVar(&delayCount, "dlyc", 0, "delay count (1, 2, or larger for variable)")
	flags.StringVar(&scanFormat, "sfmt", "", "scan format (MScan, OScan0, OScan1)")
	flags.StringVar(&configPath, "config", "", "device alias file (default $"+config.EnvPath+")")
	flags.StringVar(&bsdlDir, "bsdl", "", "directory of BSDL files used to name parts in verbose output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func runSession(cmd *cobra.Command, args []string) error {
	log := logging.New(os.Stderr, logging.Options{
		Verbose: verbose,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	if bsdlDir != "" {
		catalog, err := bsdl.LoadDir(bsdlDir)
		if catalog == nil {
			return err
		}
		if err != nil {
			log.Warn("some BSDL files were skipped", "error", err)
		}
		log.Debug("BSDL catalog loaded", "dir", bsdlDir, "parts", catalog.Len())
		opts.Parts = catalog
	}

	rep, err := session.New(opts, opener, cmd.OutOrStdout(), log).Run()
	if err != nil {
		return err
	}
	log.Debug("session complete", "device", opts.Device, "before", len(rep.FourWire), "after", len(rep.TwoWire))
	return nil
}

// buildOptions resolves the device through the alias file and layers the
// explicitly set flags on top.
func buildOptions(cmd *cobra.Command) (session.Options, error) {
	opts := session.DefaultOptions()

	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return opts, fmt.Errorf("load config: %w", err)
	}
	if alias, ok := cfg.Lookup(deviceName); ok {
		if err := alias.Apply(&opts); err != nil {
			return opts, err
		}
	} else {
		opts.Device = deviceName
	}

	flags := cmd.Flags()
	if flags.Changed("freq") {
		opts.Frequency, opts.FrequencySet = frequency, true
	}
	if flags.Changed("rdyc") {
		opts.ReadyCount = readyCount
	}
	if flags.Changed("dlyc") {
		opts.DelayCount = delayCount
	}
	if flags.Changed("sfmt") {
		f, err := session.ParseScanFormat(scanFormat)
		if err != nil {
			return opts, err
		}
		opts.ScanFormat = f
	}
	opts.Verbose = verbose
	return opts, nil
}
