// benchcheck walks the instruments in a benchsrv config file and verifies
// that each one is reachable and healthy before a measurement campaign.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/powerman/structlog"
	"github.com/spf13/cobra"
	"github.com/theckman/yacspin"

	yml "gopkg.in/yaml.v2"
)

// Version is the version number.  Typically injected via ldflags with git build
var Version = "1"

var log = structlog.New()

type checkFlags struct {
	config  string
	timeout time.Duration
	drain   bool
}

func newCheckCmd() *cobra.Command {
	flags := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe every instrument in the config and report health",
		Long: `check connects to each node in the config file in turn, asks it to
identify itself, runs its self test where the hardware supports one, and
drains any stale entries from its error queue.  Failures are aggregated
so one dead instrument does not hide another.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(flags)
		},
	}
	cmd.Flags().StringVarP(&flags.config, "config", "c", "benchsrv.yml", "Path to the benchsrv config file")
	cmd.Flags().DurationVarP(&flags.timeout, "timeout", "t", 30*time.Second, "Per-instrument self test timeout")
	cmd.Flags().BoolVar(&flags.drain, "drain", true, "Drain each instrument's error queue")
	return cmd
}

func runCheck(flags *checkFlags) error {
	cfg, err := loadConfig(flags.config)
	if err != nil {
		return err
	}
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("config %s names no instruments", flags.config)
	}
	var failures *multierror.Error
	for _, node := range cfg.Nodes {
		err := checkNode(node, flags)
		if err != nil {
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", node.Endpoint, err))
		}
	}
	return failures.ErrorOrNil()
}

func checkNode(node ObjSetup, flags *checkFlags) error {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " " + node.Endpoint,
		SuffixAutoColon:   true,
		StopCharacter:     "OK",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "FAIL",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		return err
	}
	spinner.Start()

	probe, err := newProbe(node)
	if err != nil {
		spinner.StopFail()
		return err
	}

	spinner.Message("identifying")
	id, err := probe.identify()
	if err != nil {
		spinner.StopFail()
		return err
	}
	log.Info("identified", "endpoint", node.Endpoint, "idn", id)

	if probe.selfTest != nil {
		spinner.Message("self test")
		if err := probe.selfTest(flags.timeout); err != nil {
			spinner.StopFail()
			return err
		}
	}

	if flags.drain && probe.drain != nil {
		spinner.Message("draining error queue")
		n := probe.drain()
		if n > 0 {
			log.Info("drained stale errors", "endpoint", node.Endpoint, "count", n)
		}
	}

	spinner.StopMessage(id)
	spinner.Stop()
	return nil
}

func newMkconfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkconf",
		Short: "Write a skeleton config file to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := Config{
				Addr: ":8000",
				Nodes: []ObjSetup{
					{Addr: "192.168.100.10:5025", Endpoint: "/bench/dmm", Type: "dmm"},
					{Addr: "/dev/ttyS0", Endpoint: "/bench/balance", Type: "balance", Serial: true},
				},
			}
			return yml.NewEncoder(os.Stdout).Encode(c)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("benchcheck version %v\n", Version)
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "benchcheck",
		Short: "Pre-flight health checks for bench instruments",
		Long: `benchcheck reads the same yaml config as benchsrv and probes each
instrument named in it: identification, self test, error queue.  Run it
before a measurement campaign to find dead cables and wedged instruments.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newCheckCmd(), newMkconfCmd(), newVersionCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
