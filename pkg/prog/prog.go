// Package prog provides the entry point to vbridge. Each subcommand wires the
// bridge to an engine and a backend.
package prog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"src.vbridge.sh/pkg/config"
	"src.vbridge.sh/pkg/env"
	"src.vbridge.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[prog] ")

// Flags common to all commands.
type Flags struct {
	Config, Log, CPUProfile string
}

// State shared by the commands of one invocation.
type program struct {
	fds   [3]*os.File
	flags Flags
	cfg   *config.Config

	stopProfile func()
}

// Run parses command-line arguments and runs the selected command. It returns
// the exit status of the program.
func Run(fds [3]*os.File, args []string) int {
	p := &program{fds: fds}
	root := p.rootCommand()
	root.SetArgs(args[1:])
	root.SetIn(fds[0])
	root.SetOut(fds[1])
	root.SetErr(fds[2])

	cmd, err := root.ExecuteContextC(context.Background())
	if p.stopProfile != nil {
		p.stopProfile()
	}
	if err == nil {
		return 0
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(fds[2], msg)
	}
	var (
		bu badUsageError
		ex exitError
	)
	switch {
	case errors.As(err, &bu):
		fmt.Fprint(fds[2], cmd.UsageString())
	case errors.As(err, &ex):
		return ex.exit
	}
	return 2
}

func (p *program) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "vbridge",
		Short: "Drive a terminal widget tree from a virtual-tree engine",
		// Errors and usage are printed by Run.
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return p.setup() },
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return BadUsage(err.Error())
	})
	root.CompletionOptions.DisableDefaultCmd = true

	fs := root.PersistentFlags()
	fs.StringVar(&p.flags.Config, "config", "", "path to the configuration file")
	fs.StringVar(&p.flags.Log, "log", "", "a file to write debug log to")
	fs.StringVar(&p.flags.CPUProfile, "cpuprofile", "", "write cpu profile to file")

	root.AddCommand(
		p.runCommand(),
		p.renderCommand(),
		p.checkCommand(),
		p.serveCommand(),
		p.journalCommand(),
		p.versionCommand(),
	)
	return root
}

// Handles flags common to all commands.
func (p *program) setup() error {
	if p.flags.CPUProfile != "" {
		f, err := os.Create(p.flags.CPUProfile)
		if err != nil {
			fmt.Fprintln(p.fds[2], "Warning: cannot create CPU profile:", err)
			fmt.Fprintln(p.fds[2], "Continuing without CPU profiling.")
		} else {
			pprof.StartCPUProfile(f)
			p.stopProfile = func() {
				pprof.StopCPUProfile()
				f.Close()
			}
		}
	}

	cfg, err := config.Load(p.flags.Config)
	if err != nil {
		return err
	}
	p.cfg = cfg

	log := p.flags.Log
	if log == "" {
		log = os.Getenv(env.VBRIDGE_LOG)
	}
	if log == "" {
		log = cfg.Log
	}
	if log != "" {
		if err := logutil.SetOutputFile(log); err != nil {
			fmt.Fprintln(p.fds[2], err)
		}
	}
	logutil.Log(logger, "started", logutil.Fields{"args": os.Args[1:], "config": p.flags.Config})
	return nil
}

// BadUsage returns a special error that may be returned by a command. It
// causes Run to print out a message and the usage information of the command,
// and exit with 2.
func BadUsage(msg string) error { return badUsageError{msg} }

type badUsageError struct{ msg string }

func (e badUsageError) Error() string { return e.msg }

// Exit returns a special error that may be returned by a command. It causes
// Run to exit with the given code without printing any error messages. Exit(0)
// returns nil.
func Exit(exit int) error {
	if exit == 0 {
		return nil
	}
	return exitError{exit}
}

type exitError struct{ exit int }

func (e exitError) Error() string { return "" }

func exactArgs(n int, what string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return BadUsage(fmt.Sprintf("expected %s, got %d arguments", what, len(args)))
		}
		return nil
	}
}
