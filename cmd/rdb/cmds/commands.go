package cmds

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rdbg/rdb/pkg/config"
	"github.com/rdbg/rdb/pkg/logflags"
	"github.com/rdbg/rdb/pkg/proc"
	"github.com/rdbg/rdb/pkg/proc/native"
	"github.com/rdbg/rdb/pkg/terminal"
	"github.com/rdbg/rdb/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// attachPid is the textual pid passed with -p.
	attachPid string

	// exitStatus is the exit status of the last debug session.
	exitStatus int

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config

	// launchTarget and attachTarget acquire the target of a session.
	launchTarget = func(program string) (proc.Process, error) {
		p, err := native.Launch(program)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	attachTarget = func(pidText string) (proc.Process, error) {
		p, err := native.Attach(pidText)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
)

const rdbCommandLongDesc = `rdb is a minimal debugger.

rdb launches a program, or attaches to a running process, and places it under
trace control. The target is stopped as soon as rdb takes control of it and
can then be driven from the rdb>> prompt.

When the session ends (end of input, or a target that can no longer be
controlled) rdb releases the target: a launched program is killed, a process
rdb attached to is detached from and left running.

Commands available at the prompt:

`

const logHelp = `Logging is enabled with --log. --log-output selects the components that
produce debug output, as a comma separated list of:

	debugger	Log state transitions of the target (default)
	ptrace		Log every ptrace, kill and wait4 request
	terminal	Log terminal events

--log-dest writes logs to the specified file, or to the file descriptor if
a number is given.`

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()

	// Main rdb root command.
	rootCommand = &cobra.Command{
		Use:   "rdb [flags] <program> | rdb -p <pid>",
		Short: "rdb launches or attaches to a process and controls its execution.",
		Long:  rdbCommandLongDesc + terminal.DebugCommands().Help() + "\n\n" + logHelp,
		Args:  validateArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if cmd.Flags().Changed("pid") {
				exitStatus = execute(attachPid, "", conf)
				return
			}
			exitStatus = execute("", args[0], conf)
		},
	}

	rootCommand.PersistentFlags().SetNormalizeFunc(wordSepNormalizeFunc)
	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debugging logs.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (debugger, ptrace, terminal)`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor.")
	rootCommand.Flags().StringVarP(&attachPid, "pid", "p", "", "Attach to the running process with this pid instead of launching a program.")

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rdb Debugger\n%s\n", version.RdbVersion)
			if log {
				fmt.Fprintln(cmd.OutOrStdout(), version.BuildInfo())
			}
		},
	}
	rootCommand.AddCommand(versionCommand)

	return rootCommand
}

// Execute runs rdb with the given command line arguments and returns its
// exit status.
func Execute(args []string) int {
	exitStatus = 0
	cmd := New()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return exitStatus
}

// wordSepNormalizeFunc accepts log_output as a spelling of log-output.
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("pid") {
		if len(args) != 0 {
			return errors.New("-p takes a pid, a program can not be given as well")
		}
		return nil
	}
	switch len(args) {
	case 0:
		return errors.New("you must provide a program to launch or a pid to attach to with -p")
	case 1:
		return nil
	default:
		return errors.New("too many arguments: the program is launched without arguments")
	}
}

// execute runs a debug session against the process with pid pidText, or
// a new process running program if pidText is empty. It returns the exit
// status of rdb.
//
// Once the target has been acquired every return path releases it
// before the status is returned.
func execute(pidText, program string, conf *config.Config) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logflags.Close()

	// From here on an interrupt must not kill rdb before the target is
	// released. The terminal takes over reporting them once it runs.
	defer absorbInterrupts()()

	var (
		p   proc.Process
		err error
	)
	if pidText != "" || program == "" {
		p, err = attachTarget(pidText)
	} else {
		p, err = launchTarget(program)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer p.Close()

	// The target is not known to be stopped until we have waited on it.
	sig, err := p.Wait()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(terminal.StopMessage(p.Pid(), sig))

	term := terminal.New(p, conf)
	status, err := term.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	logflags.DebuggerLogger().WithField("pid", p.Pid()).Debugf("session ended with status %d", status)
	return status
}

// absorbInterrupts installs a SIGINT handler that discards the signal
// and returns a function that removes it.
func absorbInterrupts() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	go func() {
		for range ch {
			logflags.DebuggerLogger().Debugf("interrupt ignored")
		}
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}
