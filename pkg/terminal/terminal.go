package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-delve/liner"
	"github.com/mattn/go-isatty"

	"github.com/rdbg/rdb/pkg/config"
	"github.com/rdbg/rdb/pkg/logflags"
	"github.com/rdbg/rdb/pkg/proc"
)

const (
	terminalHighlightEscapeCode string = "\033[%2dm"
	terminalResetEscapeCode     string = "\033[0m"

	ansiYellow = 33
)

// lineEditor is the subset of *liner.State used by Term.
type lineEditor interface {
	Prompt(string) (string, error)
	AppendHistory(string)
	ReadHistory(io.Reader) (int, error)
	WriteHistory(io.Writer) (int, error)
	SetCompleter(liner.Completer)
	SetCtrlCAborts(bool)
	Close() error
}

// Term represents the terminal running rdb.
type Term struct {
	target proc.Process
	conf   *config.Config
	prompt string
	line   lineEditor
	cmds   *Commands
	dumb   bool
	stdout io.Writer
	stderr io.Writer
}

// New returns a new Term.
func New(target proc.Process, conf *config.Config) *Term {
	if conf == nil {
		conf = &config.Config{}
	}
	dumb := strings.ToLower(os.Getenv("TERM")) == "dumb" || !isatty.IsTerminal(os.Stdout.Fd())
	return newTerm(target, conf, liner.NewLiner(), getColorableWriter(), os.Stderr, dumb)
}

func newTerm(target proc.Process, conf *config.Config, line lineEditor, stdout, stderr io.Writer, dumb bool) *Term {
	cmds := DebugCommands()
	if conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}
	return &Term{
		target: target,
		conf:   conf,
		prompt: conf.GetPrompt(),
		line:   line,
		cmds:   cmds,
		dumb:   dumb,
		stdout: stdout,
		stderr: stderr,
	}
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	t.line.Close()
}

// sigintGuard absorbs SIGINT while a command is waiting on the target.
// The target shares our process group, so it receives the same signal
// and the pending wait returns when it stops.
func (t *Term) sigintGuard(ch <-chan os.Signal) {
	for range ch {
		logflags.TerminalLogger().Debugf("received SIGINT")
	}
}

// Run begins running rdb in the terminal. It returns the exit status of
// the session: the session ends with status 0 at end of input, or with
// the status requested by a command that can not be recovered from.
func (t *Term) Run() (int, error) {
	defer t.Close()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	defer func() {
		signal.Stop(ch)
		close(ch)
	}()
	go t.sigintGuard(ch)

	t.line.SetCtrlCAborts(true)
	t.line.SetCompleter(func(line string) []string {
		return t.cmds.Complete(line)
	})

	t.loadHistory()

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return t.handleExit(0)
			}
			if err == liner.ErrPromptAborted {
				fmt.Fprintln(t.stdout, "^C")
				continue
			}
			return 1, fmt.Errorf("prompt for input failed: %v", err)
		}

		if strings.TrimSpace(cmdstr) == "" {
			continue
		}

		if err := t.cmds.Call(cmdstr, t); err != nil {
			var exitErr ExitRequestError
			if errors.As(err, &exitErr) {
				if exitErr.Err != nil {
					fmt.Fprintln(t.stderr, exitErr.Err)
				}
				return t.handleExit(exitErr.Status)
			}
			fmt.Fprintf(t.stderr, "Command failed: %s\n", err)
		}
	}
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if strings.TrimSpace(l) != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) loadHistory() {
	log := logflags.TerminalLogger()
	fullHistoryFile, err := t.conf.GetHistoryFilePath()
	if err != nil {
		log.Warnf("unable to load history file: %v", err)
		return
	}
	f, err := os.Open(fullHistoryFile)
	if err != nil {
		log.Debugf("no previous history: %v", err)
		return
	}
	defer f.Close()
	if _, err := t.line.ReadHistory(f); err != nil {
		log.Warnf("readline history error: %v", err)
	}
}

func (t *Term) handleExit(status int) (int, error) {
	fullHistoryFile, err := t.conf.GetHistoryFilePath()
	if err != nil {
		fmt.Fprintln(t.stderr, "Error saving history file:", err)
		return status, nil
	}
	f, err := os.OpenFile(fullHistoryFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		fmt.Fprintln(t.stderr, "Error saving history file:", err)
		return status, nil
	}
	defer f.Close()
	if _, err := t.line.WriteHistory(f); err != nil {
		fmt.Fprintln(t.stderr, "readline history error:", err)
	}
	return status, nil
}

func (t *Term) printStop(sig syscall.Signal) {
	msg := StopMessage(t.target.Pid(), sig)
	if !t.dumb {
		msg = fmt.Sprintf(terminalHighlightEscapeCode, ansiYellow) + msg + terminalResetEscapeCode
	}
	fmt.Fprintln(t.stdout, msg)
}

// StopMessage describes the target pid being stopped by sig.
func StopMessage(pid int, sig syscall.Signal) string {
	return fmt.Sprintf("Process %d stopped by signal %s", pid, signalName(sig))
}
