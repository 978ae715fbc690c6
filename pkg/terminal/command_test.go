package terminal

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/go-delve/liner"

	"github.com/rdbg/rdb/pkg/config"
	"github.com/rdbg/rdb/pkg/proc"
)

// fakeProcess records the calls made by the terminal and replays
// scripted results.
type fakeProcess struct {
	state     proc.RunState
	resumes   int
	waits     int
	resumeErr error
	waitErr   error
	stopSig   syscall.Signal
	closed    bool
}

func (p *fakeProcess) Pid() int             { return 4242 }
func (p *fakeProcess) State() proc.RunState { return p.state }

func (p *fakeProcess) Resume() error {
	p.resumes++
	if p.resumeErr != nil {
		return p.resumeErr
	}
	p.state = proc.Running
	return nil
}

func (p *fakeProcess) Wait() (syscall.Signal, error) {
	p.waits++
	if p.waitErr != nil {
		p.state = proc.Exited
		return 0, p.waitErr
	}
	p.state = proc.Stopped
	return p.stopSig, nil
}

func (p *fakeProcess) Close() error {
	p.closed = true
	return nil
}

// fakeLine feeds scripted lines to the terminal. Once the script is
// exhausted Prompt returns io.EOF.
type fakeLine struct {
	input   []string
	errs    map[int]error
	history []string
	n       int
	closed  bool
}

func (l *fakeLine) Prompt(string) (string, error) {
	defer func() { l.n++ }()
	if err, ok := l.errs[l.n]; ok {
		return "", err
	}
	if l.n >= len(l.input) {
		return "", io.EOF
	}
	return l.input[l.n], nil
}

func (l *fakeLine) AppendHistory(s string) { l.history = append(l.history, s) }

func (l *fakeLine) ReadHistory(r io.Reader) (int, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	l.history = append(l.history, lines...)
	return len(lines), nil
}

func (l *fakeLine) WriteHistory(w io.Writer) (int, error) {
	for _, h := range l.history {
		io.WriteString(w, h+"\n")
	}
	return len(l.history), nil
}

func (l *fakeLine) SetCompleter(liner.Completer) {}
func (l *fakeLine) SetCtrlCAborts(bool)          {}
func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

func newTestTerm(t *testing.T, p *fakeProcess, conf *config.Config, input ...string) (*Term, *fakeLine, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	if conf == nil {
		conf = &config.Config{}
	}
	if conf.HistoryFile == "" {
		conf.HistoryFile = filepath.Join(t.TempDir(), "history")
	}
	line := &fakeLine{input: input}
	var stdout, stderr bytes.Buffer
	return newTerm(p, conf, line, &stdout, &stderr, true), line, &stdout, &stderr
}

func TestContinuePrefixes(t *testing.T) {
	for _, cmdstr := range []string{"c", "co", "cont", "continue", "  cont  ", "c extra args"} {
		p := &fakeProcess{state: proc.Stopped, stopSig: syscall.SIGTRAP}
		term, _, stdout, _ := newTestTerm(t, p, nil)
		if err := term.cmds.Call(cmdstr, term); err != nil {
			t.Fatalf("%q: %v", cmdstr, err)
		}
		if p.resumes != 1 || p.waits != 1 {
			t.Fatalf("%q: expected exactly one resume and one wait, got %d %d", cmdstr, p.resumes, p.waits)
		}
		if p.state != proc.Stopped {
			t.Errorf("%q: expected state stopped, got %v", cmdstr, p.state)
		}
		if got := stdout.String(); got != "Process 4242 stopped by signal SIGTRAP\n" {
			t.Errorf("%q: wrong output %q", cmdstr, got)
		}
	}
}

func TestUnknownCommands(t *testing.T) {
	for _, cmdstr := range []string{"cx", "", "   ", "continues", "C", "Continue", "x", "break main"} {
		p := &fakeProcess{state: proc.Stopped}
		term, _, _, _ := newTestTerm(t, p, nil)
		err := term.cmds.Call(cmdstr, term)
		var uerr UnknownCommandError
		if !errors.As(err, &uerr) {
			t.Fatalf("%q: expected UnknownCommandError, got %v", cmdstr, err)
		}
		if p.resumes != 0 || p.waits != 0 || p.state != proc.Stopped {
			t.Fatalf("%q: state changed by rejected command", cmdstr)
		}
	}
}

func TestResumeFailureEndsSession(t *testing.T) {
	p := &fakeProcess{state: proc.Stopped, resumeErr: &proc.ResumeError{Pid: 4242, Err: syscall.ESRCH}}
	term, line, _, stderr := newTestTerm(t, p, nil, "c", "c")
	status, err := term.Run()
	if err != nil {
		t.Fatal(err)
	}
	if status != 1 {
		t.Fatalf("expected exit status 1, got %d", status)
	}
	if p.resumes != 1 || p.waits != 0 {
		t.Fatalf("expected one resume and no wait, got %d %d", p.resumes, p.waits)
	}
	if !strings.Contains(stderr.String(), "could not continue process 4242") {
		t.Errorf("resume failure not reported: %q", stderr.String())
	}
	if !line.closed {
		t.Error("line editor not closed")
	}
}

func TestWaitFailureEndsSession(t *testing.T) {
	p := &fakeProcess{state: proc.Stopped, waitErr: &proc.UnexpectedWaitStatusError{Pid: 4242, Status: "exited with status 0"}}
	term, _, _, stderr := newTestTerm(t, p, nil, "continue", "continue")
	status, err := term.Run()
	if err != nil {
		t.Fatal(err)
	}
	if status != 1 {
		t.Fatalf("expected exit status 1, got %d", status)
	}
	if p.resumes != 1 || p.waits != 1 {
		t.Fatalf("expected one resume+wait cycle, got %d %d", p.resumes, p.waits)
	}
	if !strings.Contains(stderr.String(), "exited with status 0") {
		t.Errorf("unexpected status not reported: %q", stderr.String())
	}
}

func TestRunSession(t *testing.T) {
	p := &fakeProcess{state: proc.Stopped, stopSig: syscall.SIGINT}
	term, line, stdout, stderr := newTestTerm(t, p, nil, "", "c", "bogus", "   ", "cont")
	status, err := term.Run()
	if err != nil {
		t.Fatal(err)
	}
	if status != 0 {
		t.Fatalf("expected exit status 0 at end of input, got %d", status)
	}
	if p.resumes != 2 || p.waits != 2 {
		t.Fatalf("expected two resume+wait cycles, got %d %d", p.resumes, p.waits)
	}
	if got := stderr.String(); got != "Command failed: unknown command: bogus\n" {
		t.Errorf("wrong error output %q", got)
	}
	if !strings.HasSuffix(stdout.String(), "exit\n") {
		t.Errorf("end of input not reported: %q", stdout.String())
	}
	if strings.Join(line.history, "|") != "c|bogus|cont" {
		t.Errorf("wrong history %q", line.history)
	}
}

func TestInterruptDoesNotEndSession(t *testing.T) {
	p := &fakeProcess{state: proc.Stopped, stopSig: syscall.SIGTRAP}
	term, line, stdout, _ := newTestTerm(t, p, nil, "", "c")
	line.errs = map[int]error{0: liner.ErrPromptAborted}
	status, err := term.Run()
	if err != nil || status != 0 {
		t.Fatalf("unexpected result %d %v", status, err)
	}
	if !strings.HasPrefix(stdout.String(), "^C\n") {
		t.Errorf("interrupt not echoed: %q", stdout.String())
	}
	if p.resumes != 1 {
		t.Errorf("session did not continue after interrupt")
	}
}

func TestHistoryPersisted(t *testing.T) {
	conf := &config.Config{HistoryFile: filepath.Join(t.TempDir(), "history")}

	term, _, _, _ := newTestTerm(t, &fakeProcess{stopSig: syscall.SIGTRAP}, conf, "cont", "c")
	if _, err := term.Run(); err != nil {
		t.Fatal(err)
	}

	term, line, _, _ := newTestTerm(t, &fakeProcess{stopSig: syscall.SIGTRAP}, conf)
	if _, err := term.Run(); err != nil {
		t.Fatal(err)
	}
	if strings.Join(line.history, "|") != "cont|c" {
		t.Fatalf("history not reloaded: %q", line.history)
	}
}

func TestAliases(t *testing.T) {
	conf := &config.Config{Aliases: map[string][]string{"continue": {"run"}}}
	p := &fakeProcess{state: proc.Stopped, stopSig: syscall.SIGTRAP}
	term, _, _, _ := newTestTerm(t, p, conf)
	for _, cmdstr := range []string{"r", "run", "c"} {
		if err := term.cmds.Call(cmdstr, term); err != nil {
			t.Fatalf("%q: %v", cmdstr, err)
		}
	}
	if p.resumes != 3 {
		t.Fatalf("expected 3 resumes, got %d", p.resumes)
	}
	if !strings.Contains(term.cmds.Help(), "Aliases: run") {
		t.Errorf("aliases missing from help: %q", term.cmds.Help())
	}
}

func TestAmbiguousCommand(t *testing.T) {
	cmds := DebugCommands()
	var called string
	cmds.cmds = append(cmds.cmds, command{aliases: []string{"clear"}, cmdFn: func(t *Term, args string) error {
		called = "clear"
		return nil
	}})
	cmds.index()

	_, err := cmds.Find("c")
	var aerr AmbiguousCommandError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AmbiguousCommandError, got %v", err)
	}
	if strings.Join(aerr.Candidates, ",") != "clear,continue" {
		t.Errorf("wrong candidates %v", aerr.Candidates)
	}

	if err := cmds.Call("cl", nil); err != nil || called != "clear" {
		t.Fatalf("unique prefix did not resolve: %v %q", err, called)
	}
}

func TestComplete(t *testing.T) {
	cmds := DebugCommands()
	cmds.Merge(map[string][]string{"continue": {"cc"}})
	if got := strings.Join(cmds.Complete("c"), ","); got != "cc,continue" {
		t.Errorf("wrong completions %q", got)
	}
	if got := cmds.Complete("x"); len(got) != 0 {
		t.Errorf("unexpected completions %q", got)
	}
}

func TestStopMessage(t *testing.T) {
	if got := StopMessage(12, syscall.SIGSTOP); got != "Process 12 stopped by signal SIGSTOP" {
		t.Errorf("wrong message %q", got)
	}
}
