// Package terminal implements functions for responding to user
// input and dispatching to appropriate backend commands.
package terminal

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/derekparker/trie"
)

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases        []string
	builtinAliases []string
	helpMsg        string
	cmdFn          cmdfunc
}

// Commands represents the commands for the rdb terminal process.
type Commands struct {
	cmds []command
	// names maps every alias to the index of its command in cmds.
	names *trie.Trie
}

// DebugCommands returns a Commands struct with default commands defined.
func DebugCommands() *Commands {
	c := &Commands{}

	c.cmds = []command{
		{aliases: []string{"continue"}, cmdFn: cont, helpMsg: `Run until the target stops.

	continue

Resumes the target and waits for it to be stopped by a signal. Any
prefix of the command name is accepted, so c, co and cont all work.
The session ends if the target can not be resumed or if it stops
for a reason other than a signal, for example because it exited.`},
	}

	c.index()
	return c
}

func (c *Commands) index() {
	c.names = trie.New()
	for i := range c.cmds {
		for _, alias := range c.cmds[i].aliases {
			c.names.Add(alias, i)
		}
	}
}

// Merge takes aliases defined in the config struct and merges them with the default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
	c.index()
}

// UnknownCommandError is returned when the first word of a command line
// is not a prefix of any command name.
type UnknownCommandError struct {
	Name string
}

func (e UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Name)
}

// AmbiguousCommandError is returned when the first word of a command
// line is a prefix of the names of more than one command.
type AmbiguousCommandError struct {
	Name       string
	Candidates []string
}

func (e AmbiguousCommandError) Error() string {
	return fmt.Sprintf("ambiguous command %s: could be %s", e.Name, strings.Join(e.Candidates, ", "))
}

// Find will look up the command function for the given command name.
// cmdstr can be any prefix of a name or alias of the command, as long as
// it does not also prefix a name of a different command.
func (c *Commands) Find(cmdstr string) (cmdfunc, error) {
	if cmdstr == "" {
		return nil, UnknownCommandError{Name: cmdstr}
	}

	found := -1
	ambiguous := false
	var candidates []string
	for _, key := range c.names.PrefixSearch(cmdstr) {
		node, ok := c.names.Find(key)
		if !ok {
			continue
		}
		candidates = append(candidates, key)
		i := node.Meta().(int)
		if found >= 0 && found != i {
			ambiguous = true
		}
		found = i
	}
	if found < 0 {
		return nil, UnknownCommandError{Name: cmdstr}
	}
	if ambiguous {
		sort.Strings(candidates)
		return nil, AmbiguousCommandError{Name: cmdstr, Candidates: candidates}
	}
	return c.cmds[found].cmdFn, nil
}

// Complete returns the names of all commands starting with prefix.
func (c *Commands) Complete(prefix string) []string {
	r := c.names.PrefixSearch(prefix)
	sort.Strings(r)
	return r
}

// Call takes a command line, splits it on whitespace and executes the
// command named by its first word.
func (c *Commands) Call(cmdstr string, t *Term) error {
	fields := strings.Fields(cmdstr)
	var cmdname, args string
	if len(fields) > 0 {
		cmdname = fields[0]
		args = strings.Join(fields[1:], " ")
	}
	fn, err := c.Find(cmdname)
	if err != nil {
		return err
	}
	return fn(t, args)
}

// ExitRequestError is returned when a command ends the debug session.
// Status is the exit status of the debugger, Err the reason, if any.
type ExitRequestError struct {
	Status int
	Err    error
}

func (ere ExitRequestError) Error() string {
	if ere.Err == nil {
		return ""
	}
	return ere.Err.Error()
}

func (ere ExitRequestError) Unwrap() error {
	return ere.Err
}

var errNoTarget = errors.New("no process is being debugged")

func cont(t *Term, args string) error {
	if t.target == nil {
		return errNoTarget
	}
	if err := t.target.Resume(); err != nil {
		return ExitRequestError{Status: 1, Err: err}
	}
	sig, err := t.target.Wait()
	if err != nil {
		return ExitRequestError{Status: 1, Err: err}
	}
	t.printStop(sig)
	return nil
}

// Help returns the help text of every command.
func (c *Commands) Help() string {
	var b strings.Builder
	for i, cmd := range c.cmds {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s", cmd.helpMsg)
		if len(cmd.aliases) > 1 {
			fmt.Fprintf(&b, "\n\nAliases: %s", strings.Join(cmd.aliases[1:], " "))
		}
	}
	return b.String()
}
