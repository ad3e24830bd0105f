// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// Command is one node of the strata command tree. A node either runs
// (Run) or dispatches to Subcommands by the first positional argument;
// when it has both, Run handles arguments that match no subcommand.
type Command struct {
	Name        string
	Summary     string // one line, shown in the parent's command list
	Description string // shown at the top of this command's help
	Usage       string // synthesized from the command path when empty
	Examples    []Example

	// Flags builds the command's flag set. It may be called more than
	// once (parsing, suggestions, help), so it must bind the same
	// variables each time. Nil means the command takes no flags.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run receives the positional arguments left after flag parsing.
	Run func(args []string) error

	// HelpOutput receives help text. Nil inherits the parent's, and
	// stderr at the root.
	HelpOutput io.Writer

	parent *Command
}

// Example is a usage example shown in help output.
type Example struct {
	Description string
	Command     string
}

// Execute runs the command tree against args (without the program
// name).
func (c *Command) Execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.helpOutput())
		return nil
	}

	if sub, err := c.dispatch(args); sub != nil || err != nil {
		if err != nil {
			return err
		}
		return sub.Execute(args[1:])
	}

	if c.Run == nil {
		c.PrintHelp(c.helpOutput())
		switch {
		case len(c.Subcommands) == 0:
			return fmt.Errorf("no action defined for %q", c.fullName())
		case len(args) == 0:
			return fmt.Errorf("subcommand required")
		default:
			return fmt.Errorf("subcommand required (got flag %q)", args[0])
		}
	}

	positional, err := c.parseFlags(args)
	if err != nil {
		return err
	}
	return c.Run(positional)
}

// dispatch picks the subcommand named by args[0]. It returns (nil,
// nil) when this command should handle args itself.
func (c *Command) dispatch(args []string) (*Command, error) {
	if len(c.Subcommands) == 0 || len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return nil, nil
	}
	for _, sub := range c.Subcommands {
		if sub.Name == args[0] {
			sub.parent = c
			return sub, nil
		}
	}
	if c.Run != nil {
		return nil, nil
	}
	if suggestion := suggestCommand(args[0], c.Subcommands); suggestion != "" {
		return nil, c.usageError("unknown command %q (did you mean %q?)", args[0], suggestion)
	}
	return nil, c.usageError("unknown command %q", args[0])
}

// parseFlags parses args against the command's flag set and returns
// the positional arguments.
func (c *Command) parseFlags(args []string) ([]string, error) {
	if c.Flags == nil {
		for _, arg := range args {
			if arg == "--" {
				break
			}
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return nil, c.usageError("%s takes no flags (got %q)", c.fullName(), arg)
			}
		}
		return args, nil
	}

	flagSet := c.Flags()
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() {}
	if err := flagSet.Parse(args); err != nil {
		// pflag reports unknown long and short flags with this prefix.
		if strings.HasPrefix(err.Error(), "unknown") {
			if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
				return nil, c.usageError("%v (did you mean %s?)", err, suggestion)
			}
		}
		return nil, c.usageError("%v", err)
	}
	return flagSet.Args(), nil
}

// usageError formats a message followed by a pointer to --help.
func (c *Command) usageError(format string, args ...any) error {
	return fmt.Errorf("%s\n\nRun '%s --help' for usage.", fmt.Sprintf(format, args...), c.fullName())
}

// fullName is the command path from the root, e.g. "strata select".
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func (c *Command) helpOutput() io.Writer {
	for command := c; command != nil; command = command.parent {
		if command.HelpOutput != nil {
			return command.HelpOutput
		}
	}
	return os.Stderr
}

func isHelpFlag(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}

// RequireArgs checks the positional argument count. A negative maximum
// means unbounded.
func RequireArgs(command string, args []string, minimum, maximum int) error {
	if len(args) < minimum {
		return fmt.Errorf("%s: expected at least %d argument(s), got %d", command, minimum, len(args))
	}
	if maximum >= 0 && len(args) > maximum {
		return fmt.Errorf("%s: expected at most %d argument(s), got %d: %s",
			command, maximum, len(args), strings.Join(args[maximum:], " "))
	}
	return nil
}
