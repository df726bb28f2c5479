// Package cli turns nota's command-line tokens into a Command descriptor.
//
// The grammar is deliberately loose: the first token names the command, a
// handful of flags are recognised anywhere after it, and every other token is
// ignored.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Hekzory/nota/internal/config"
)

const (
	// CommandComment is the only command nota knows.
	CommandComment = "comment"

	// DefaultConfigFile is used when --config is not given.
	DefaultConfigFile = config.DefaultPath
)

// ErrInvalidCommand is returned when no known command was given and help was
// not requested.
var ErrInvalidCommand = errors.New("unknown or missing command")

// MissingArgumentError reports a command or flag given without the value it
// needs. It matches ErrInvalidCommand with errors.Is.
type MissingArgumentError struct {
	Name    string // argument or flag name, e.g. "<input_file>" or "--config"
	Command string
}

func (e *MissingArgumentError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("missing %s for %q command", e.Name, e.Command)
	}
	return fmt.Sprintf("missing value for %s", e.Name)
}

// Is makes errors.Is(err, ErrInvalidCommand) hold.
func (e *MissingArgumentError) Is(target error) bool {
	return target == ErrInvalidCommand
}

// Command describes a single invocation.
type Command struct {
	Name       string // CommandComment, or empty when none was recognised
	InputFile  string
	ConfigFile string
	ShowHelp   bool
}

// Parse builds a Command from args (without the program name).
func Parse(args []string) (Command, error) {
	cmd := Command{ConfigFile: DefaultConfigFile}

	if len(args) == 0 {
		cmd.ShowHelp = true
		return cmd, nil
	}

	i := 0
	if args[0] == CommandComment {
		cmd.Name = CommandComment
		i = 1
		if len(args) > 1 && !isFlag(args[1]) {
			cmd.InputFile = args[1]
			i = 2
		}
	}

	for ; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" || arg == "-c":
			if i+1 >= len(args) {
				return Command{}, &MissingArgumentError{Name: arg}
			}
			i++
			cmd.ConfigFile = args[i]
		case strings.HasPrefix(arg, "--config="):
			value := strings.TrimPrefix(arg, "--config=")
			if value == "" {
				return Command{}, &MissingArgumentError{Name: "--config"}
			}
			cmd.ConfigFile = value
		case arg == "--help" || arg == "-h":
			cmd.ShowHelp = true
		}
	}

	if cmd.Name == "" && !cmd.ShowHelp {
		return Command{}, ErrInvalidCommand
	}
	if cmd.Name == CommandComment && cmd.InputFile == "" {
		return Command{}, &MissingArgumentError{Name: "<input_file>", Command: CommandComment}
	}

	return cmd, nil
}

func isFlag(s string) bool {
	return strings.HasPrefix(s, "-")
}

// WriteUsage prints the help text.
func WriteUsage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  nota comment <input_file> [--config <config_file>]

Options:
  --config, -c    Path to a custom .notarc.json config file (default: .notarc.json)
  --help, -h      Show this help message
`)
}
