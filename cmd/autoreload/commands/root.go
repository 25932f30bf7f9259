package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spcent/autoreload/cmd/autoreload/internal/output"
)

// Command interface for all CLI commands
type Command interface {
	Name() string
	Short() string
	Run(ctx *Context, args []string) error
}

// RootCmd dispatches to subcommands.
type RootCmd struct {
	subcommands map[string]Command
	stdout      io.Writer
	stderr      io.Writer
}

// globalFlags are accepted before the subcommand name.
type globalFlags struct {
	format    string
	quiet     bool
	config    string
	envFile   string
	logFormat string
	logLevel  string
}

// Execute runs the CLI with args (without the program name).
func Execute(args []string, stdout, stderr io.Writer) error {
	root := NewRoot(stdout, stderr)
	return root.Run(args)
}

// NewRoot creates the root command with every subcommand registered.
func NewRoot(stdout, stderr io.Writer) *RootCmd {
	root := &RootCmd{
		subcommands: make(map[string]Command),
		stdout:      stdout,
		stderr:      stderr,
	}

	root.Register(&ServeCmd{})
	root.Register(&WatchCmd{})
	root.Register(&DevCmd{})
	root.Register(&VersionCmd{})
	return root
}

// Register adds a command to the root
func (r *RootCmd) Register(cmd Command) {
	r.subcommands[cmd.Name()] = cmd
}

// Run parses global flags, builds the shared Context and runs the subcommand.
func (r *RootCmd) Run(args []string) error {
	flags, rest, err := parseGlobalFlags(args)
	if err != nil {
		return output.Wrap(output.ExitUsage, "invalid arguments", err)
	}

	if len(rest) == 0 || rest[0] == "help" || rest[0] == "-h" || rest[0] == "--help" {
		return r.showHelp()
	}

	cmd, ok := r.subcommands[rest[0]]
	if !ok {
		r.showHelp()
		return output.Wrap(output.ExitUsage, fmt.Sprintf("unknown command %q", rest[0]), nil)
	}

	ctx, err := newContext(flags, r.stdout, r.stderr)
	if err != nil {
		return err
	}
	defer ctx.Close()

	return cmd.Run(ctx, rest[1:])
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{format: "text", envFile: ".env"}

	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("flag %s needs a value", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		switch arg {
		case "--format", "-f":
			flags.format, err = value(&i, arg)
		case "--quiet", "-q":
			flags.quiet = true
		case "--config", "-c":
			flags.config, err = value(&i, arg)
		case "--env-file":
			flags.envFile, err = value(&i, arg)
		case "--log-format":
			flags.logFormat, err = value(&i, arg)
		case "--log-level":
			flags.logLevel, err = value(&i, arg)
		default:
			// first non-global argument is the subcommand
			return flags, args[i:], validateFormat(flags.format)
		}
		if err != nil {
			return flags, nil, err
		}
	}
	return flags, nil, validateFormat(flags.format)
}

func validateFormat(format string) error {
	switch format {
	case "json", "yaml", "text":
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func (r *RootCmd) showHelp() error {
	names := make([]string, 0, len(r.subcommands))
	for name := range r.subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(`autoreload - reload pages when the server restarts

Usage:
  autoreload [global-flags] <command> [command-flags]

Global Flags:
  -f, --format <type>     Output format: json, yaml, text (default: text)
  -q, --quiet             Suppress non-essential output
  -c, --config <path>     Config file path (default: .autoreload.yaml when present)
      --env-file <path>   Environment file path (default: .env)
      --log-format <fmt>  Log format: text, json
      --log-level <lvl>   Log level: debug, info, warn, error

Available Commands:
`)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-10s  %s\n", name, r.subcommands[name].Short())
	}
	b.WriteString(`
Examples:
  autoreload serve --addr :8080
  autoreload watch --url http://localhost:8080 --exec "make refresh"
  autoreload dev --run "go run ./cmd/site"
`)

	_, err := io.WriteString(r.stdout, b.String())
	return err
}
