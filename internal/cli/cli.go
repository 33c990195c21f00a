package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandDaemon         Command = "daemon"
	CommandTranslate      Command = "translate"
	CommandStatus         Command = "status"
	CommandCancel         Command = "cancel"
	CommandStop           Command = "stop"
	CommandGetConfig      Command = "get-config"
	CommandSaveConfig     Command = "save-config"
	CommandConflicts      Command = "conflicts"
	CommandEnable         Command = "enable"
	CommandDisable        Command = "disable"
	CommandSwitchLanguage Command = "switch-language"
	CommandCount          Command = "count"
	CommandTestLLM        Command = "test-llm"
	CommandHistory        Command = "history"
	CommandStats          Command = "stats"
	CommandDoctor         Command = "doctor"
	CommandVersion        Command = "version"
	CommandHelp           Command = "help"
)

type argKind int

const (
	argNone argKind = iota
	argRequired
	argOptional
)

// argSpecs lists every valid command and whether it takes a positional
// argument.
var argSpecs = map[Command]argKind{
	CommandDaemon:         argNone,
	CommandTranslate:      argRequired,
	CommandStatus:         argNone,
	CommandCancel:         argNone,
	CommandStop:           argNone,
	CommandGetConfig:      argNone,
	CommandSaveConfig:     argNone,
	CommandConflicts:      argNone,
	CommandEnable:         argNone,
	CommandDisable:        argNone,
	CommandSwitchLanguage: argRequired,
	CommandCount:          argRequired,
	CommandTestLLM:        argNone,
	CommandHistory:        argOptional,
	CommandStats:          argOptional,
	CommandDoctor:         argNone,
	CommandVersion:        argNone,
	CommandHelp:           argNone,
}

type Parsed struct {
	Command    Command
	Arg        string
	ConfigPath string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			kind, ok := argSpecs[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			// The command owns the rest of the line.
			rest := args[i+1:]
			switch kind {
			case argRequired:
				if len(rest) == 0 {
					return Parsed{}, fmt.Errorf("%s requires an argument", cmd)
				}
				parsed.Arg = rest[0]
				rest = rest[1:]
			case argOptional:
				if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
					parsed.Arg = rest[0]
					rest = rest[1:]
				}
			}
			if len(rest) > 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			if err := validateArg(cmd, parsed.Arg); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

// validateArg rejects malformed positional arguments at parse time so typos
// fail before any daemon round trip.
func validateArg(cmd Command, arg string) error {
	switch cmd {
	case CommandTranslate:
		if arg != "selected" && arg != "full" {
			return fmt.Errorf("translate mode must be \"selected\" or \"full\", got %q", arg)
		}
	case CommandCount:
		if _, err := strconv.Atoi(arg); err != nil {
			return fmt.Errorf("count requires an integer, got %q", arg)
		}
	case CommandHistory:
		if arg == "" {
			return nil
		}
		if page, err := strconv.Atoi(arg); err != nil || page < 1 {
			return fmt.Errorf("history page must be a positive integer, got %q", arg)
		}
	case CommandStats:
		switch arg {
		case "", "hour", "day", "week":
		default:
			return fmt.Errorf("stats period must be hour, day, or week, got %q", arg)
		}
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [argument]

Daemon:
  daemon                 Run the translation daemon in the foreground
  stop                   Stop the running daemon
  status                 Print current daemon state

Translation:
  translate MODE         Translate the selection (selected) or the focused input (full)
  cancel                 Cancel the translation in flight
  test-llm               Probe the configured LLM endpoint with a one-token request

Configuration:
  get-config             Print the active configuration as JSON
  save-config            Read configuration JSON from stdin, validate, and persist
  conflicts              List hotkey conflicts in the active configuration
  enable                 Resume hotkey handling
  disable                Pause hotkey handling
  switch-language CODE   Switch the target language to a favorite by code
  count N                Set how many history entries are retained

History:
  history [PAGE]         Print recorded translations, newest first (20 per page)
  stats [PERIOD]         Print usage statistics for hour, day, or week (default day)

Other:
  doctor                 Run configuration and environment checks
  version                Print version information
  help                   Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/QuickTransType/config.json)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
