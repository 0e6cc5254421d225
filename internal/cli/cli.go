// Package cli parses shotclock command lines into a Parsed invocation.
package cli

import (
	"io"

	"github.com/spf13/cobra"
)

type Command string

const (
	CommandListen  Command = "listen"
	CommandStart   Command = "start"
	CommandStop    Command = "stop"
	CommandToggle  Command = "toggle"
	CommandReset   Command = "reset"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandWatch   Command = "watch"
	CommandHistory Command = "history"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

const defaultHistoryLimit = 10

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	TUI        bool
	Continuous bool
	JSON       bool
	Limit      int
}

// Parse resolves args into one command invocation. It never runs the command.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true, Limit: defaultHistoryLimit}
	root := newRoot("shotclock", &parsed)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

// HelpText renders top-level usage for binaryName.
func HelpText(binaryName string) string {
	root := newRoot(binaryName, &Parsed{})
	return root.Long + "\n\n" + root.UsageString()
}

func newRoot(binaryName string, parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           binaryName,
		Short:         "Espresso shot timer driven by the sound of the pump",
		Long:          "shotclock listens to the microphone and times espresso extractions from pump noise.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if showVersion {
				parsed.Command = CommandVersion
				parsed.ShowHelp = false
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&parsed.ConfigPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/shotclock/config.jsonc)")
	root.Flags().BoolVar(&showVersion, "version", false, "show version")

	listen := leaf(CommandListen, "Listen to the microphone and time shots", parsed)
	listen.Flags().BoolVar(&parsed.TUI, "tui", false, "show the live terminal view")
	listen.Flags().BoolVar(&parsed.Continuous, "continuous", false, "keep listening after each shot")

	status := leaf(CommandStatus, "Print the active session state", parsed)
	status.Flags().BoolVar(&parsed.JSON, "json", false, "print the raw status response")

	watch := leaf(CommandWatch, "Stream extraction status from the status RPC endpoint", parsed)
	watch.Flags().BoolVar(&parsed.JSON, "json", false, "print health responses as JSON")

	history := leaf(CommandHistory, "List recorded shots", parsed)
	history.Flags().IntVar(&parsed.Limit, "limit", defaultHistoryLimit, "number of shots to list")
	history.Flags().BoolVar(&parsed.JSON, "json", false, "print shots as JSON lines")

	root.AddCommand(
		listen,
		leaf(CommandStart, "Start the timer in the active session", parsed),
		leaf(CommandStop, "Stop the running timer and record the shot", parsed),
		leaf(CommandToggle, "Start or stop the timer", parsed),
		leaf(CommandReset, "Discard the current shot and return to idle", parsed),
		leaf(CommandCancel, "End the active listening session", parsed),
		status,
		watch,
		history,
		leaf(CommandDevices, "List available input devices", parsed),
		leaf(CommandDoctor, "Run configuration and environment checks", parsed),
		leaf(CommandVersion, "Print version information", parsed),
	)
	return root
}

func leaf(command Command, short string, parsed *Parsed) *cobra.Command {
	return &cobra.Command{
		Use:   string(command),
		Short: short,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			parsed.Command = command
			parsed.ShowHelp = false
		},
	}
}
