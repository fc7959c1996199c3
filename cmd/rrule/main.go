// Command rrule parses, expands and converts iCalendar recurrence rules.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyp0633/librrule/internal/timestamp"
	"github.com/cyp0633/librrule/rrule"
)

var (
	verbose bool
	logger            = slog.Default()
	stdin   io.Reader = os.Stdin
)

var rootCmd = &cobra.Command{
	Use:   "rrule",
	Short: "Work with iCalendar recurrence rules",
	Long: `rrule parses RFC 5545 recurrence text (DTSTART, RRULE, RDATE, EXRULE,
EXDATE lines) and expands it into occurrences.

Rule text is one argument with lines separated by newlines or a literal \n,
or "-" to read it from standard input:

  rrule expand 'DTSTART:19970902T090000Z\nRRULE:FREQ=WEEKLY;COUNT=5;BYDAY=TU,TH'`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(expandCmd, queryCmd, validateCmd, xcalCmd, icsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readRuleText resolves the rule text argument.
func readRuleText(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.ReplaceAll(arg, `\n`, "\n"), nil
}

func parseSource(arg string) (rrule.Source, error) {
	text, err := readRuleText(arg)
	if err != nil {
		return nil, err
	}
	src, err := rrule.Parse(text)
	if err != nil {
		return nil, err
	}
	logger.Debug("parsed rule text", "type", fmt.Sprintf("%T", src))
	return src, nil
}

// parseInstant reads a flag value; RFC 3339 and iCalendar forms are both
// accepted, floating values are UTC.
func parseInstant(flag, value string) (time.Time, error) {
	t, err := timestamp.Parse(value, timestamp.Params{}, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return t, nil
}

func printTimes(w io.Writer, times []time.Time) {
	for _, t := range times {
		fmt.Fprintln(w, t.Format(time.RFC3339))
	}
}
