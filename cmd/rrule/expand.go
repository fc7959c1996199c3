package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/cyp0633/librrule/rrule"
)

var (
	expandLimit  int
	expandAfter  string
	expandBefore string
	expandWindow string
)

var expandCmd = &cobra.Command{
	Use:   "expand <text>",
	Short: "Print the occurrences of a rule or rule set",
	Long: `Prints occurrences one per line. Unbounded rules stop at --limit.

--window bounds the output to a span starting at --after (or the first
occurrence) and accepts days and weeks, e.g. 8w or 3d12h.`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().IntVarP(&expandLimit, "limit", "n", 100, "Maximum number of occurrences (0 for no limit)")
	expandCmd.Flags().StringVar(&expandAfter, "after", "", "Only occurrences at or after this instant")
	expandCmd.Flags().StringVar(&expandBefore, "before", "", "Only occurrences at or before this instant")
	expandCmd.Flags().StringVar(&expandWindow, "window", "", "Only occurrences within this span")
}

func runExpand(cmd *cobra.Command, args []string) error {
	src, err := parseSource(args[0])
	if err != nil {
		return err
	}

	var after, before time.Time
	if expandAfter != "" {
		if after, err = parseInstant("after", expandAfter); err != nil {
			return err
		}
	}
	if expandBefore != "" {
		if before, err = parseInstant("before", expandBefore); err != nil {
			return err
		}
	}
	if expandWindow != "" {
		if !before.IsZero() {
			return errors.New("--window and --before are mutually exclusive")
		}
		window, err := str2duration.ParseDuration(expandWindow)
		if err != nil {
			return err
		}
		if after.IsZero() {
			first, ok := rrule.Nth(src, 0).Get()
			if !ok {
				return nil
			}
			after = first
		}
		before = after.Add(window)
	}

	var out []time.Time
	for t := range rrule.Seq(src) {
		if !before.IsZero() && t.After(before) {
			break
		}
		if !after.IsZero() && t.Before(after) {
			continue
		}
		if expandLimit > 0 && len(out) == expandLimit {
			logger.Debug("output truncated", "limit", expandLimit)
			break
		}
		out = append(out, t)
	}
	printTimes(cmd.OutOrStdout(), out)
	return nil
}
