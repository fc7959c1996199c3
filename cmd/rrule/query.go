package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/samber/mo"
	"github.com/spf13/cobra"

	"github.com/cyp0633/librrule/rrule"
)

var (
	queryBefore    string
	queryAfter     string
	queryContains  string
	queryInclusive bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Find the occurrence before or after an instant, or test membership",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryBefore, "before", "", "Print the last occurrence before this instant")
	queryCmd.Flags().StringVar(&queryAfter, "after", "", "Print the first occurrence after this instant")
	queryCmd.Flags().StringVar(&queryContains, "contains", "", "Report whether this instant is an occurrence")
	queryCmd.Flags().BoolVarP(&queryInclusive, "inclusive", "i", false, "Count an occurrence equal to the instant")
	queryCmd.MarkFlagsMutuallyExclusive("before", "after", "contains")
	queryCmd.MarkFlagsOneRequired("before", "after", "contains")
}

// Queries the rule with the one flag given.
func runQuery(cmd *cobra.Command, args []string) error {
	src, err := parseSource(args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	switch {
	case queryContains != "":
		t, err := parseInstant("contains", queryContains)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, rrule.Contains(src, t))
		return nil
	case queryBefore != "":
		t, err := parseInstant("before", queryBefore)
		if err != nil {
			return err
		}
		return printOption(w, rrule.Before(src, t, queryInclusive))
	case queryAfter != "":
		t, err := parseInstant("after", queryAfter)
		if err != nil {
			return err
		}
		return printOption(w, rrule.After(src, t, queryInclusive))
	}
	return errors.New("one of --before, --after or --contains is required")
}

var errNoOccurrence = errors.New("no such occurrence")

func printOption(w io.Writer, result mo.Option[time.Time]) error {
	t, ok := result.Get()
	if !ok {
		return errNoOccurrence
	}
	printTimes(w, []time.Time{t})
	return nil
}
