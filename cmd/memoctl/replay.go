package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/agentuity/go-memoize/env"
	"github.com/agentuity/go-memoize/logger"
	"github.com/agentuity/go-memoize/memoize"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	clocktesting "k8s.io/utils/clock/testing"
)

const (
	ttlEnv     = "MEMOIZE_TTL"
	defaultTTL = time.Second
)

type outcome struct {
	call
	Hit   bool
	Value uint64
}

func newReplayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [key@offset...]",
		Short: "Replay calls against a memoized function on a simulated clock",
		Long: `Replay calls a memoized function once per key@offset, advancing a simulated
clock to each offset first, and reports whether the call was served from the
cache. The function returns a sequence number that grows on every real call.`,
		Example: "  memoctl replay --ttl 1s 1,11,26@0s 1,11,26@100ms 2,12,26@100ms 1,11,26@600ms 1,11,26@1600ms\n" +
			"  memoctl replay -f schedule.yaml",
		RunE: runReplay,
	}
	cmd.Flags().String("ttl", "", "how long results stay cached, e.g. 1500ms or 1d (env MEMOIZE_TTL, default 1s)")
	cmd.Flags().StringP("file", "f", "", "YAML schedule with ttl and calls")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	log := env.NewLogger(cmd)
	var sched schedule
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("error opening schedule: %w", err)
		}
		sched, err = loadSchedule(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}
	}
	for _, arg := range args {
		c, err := parseCall(arg)
		if err != nil {
			return err
		}
		sched.Calls = append(sched.Calls, c)
	}
	if err := sched.validate(); err != nil {
		return err
	}
	fallback := sched.TTL
	if fallback == 0 {
		fallback = defaultTTL
	}
	ttl, err := env.DurationFlagOrEnv(cmd, "ttl", ttlEnv, fallback)
	if err != nil {
		return err
	}
	outcomes, stats, err := replay(sched.Calls, ttl, log)
	if err != nil {
		return err
	}
	printOutcomes(cmd.OutOrStdout(), outcomes, stats)
	return nil
}

// replay runs calls in order against a fresh Memoizer whose clock is set to
// each call's offset.
func replay(calls []call, ttl time.Duration, log logger.Logger) ([]outcome, memoize.Stats, error) {
	start := time.Unix(0, 0).UTC()
	clk := clocktesting.NewFakeClock(start)
	var seq uint64
	m, err := memoize.New(func(key string) uint64 {
		seq++
		return seq
	}, ttl, memoize.WithClock(clk), memoize.WithLogger(log), memoize.WithName("replay"))
	if err != nil {
		return nil, memoize.Stats{}, err
	}
	defer m.Close()
	fn := m.Func().(func(string) uint64)

	outcomes := make([]outcome, 0, len(calls))
	for _, c := range calls {
		clk.SetTime(start.Add(c.At))
		before := seq
		v := fn(c.Key)
		outcomes = append(outcomes, outcome{call: c, Hit: seq == before, Value: v})
	}
	return outcomes, m.Stats(), nil
}

func printOutcomes(w io.Writer, outcomes []outcome, stats memoize.Stats) {
	r := lipgloss.NewRenderer(w)
	hit := r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	miss := r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	dim := r.NewStyle().Faint(true)
	for _, o := range outcomes {
		status := miss.Render("MISS")
		if o.Hit {
			status = hit.Render("HIT ")
		}
		fmt.Fprintf(w, "%10s  %s  %s -> %d\n", "+"+o.At.String(), status, o.Key, o.Value)
	}
	fmt.Fprintln(w, dim.Render(fmt.Sprintf("hits=%d misses=%d expired=%d entries=%d hit-rate=%.2f",
		stats.Hits, stats.Misses, stats.Expired, stats.Entries, stats.HitRate())))
}
