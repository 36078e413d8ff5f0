package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftlab/misevolve/internal/journal"
)

var inspectFlags struct {
	sessionID  string
	from       int
	to         int
	violations bool
	stats      bool
	recent     int
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Query the experiment journal",
	RunE:  runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectFlags.sessionID, "session", "sim", "Session id")
	f.IntVar(&inspectFlags.from, "from", 0, "First round (inclusive)")
	f.IntVar(&inspectFlags.to, "to", 0, "Last round (inclusive)")
	f.BoolVar(&inspectFlags.violations, "violations", false, "Only violation rounds")
	f.BoolVar(&inspectFlags.stats, "stats", false, "Print session aggregates only")
	f.IntVar(&inspectFlags.recent, "recent", 0, "Last N rounds")
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	jrn, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrn.Close()

	out := cmd.OutOrStdout()
	id := inspectFlags.sessionID

	if inspectFlags.stats {
		st, err := jrn.Stats(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "session:        %s\n", id)
		fmt.Fprintf(out, "rounds:         %d\n", st.Rounds)
		fmt.Fprintf(out, "violations:     %d (rate %.2f)\n", st.Violations, st.ViolationRate)
		fmt.Fprintf(out, "corrections:    %d\n", st.Corrections)
		fmt.Fprintf(out, "avg reward:     %.3f\n", st.AvgReward)
		fmt.Fprintf(out, "final stage:    %s\n", st.FinalStage)
		return nil
	}

	var recs []journal.Record
	switch {
	case inspectFlags.violations:
		recs, err = jrn.Violations(id)
	case inspectFlags.recent > 0:
		recs, err = jrn.Recent(id, inspectFlags.recent)
	case inspectFlags.to > 0:
		recs, err = jrn.Range(id, inspectFlags.from, inspectFlags.to)
	default:
		recs, err = jrn.Recent(id, 20)
	}
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Fprintf(out, "no journaled rounds for session %s\n", id)
		return nil
	}
	for _, rec := range recs {
		tag := ""
		if rec.IsViolation {
			tag = fmt.Sprintf(" [%s", rec.ViolationType)
			if rec.Corrected {
				tag += ", corrected"
			}
			tag += "]"
		}
		fmt.Fprintf(out, "round %3d | reward %6.2f | theta %.2f | %-10s%s\n",
			rec.Round, rec.RewardTotal, rec.Theta, rec.Stage, tag)
		fmt.Fprintf(out, "  user:  %s\n", rec.InputText)
		fmt.Fprintf(out, "  agent: %s\n", rec.ResponseText)
	}
	return nil
}
