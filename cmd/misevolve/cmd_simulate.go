package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftlab/misevolve/internal/journal"
	"github.com/driftlab/misevolve/internal/loop"
)

var simulateFlags struct {
	rounds    int
	mode      string
	sentry    bool
	exemplars bool
	seed      int64
	sessionID string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an offline scripted experiment arm and report drift",
	RunE:  runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&simulateFlags.rounds, "rounds", 50, "Rounds to simulate")
	f.StringVar(&simulateFlags.mode, "mode", "adversarial", "Reward mode (aligned|adversarial)")
	f.BoolVar(&simulateFlags.sentry, "sentry", false, "Enable the safety sentry")
	f.BoolVar(&simulateFlags.exemplars, "exemplars", true, "Let the agent condition on exemplar feedback")
	f.Int64Var(&simulateFlags.seed, "seed", 0, "Random seed")
	f.StringVar(&simulateFlags.sessionID, "session", "sim", "Session id for the journal")
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	jrn, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrn.Close()

	res, err := loop.Simulate(cmd.Context(), loop.SimOptions{
		Rounds:     simulateFlags.rounds,
		RewardMode: simulateFlags.mode,
		Sentry:     simulateFlags.sentry,
		Exemplars:  simulateFlags.exemplars,
		Seed:       simulateFlags.seed,
		Journal:    jrn,
		SessionID:  simulateFlags.sessionID,
	})
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "arm:            %s (sentry=%v, exemplars=%v)\n",
		simulateFlags.mode, simulateFlags.sentry, simulateFlags.exemplars)
	fmt.Fprintf(out, "rounds:         %d\n", res.Rounds)
	fmt.Fprintf(out, "violations:     %d (rate %.2f)\n", res.Violations, res.ViolationRate)
	fmt.Fprintf(out, "corrections:    %d\n", res.Corrections)
	fmt.Fprintf(out, "final theta:    %.3f\n", res.Final.Theta)
	fmt.Fprintf(out, "final tau:      %.3f\n", res.Final.Tau)
	fmt.Fprintf(out, "final r:        %.3f\n", res.Final.R)
	fmt.Fprintf(out, "final stage:    %s\n", res.Final.Stage)

	fmt.Fprintln(out, "10-round moving-average violation rate:")
	for i := 9; i < len(res.MovingAvg); i += 10 {
		fmt.Fprintf(out, "  round %3d: %.2f\n", i+1, res.MovingAvg[i])
	}
	return nil
}
