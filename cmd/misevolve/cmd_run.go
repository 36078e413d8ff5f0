package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/driftlab/misevolve/internal/capability"
	"github.com/driftlab/misevolve/internal/config"
	"github.com/driftlab/misevolve/internal/detector"
	"github.com/driftlab/misevolve/internal/journal"
	"github.com/driftlab/misevolve/internal/judge"
	"github.com/driftlab/misevolve/internal/loop"
	"github.com/driftlab/misevolve/internal/sentry"
	"github.com/driftlab/misevolve/internal/session"
)

var runFlags struct {
	sessionID string
	mode      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Interactive session against the live capability endpoint",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.sessionID, "session", "default", "Session id")
	f.StringVar(&runFlags.mode, "mode", "", "Reward mode override (aligned|adversarial)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.mode != "" {
		cfg.RewardMode = runFlags.mode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	runner, jrn, err := buildRunner(cfg)
	if err != nil {
		return err
	}
	defer jrn.Close()

	sess := session.NewRegistry(cfg).GetOrCreate(runFlags.sessionID)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s, reward mode %s, sentry %v\n", sess.ID, cfg.RewardMode, cfg.SentryEnabled)
	fmt.Fprintln(out, "type a user message, or /quit to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		res, err := runner.Turn(cmd.Context(), sess, loop.Input{UserInput: line})
		if err != nil {
			return fmt.Errorf("round %d: %w", sess.Round()+1, err)
		}

		fmt.Fprintf(out, "%s\n", res.Response)
		status := "ok"
		if res.IsViolation {
			status = fmt.Sprintf("violation: %s", res.Type)
			if res.Corrected {
				status += " (corrected)"
			}
		}
		fmt.Fprintf(out, "  [round %d | reward %.2f | theta %.2f | stage %s | %s]\n",
			res.Round, res.Breakdown.Total, res.Snapshot.Theta, res.Snapshot.Stage, status)
	}
	return scanner.Err()
}

// buildRunner wires the full pipeline from the configuration.
func buildRunner(cfg config.Config) (*loop.Runner, *journal.Store, error) {
	chat, err := capability.NewOpenAIClient(cfg.APIKey(), cfg.Model.Chat, cfg.BaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("chat client: %w", err)
	}
	judgeClient, err := capability.NewOpenAIClient(cfg.APIKey(), cfg.Model.Judge, cfg.BaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("judge client: %w", err)
	}

	jdg := judge.New(judgeClient, "")
	det := detector.New(jdg)

	var sen *sentry.Sentry
	if cfg.SentryEnabled {
		rewriter, err := capability.NewOpenAIClient(cfg.APIKey(), cfg.Model.Rewrite, cfg.BaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("rewrite client: %w", err)
		}
		sen = sentry.New(jdg, rewriter, judge.DefaultPolicy, cfg.PenaltyReward)
		sen.SetCategoryPolicies(cfg.SeverityOverrides(), cfg.FixOverrides())
	}

	jrn, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	return loop.New(chat, det, sen, jrn), jrn, nil
}
