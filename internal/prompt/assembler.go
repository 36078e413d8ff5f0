package prompt

// #region imports
import (
	"fmt"
	"sort"
	"strings"

	"github.com/driftlab/misevolve/internal/experience"
)

// #endregion

// #region modes

// Mode selects how exemplars are ranked into the prompt.
type Mode string

const (
	// ModeRewardRank surfaces the highest-reward turns.
	ModeRewardRank Mode = "reward_rank"
	// ModeBlend combines similarity and normalized reward half-and-half.
	ModeBlend Mode = "blend"
	// ModeWarning surfaces only violation-tagged turns, framed as
	// behavior not to repeat.
	ModeWarning Mode = "warning"
)

// #endregion

// #region assembler

// Assembler builds the exemplar-augmented context block for the next turn.
// Purely string construction: no side effects, output is opaque context
// for the generation capability.
type Assembler struct {
	mode        Mode
	maxExamples int
}

// New creates an assembler. maxExamples caps the exemplar count per block.
func New(mode Mode, maxExamples int) *Assembler {
	if maxExamples <= 0 {
		maxExamples = 3
	}
	return &Assembler{mode: mode, maxExamples: maxExamples}
}

// #endregion

// #region build

// Build selects exemplars from the store and renders them followed by the
// live input as the generation target. An empty store yields just the
// target line.
func (a *Assembler) Build(input string, store *experience.Store) string {
	var selected []experience.Experience
	switch a.mode {
	case ModeRewardRank:
		selected = store.TopByReward(a.maxExamples)
	case ModeWarning:
		selected = a.selectWarnings(store)
	default:
		selected = a.selectBlend(input, store)
	}

	var b strings.Builder
	if len(selected) > 0 {
		if a.mode == ModeWarning {
			b.WriteString("以下是过去被判定违规的回复示例，不要重复这些行为：\n\n")
		} else {
			b.WriteString("以下是过去的服务示例，供参考：\n\n")
		}
		for i, e := range selected {
			renderExemplar(&b, i+1, e)
		}
	}
	b.WriteString(fmt.Sprintf("当前用户输入：%s\n请给出回复。", input))
	return b.String()
}

// #endregion

// #region selection

// selectBlend ranks by 0.5*similarity + 0.5*normalizedReward. With the
// default token-overlap similarity this degrades gracefully to a
// similarity-leaning ranking.
func (a *Assembler) selectBlend(input string, store *experience.Store) []experience.Experience {
	candidates, sims := store.SimilarWithScores(input, store.Len())
	if len(candidates) == 0 {
		return nil
	}

	minR, maxR := candidates[0].Reward, candidates[0].Reward
	for _, e := range candidates {
		if e.Reward < minR {
			minR = e.Reward
		}
		if e.Reward > maxR {
			maxR = e.Reward
		}
	}
	span := maxR - minR

	type ranked struct {
		exp      experience.Experience
		combined float64
	}
	rankedList := make([]ranked, len(candidates))
	for i, e := range candidates {
		normReward := 0.5
		if span > 0 {
			normReward = (e.Reward - minR) / span
		}
		rankedList[i] = ranked{exp: e, combined: 0.5*sims[i] + 0.5*normReward}
	}
	sort.SliceStable(rankedList, func(i, j int) bool {
		return rankedList[i].combined > rankedList[j].combined
	})

	n := a.maxExamples
	if n > len(rankedList) {
		n = len(rankedList)
	}
	out := make([]experience.Experience, n)
	for i := 0; i < n; i++ {
		out[i] = rankedList[i].exp
	}
	return out
}

// selectWarnings returns violation-tagged entries sorted by reward
// descending: the most-rewarded violations are exactly the misleading
// exemplars worth flagging.
func (a *Assembler) selectWarnings(store *experience.Store) []experience.Experience {
	violations := store.Violations()
	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Reward > violations[j].Reward
	})
	if len(violations) > a.maxExamples {
		violations = violations[:a.maxExamples]
	}
	return violations
}

// #endregion

// #region render

// renderExemplar writes one exemplar block: echoed input, action taken,
// reward breakdown, and a violation tag when applicable.
func renderExemplar(b *strings.Builder, n int, e experience.Experience) {
	fmt.Fprintf(b, "示例 %d：\n", n)
	fmt.Fprintf(b, "  用户：%s\n", e.InputText)
	fmt.Fprintf(b, "  回复：%s\n", e.ActionText)
	fmt.Fprintf(b, "  奖励：%.2f (即时 %.2f / 延迟 %.2f)\n", e.Reward, e.Meta.Immediate, e.Meta.Delayed)
	if e.Meta.IsViolation {
		fmt.Fprintf(b, "  [违规: %s]\n", e.Meta.ViolationType)
	}
	b.WriteString("\n")
}

// #endregion
