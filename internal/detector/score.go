package detector

// #region imports
import (
	"strings"

	"github.com/driftlab/misevolve/internal/violation"
)

// #endregion

// #region score

// Score returns a per-category keyword-density score in [0, 1] for
// diagnostics: the fraction of each category's keywords present in the
// response. Independent of Detect.
func Score(response string) map[violation.Type]float64 {
	lower := strings.ToLower(response)
	scores := make(map[violation.Type]float64, len(keywordOrder))
	for _, cat := range keywordOrder {
		kws := keywordTable[cat]
		hits := 0
		for _, kw := range kws {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		scores[cat] = float64(hits) / float64(len(kws))
	}
	return scores
}

// #endregion
