// Package rules mines association rules between crash conditions and
// outcomes and keeps only the ones that say something about the crash.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
)

// ErrInvalidSupport is returned when min support is outside (0, 1].
var ErrInvalidSupport = errors.New("min_support must be in (0, 1]")

// NoRulesMessage accompanies an empty rule list.
const NoRulesMessage = "No significant association rules found"

const (
	// MinConfidence is the inclusive confidence threshold for candidate rules.
	MinConfidence = 0.6
	// MaxRules caps the returned list.
	MaxRules = 15
)

type Rule struct {
	Antecedents []string `json:"antecedents"`
	Consequents []string `json:"consequents"`
	Support     float64  `json:"support"`
	Confidence  float64  `json:"confidence"`
	Lift        float64  `json:"lift"`
}

func (r Rule) String() string {
	return strings.Join(r.Antecedents, ", ") + " -> " + strings.Join(r.Consequents, ", ")
}

// Result is the filtered, ranked rule list.
type Result struct {
	Rules            []Rule  `json:"rules"`
	Error            string  `json:"error,omitempty"`
	MinSupport       float64 `json:"min_support"`
	FrequentItemsets int     `json:"frequent_itemsets"`
	CandidateRules   int     `json:"candidate_rules"`
}

// Mine builds transactions from t, finds itemsets with support at least
// minSupport and derives every rule with confidence >= MinConfidence. Rules
// that restate the environment or do not predict an outcome are dropped.
// The rest are ordered by lift, confidence and support (all descending) and
// capped at MaxRules.
func Mine(t *dataset.Table, minSupport float64) (*Result, error) {
	if !(minSupport > 0 && minSupport <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSupport, minSupport)
	}
	tx := buildTransactions(t)
	frequent := frequentItemsets(tx, minSupport)
	res := &Result{Rules: []Rule{}, MinSupport: minSupport, FrequentItemsets: len(frequent)}

	sets := make([]uint64, 0, len(frequent))
	for m := range frequent {
		sets = append(sets, m)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i] < sets[j] })

	for _, set := range sets {
		if set&(set-1) == 0 {
			continue
		}
		sup := frequent[set]
		// Every non-empty proper subset is an antecedent.
		for ante := (set - 1) & set; ante != 0; ante = (ante - 1) & set {
			cons := set &^ ante
			conf := sup / frequent[ante]
			if conf < MinConfidence {
				continue
			}
			res.CandidateRules++
			lift := conf / frequent[cons]
			if !relevant(tx.members(ante), tx.members(cons), lift) {
				continue
			}
			res.Rules = append(res.Rules, Rule{
				Antecedents: tx.names(ante),
				Consequents: tx.names(cons),
				Support:     sup,
				Confidence:  conf,
				Lift:        lift,
			})
		}
	}

	sort.Slice(res.Rules, func(i, j int) bool {
		a, b := res.Rules[i], res.Rules[j]
		switch {
		case a.Lift != b.Lift:
			return a.Lift > b.Lift
		case a.Confidence != b.Confidence:
			return a.Confidence > b.Confidence
		case a.Support != b.Support:
			return a.Support > b.Support
		}
		return a.String() < b.String()
	})
	if len(res.Rules) > MaxRules {
		res.Rules = res.Rules[:MaxRules]
	}
	if len(res.Rules) == 0 {
		res.Error = NoRulesMessage
	}
	return res, nil
}
