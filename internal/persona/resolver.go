package persona

import (
	"log/slog"
	"strings"
)

// Outcome classifies how a subgroup was matched.
type Outcome string

const (
	OutcomeExact   Outcome = "exact"
	OutcomeRelaxed Outcome = "relaxed"
	OutcomeNone    Outcome = "none"
)

// Resolution is the result of matching a subgroup against available identifiers.
type Resolution struct {
	Key        string  `json:"key,omitempty"`
	Outcome    Outcome `json:"outcome"`
	Candidates int     `json:"candidates,omitempty"`
}

// Found reports whether a key was selected.
func (r Resolution) Found() bool { return r.Outcome != OutcomeNone }

// Resolver maps subgroups onto backend persona identifiers.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver constructs a Resolver. Relaxed matches are logged on logger.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve tries an exact canonical match first, then a relaxed structural match, and
// otherwise reports OutcomeNone. A relaxed candidate must contain the row title and
// agree on every axis the subgroup sets; among several, the one with the fewest
// additional tokens wins and ties go to the earliest key.
func (r *Resolver) Resolve(sub Subgroup, available []string) Resolution {
	canonical := CanonicalKey(sub)
	for _, key := range available {
		if key == canonical {
			return Resolution{Key: key, Outcome: OutcomeExact, Candidates: 1}
		}
	}

	row := normalise(sub.RowTitle)
	if row == "" {
		return Resolution{Outcome: OutcomeNone}
	}

	best, bestScore, candidates, tied := "", 0, 0, false
	for _, key := range available {
		parsed := ParseKey(key)
		if !strings.Contains(normalise(parsed.Row), row) {
			continue
		}
		if sub.Bulk != BulkNone && parsed.Bulk != sub.Bulk {
			continue
		}
		if sub.Risk != RiskNone && parsed.Risk != sub.Risk {
			continue
		}
		if sub.Burden != BurdenNone && parsed.Burden != sub.Burden {
			continue
		}
		score := surplus(sub, parsed, row)
		candidates++
		switch {
		case candidates == 1 || score < bestScore:
			best, bestScore, tied = key, score, false
		case score == bestScore:
			tied = true
		}
	}

	if candidates == 0 {
		r.logger.Debug("persona unresolved", slog.String("subgroup", canonical), slog.Int("available", len(available)))
		return Resolution{Outcome: OutcomeNone}
	}

	attrs := []any{
		slog.String("subgroup", canonical),
		slog.String("key", best),
		slog.Int("candidates", candidates),
	}
	if tied {
		r.logger.Warn("persona resolved by relaxed match with ties", attrs...)
	} else {
		r.logger.Info("persona resolved by relaxed match", attrs...)
	}
	return Resolution{Key: best, Outcome: OutcomeRelaxed, Candidates: candidates}
}

// surplus counts what a candidate carries beyond the subgroup: unknown tokens, axes
// the subgroup leaves unset and extra characters in the row segment.
func surplus(sub Subgroup, parsed Key, row string) int {
	score := len(parsed.Extra) * 1000
	if sub.Bulk == BulkNone && parsed.Bulk != BulkNone {
		score += 1000
	}
	if sub.Risk == RiskNone && parsed.Risk != RiskNone {
		score += 1000
	}
	if sub.Burden == BurdenNone && parsed.Burden != BurdenNone {
		score += 1000
	}
	return score + len(normalise(parsed.Row)) - len(row)
}
