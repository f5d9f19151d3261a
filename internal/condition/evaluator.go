// Package condition evaluates reveal conditions against artwork snapshots.
// Evaluators are pure: they never mutate state and never fail hard. A
// malformed or missing parameter makes the condition unsatisfiable rather
// than raising, because leaking content is worse than a condition staying
// hidden.
package condition

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/invisible-gallery/internal/domain"
)

// timeParams is the payload for time conditions.
type timeParams struct {
	RevealAt string `json:"reveal_at"`
}

// viewCountParams is the payload for view_count conditions.
type viewCountParams struct {
	Count int64 `json:"count"`
}

// interactiveParams is the payload for interactive conditions.
type interactiveParams struct {
	CommentCount int64 `json:"comment_count"`
}

// Evaluate decides whether one condition is met by the given snapshot at
// the given instant. The returned error is only ever the
// invalid-parameters sentinel: the caller logs it and treats the condition
// as not met.
func Evaluate(cond domain.RevealCondition, snap domain.ArtworkSnapshot, now time.Time) (bool, error) {
	switch cond.Kind {
	case domain.KindTime:
		return evaluateTime(cond, now)
	case domain.KindViewCount:
		return evaluateViewCount(cond, snap)
	case domain.KindLocation:
		// Region containment is computed by the caller; the evaluator only
		// consumes the signal.
		return snap.WithinRegion, nil
	case domain.KindInteractive:
		return evaluateInteractive(cond, snap)
	}
	// Unknown kinds are rejected at construction; fail closed if one
	// reaches us anyway.
	return false, paramsError(cond, "unknown kind")
}

func evaluateTime(cond domain.RevealCondition, now time.Time) (bool, error) {
	var p timeParams
	if err := json.Unmarshal([]byte(cond.ParamsJSON), &p); err != nil || p.RevealAt == "" {
		return false, paramsError(cond, "missing reveal_at")
	}
	revealAt, err := time.Parse(time.RFC3339, p.RevealAt)
	if err != nil {
		return false, paramsError(cond, "malformed reveal_at")
	}
	return !now.Before(revealAt), nil
}

func evaluateViewCount(cond domain.RevealCondition, snap domain.ArtworkSnapshot) (bool, error) {
	var p viewCountParams
	if err := json.Unmarshal([]byte(cond.ParamsJSON), &p); err != nil {
		return false, paramsError(cond, "malformed count")
	}
	if p.Count <= 0 {
		return false, paramsError(cond, "non-positive count")
	}
	return snap.ViewCount >= p.Count, nil
}

func evaluateInteractive(cond domain.RevealCondition, snap domain.ArtworkSnapshot) (bool, error) {
	var p interactiveParams
	if err := json.Unmarshal([]byte(cond.ParamsJSON), &p); err != nil {
		return false, paramsError(cond, "malformed comment_count")
	}
	if p.CommentCount <= 0 {
		return false, paramsError(cond, "non-positive comment_count")
	}
	return snap.CommentCount >= p.CommentCount, nil
}

func paramsError(cond domain.RevealCondition, detail string) error {
	return domain.NewEngineError(
		domain.ErrInvalidConditionParams.Code,
		fmt.Sprintf("condition %s (%s): %s", cond.ConditionID, cond.Kind, detail),
	)
}
