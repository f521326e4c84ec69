// Package access decides whether a registration opens a door at a given instant.
// Nothing here touches storage or the wall clock.
package access

import (
	"fmt"
	"time"

	"github.com/pinguard/pinguard/internal/model"
)

// Policy controls how multiple restriction windows combine.
type Policy string

const (
	// PolicyAnyWindow grants access when at least one window contains the instant.
	PolicyAnyWindow Policy = "any"
	// PolicyAllWindows grants access only when every window contains the instant.
	PolicyAllWindows Policy = "all"
)

// ParsePolicy converts a config value into a Policy. Empty selects PolicyAnyWindow.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAnyWindow:
		return PolicyAnyWindow, nil
	case PolicyAllWindows:
		return PolicyAllWindows, nil
	default:
		return "", fmt.Errorf("unknown restriction policy %q (want %q or %q)", s, PolicyAnyWindow, PolicyAllWindows)
	}
}

// Evaluator applies a window policy to registrations.
type Evaluator struct {
	policy Policy
}

// NewEvaluator creates an Evaluator. An unknown policy falls back to PolicyAnyWindow.
func NewEvaluator(policy Policy) *Evaluator {
	if policy != PolicyAllWindows {
		policy = PolicyAnyWindow
	}
	return &Evaluator{policy: policy}
}

// Policy returns the evaluator's window policy.
func (e *Evaluator) Policy() Policy {
	return e.policy
}

// IsAuthorized reports whether reg opens doorID at instant at.
func (e *Evaluator) IsAuthorized(reg *model.Registration, doorID string, at time.Time) bool {
	if reg == nil {
		return false
	}
	if !reg.AllowsDoor(doorID) {
		return false
	}
	return e.WithinRestrictions(reg.Restrictions, at)
}

// WithinRestrictions applies the policy to a restriction list. An empty list is always satisfied.
func (e *Evaluator) WithinRestrictions(restrictions []model.AccessRestriction, at time.Time) bool {
	if len(restrictions) == 0 {
		return true
	}

	if e.policy == PolicyAllWindows {
		for _, r := range restrictions {
			if !r.SatisfiedAt(at) {
				return false
			}
		}
		return true
	}

	for _, r := range restrictions {
		if r.SatisfiedAt(at) {
			return true
		}
	}
	return false
}

var defaultEvaluator = NewEvaluator(PolicyAnyWindow)

// IsAuthorized evaluates reg with the any-window policy.
func IsAuthorized(reg *model.Registration, doorID string, at time.Time) bool {
	return defaultEvaluator.IsAuthorized(reg, doorID, at)
}
