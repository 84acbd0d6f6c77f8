package config

import (
	"errors"
	"fmt"
)

// Errors for rule configuration. A RuleError is always scoped to one rule;
// engines log it and continue with the remaining rules in the batch.
var (
	ErrInvalidRule      = errors.New("invalid rule configuration")
	ErrUnknownMethod    = errors.New("unknown extraction method")
	ErrUnknownTransform = errors.New("unknown transformation type")
	ErrUnknownCondition = errors.New("unknown condition keyword")
)

// RuleError wraps a configuration error with the rule it belongs to.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %q: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// NewRuleError builds a RuleError wrapping ErrInvalidRule unless err
// already carries one of the package sentinels.
func NewRuleError(rule string, err error) *RuleError {
	if !errors.Is(err, ErrInvalidRule) &&
		!errors.Is(err, ErrUnknownMethod) &&
		!errors.Is(err, ErrUnknownTransform) &&
		!errors.Is(err, ErrUnknownCondition) {
		err = fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	return &RuleError{Rule: rule, Err: err}
}
