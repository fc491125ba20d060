package domain

import (
	"context"
	"fmt"
	"strings"
)

// Action identifies the kind of mutation captured in a Change.
type Action string

// Mutation kinds recorded for rule evaluation.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Change captures a batch mutation about to be committed. Before is the zero
// Batch for creations.
type Change struct {
	Action Action
	Before Batch
	After  Batch
}

// RuleView provides read-only access to committed ledger state for rule
// evaluation.
type RuleView interface {
	ListBatches() []Batch
	FindBatch(id string) (Batch, bool)
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock aborts the commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows the commit.
	SeverityWarn Severity = "warn"
)

// Violation describes a single rule finding.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	BatchID  string   `json:"batch_id"`
	Message  string   `json:"message"`
}

// Result aggregates rule findings for one commit attempt.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends the other result's violations.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any violation blocks the commit.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError carries a blocking rule result out of a commit attempt.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Violations))
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, fmt.Sprintf("%s: %s", v.Rule, v.Message))
		}
	}
	return "rule violation: " + strings.Join(msgs, "; ")
}

// Rule defines an evaluation executed before a ledger commit.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
