package guardrail

import (
	"context"
	"fmt"
)

type Action string

const (
	ActionAllow  Action = "ALLOW"
	ActionBlock  Action = "BLOCK"
	ActionModify Action = "MODIFY"
	ActionWarn   Action = "WARN"
	ActionLog    Action = "LOG"
)

// Side selects the error policy of a Runner: input errors block, output
// errors only warn.
type Side int

const (
	InputSide Side = iota
	OutputSide
)

func (s Side) String() string {
	if s == OutputSide {
		return "output"
	}
	return "input"
}

// Result is what an evaluator returns. Exactly one of the two shapes is
// meaningful; use Simple or Structured to build one.
type Result struct {
	structured bool
	valid      bool
	confidence float64
	reason     string
	details    map[string]interface{}
}

// Simple is a plain pass/fail outcome.
func Simple(passed bool) Result {
	return Result{valid: passed}
}

// Structured carries its own confidence and reason.
func Structured(valid bool, confidence float64, reason string, details map[string]interface{}) Result {
	return Result{
		structured: true,
		valid:      valid,
		confidence: confidence,
		reason:     reason,
		details:    details,
	}
}

func (r Result) IsStructured() bool  { return r.structured }
func (r Result) Valid() bool         { return r.valid }
func (r Result) Confidence() float64 { return r.confidence }
func (r Result) Reason() string      { return r.reason }

type Evaluator func(ctx context.Context, text string) (Result, error)

// Descriptor is the static configuration of one guardrail.
type Descriptor struct {
	Name     string
	Evaluate Evaluator
	OnFail   Action
	Priority int

	// PassMessage and FailMessage are used for Simple results and for
	// Structured results without a reason.
	PassMessage string
	FailMessage string
}

// Verdict is the outcome of one guardrail invocation.
type Verdict struct {
	Guardrail  string                 `json:"guardrail_name"`
	Passed     bool                   `json:"passed"`
	Action     Action                 `json:"action"`
	Confidence float64                `json:"confidence"`
	Message    string                 `json:"message"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// FirstBlock returns the first verdict whose action is BLOCK.
func FirstBlock(verdicts []Verdict) (Verdict, bool) {
	for _, v := range verdicts {
		if v.Action == ActionBlock {
			return v, true
		}
	}
	return Verdict{}, false
}

func CountPassed(verdicts []Verdict) int {
	n := 0
	for _, v := range verdicts {
		if v.Passed {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func errorVerdict(side Side, name string, err error) Verdict {
	v := Verdict{
		Guardrail: name,
		Passed:    false,
		Metadata: map[string]interface{}{
			"error":     err.Error(),
			"guardrail": name,
		},
	}
	if side == OutputSide {
		v.Action = ActionWarn
		v.Confidence = 0.5
		v.Message = fmt.Sprintf("Output guardrail error: %v", err)
	} else {
		v.Action = ActionBlock
		v.Confidence = 0.0
		v.Message = fmt.Sprintf("Guardrail error: %v", err)
	}
	return v
}
