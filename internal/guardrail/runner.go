package guardrail

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Runner evaluates an ordered list of guardrails against a text.
type Runner struct {
	side        Side
	descriptors []Descriptor
	logger      *logrus.Logger
}

// NewRunner sorts descriptors by ascending priority, keeping declaration
// order for ties. Names must be unique and every descriptor needs an
// evaluator.
func NewRunner(side Side, descriptors []Descriptor, logger *logrus.Logger) (*Runner, error) {
	seen := make(map[string]bool, len(descriptors))
	sorted := make([]Descriptor, len(descriptors))
	copy(sorted, descriptors)

	for _, d := range sorted {
		if d.Name == "" {
			return nil, fmt.Errorf("guardrail name is required")
		}
		if d.Evaluate == nil {
			return nil, fmt.Errorf("guardrail %s has no evaluator", d.Name)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate guardrail name: %s", d.Name)
		}
		seen[d.Name] = true
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	return &Runner{
		side:        side,
		descriptors: sorted,
		logger:      logger,
	}, nil
}

func (r *Runner) Side() Side {
	return r.side
}

// Names returns guardrail names in evaluation order.
func (r *Runner) Names() []string {
	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.Name
	}
	return names
}

// Run evaluates every guardrail, even after one fails. Callers decide what
// a BLOCK means.
func (r *Runner) Run(ctx context.Context, text string) []Verdict {
	verdicts := make([]Verdict, 0, len(r.descriptors))

	for _, d := range r.descriptors {
		verdict := r.evaluate(ctx, d, text)

		r.logger.WithFields(logrus.Fields{
			"side":       r.side.String(),
			"guardrail":  d.Name,
			"passed":     verdict.Passed,
			"action":     verdict.Action,
			"confidence": verdict.Confidence,
		}).Debug("Guardrail evaluated")

		verdicts = append(verdicts, verdict)
	}

	return verdicts
}

func (r *Runner) evaluate(ctx context.Context, d Descriptor, text string) (verdict Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithFields(logrus.Fields{
				"guardrail": d.Name,
				"panic":     rec,
			}).Error("Guardrail panicked")
			verdict = errorVerdict(r.side, d.Name, fmt.Errorf("panic: %v", rec))
		}
	}()

	result, err := d.Evaluate(ctx, text)
	if err != nil {
		r.logger.WithError(err).WithField("guardrail", d.Name).Error("Guardrail evaluation failed")
		return errorVerdict(r.side, d.Name, err)
	}

	return normalize(d, result)
}

func normalize(d Descriptor, result Result) Verdict {
	onFail := d.OnFail
	if onFail == "" {
		onFail = ActionBlock
	}

	verdict := Verdict{
		Guardrail: d.Name,
		Passed:    result.valid,
		Action:    ActionAllow,
	}
	if !result.valid {
		verdict.Action = onFail
	}

	if result.structured {
		verdict.Confidence = clamp01(result.confidence)
		verdict.Message = messageFor(d, result.valid, result.reason)
		verdict.Metadata = make(map[string]interface{}, len(result.details)+1)
		for k, v := range result.details {
			verdict.Metadata[k] = v
		}
		if result.reason != "" {
			verdict.Metadata["reason"] = result.reason
		}
		return verdict
	}

	if result.valid {
		verdict.Confidence = 0.9
	} else {
		verdict.Confidence = 0.1
	}
	verdict.Message = messageFor(d, result.valid, "")
	verdict.Metadata = map[string]interface{}{"guardrail": d.Name}
	return verdict
}

func messageFor(d Descriptor, passed bool, reason string) string {
	if passed {
		if d.PassMessage != "" {
			return d.PassMessage
		}
		if reason != "" {
			return reason
		}
		return fmt.Sprintf("%s: PASSED", d.Name)
	}
	if reason != "" {
		return reason
	}
	if d.FailMessage != "" {
		return d.FailMessage
	}
	return fmt.Sprintf("%s: FAILED", d.Name)
}

// DefaultRunners builds the input and output runners used by the gateway.
func DefaultRunners(input *InputValidator, output *OutputValidator, logger *logrus.Logger) (*Runner, *Runner, error) {
	in, err := NewRunner(InputSide, input.Descriptors(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build input guardrails: %w", err)
	}
	out, err := NewRunner(OutputSide, output.Descriptors(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build output guardrails: %w", err)
	}
	return in, out, nil
}
