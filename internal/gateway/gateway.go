package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/guardrail"
	"github.com/Ayash-Bera/mathgate/backend/internal/knowledge"
	"github.com/Ayash-Bera/mathgate/backend/internal/tutor"
	"github.com/Ayash-Bera/mathgate/backend/internal/websearch"
)

// Checker runs one side's guardrails and returns every verdict.
type Checker interface {
	Run(ctx context.Context, text string) []guardrail.Verdict
}

type Retriever interface {
	FindBest(ctx context.Context, query string, threshold float64) (*knowledge.Candidate, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, query string, m tutor.Material, feedbackContext string) string
}

type FallbackChain interface {
	SearchAndSolve(ctx context.Context, query, feedbackContext string) websearch.Outcome
}

// FeedbackSource supplies optional prompt context from past feedback.
type FeedbackSource interface {
	FeedbackContext(ctx context.Context, question string) (string, error)
}

// Observer is notified once per request after metrics are updated.
type Observer interface {
	ObserveRequest(ctx context.Context, req Request, resp *Response, entry LogEntry)
}

type Config struct {
	KBThreshold float64
	LogSize     int
}

type Dependencies struct {
	Input       Checker
	Output      Checker
	Retriever   Retriever
	Synthesizer Synthesizer
	Chain       FallbackChain
	Feedback    FeedbackSource
}

// Gateway owns the request pipeline together with its metrics and request
// log. It is safe for concurrent use.
type Gateway struct {
	cfg    Config
	deps   Dependencies
	logger *logrus.Logger

	mu        sync.Mutex
	counters  counters
	log       *requestLog
	observers []Observer
}

func New(cfg Config, deps Dependencies, logger *logrus.Logger) (*Gateway, error) {
	if deps.Input == nil || deps.Output == nil {
		return nil, fmt.Errorf("input and output guardrails are required")
	}
	if deps.Retriever == nil || deps.Synthesizer == nil || deps.Chain == nil {
		return nil, fmt.Errorf("retriever, synthesizer and fallback chain are required")
	}
	if cfg.LogSize <= 0 {
		cfg.LogSize = DefaultLogSize
	}

	return &Gateway{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		log:    newRequestLog(cfg.LogSize),
	}, nil
}

// AddObserver registers o for every subsequent request.
func (g *Gateway) AddObserver(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, o)
}

// Process runs one request to completion. It never returns nil and never
// panics; metrics are updated exactly once.
func (g *Gateway) Process(ctx context.Context, req Request) (resp *Response) {
	start := time.Now()
	tr := &trace{}
	tr.enter(StateReceived)

	// run fills in partial so a panic still reports the verdicts collected
	// before it.
	partial := &Response{
		RequestID: req.ID(),
		Metadata:  map[string]interface{}{},
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.WithFields(logrus.Fields{
				"request_id": req.ID(),
				"panic":      r,
			}).Error("Request processing panicked")
			resp = g.internalError(req, fmt.Errorf("%v", r), tr, partial.GuardrailVerdicts)
		}

		resp.ProcessingTime = time.Since(start).Seconds()
		resp.Metadata["stage"] = string(tr.last())
		tr.enter(StateDone)
		resp.Metadata["states"] = tr.names()

		g.record(ctx, req, resp)
	}()

	g.run(ctx, req, tr, partial)
	return partial
}

func (g *Gateway) run(ctx context.Context, req Request, tr *trace, resp *Response) {
	query := req.Query()

	inputVerdicts := g.deps.Input.Run(ctx, query)
	resp.GuardrailVerdicts = append(resp.GuardrailVerdicts, inputVerdicts...)
	tr.enter(StateInputChecked)

	if block, found := guardrail.FirstBlock(inputVerdicts); found {
		tr.enter(StateBlocked)
		resp.Content = block.Message
		resp.Blocked = true
		resp.Metadata["blocked_by"] = block.Guardrail
		resp.Metadata["agent_used"] = AgentNone

		g.logger.WithFields(logrus.Fields{
			"request_id": req.ID(),
			"guardrail":  block.Guardrail,
		}).Info("Request blocked by input guardrail")
		return
	}

	feedbackContext := g.feedbackContext(ctx, req)

	tr.enter(StateKBLookup)
	content, confidence, solved := g.answerFromKnowledgeBase(ctx, req, feedbackContext, tr, resp)
	if !solved {
		content, confidence, solved = g.answerFromSearch(ctx, req, feedbackContext, tr, resp)
	}

	outputVerdicts := g.deps.Output.Run(ctx, content)
	resp.GuardrailVerdicts = append(resp.GuardrailVerdicts, outputVerdicts...)
	tr.enter(StateOutputChecked)

	resp.Metadata["input_guardrails_passed"] = guardrail.CountPassed(inputVerdicts)
	resp.Metadata["output_guardrails_passed"] = guardrail.CountPassed(outputVerdicts)
	resp.Metadata["total_guardrails_run"] = len(resp.GuardrailVerdicts)

	if block, found := guardrail.FirstBlock(outputVerdicts); found {
		resp.Content = guardrail.SafetyBlockedMessage
		resp.Metadata["output_blocked_by"] = block.Guardrail
		g.logger.WithFields(logrus.Fields{
			"request_id": req.ID(),
			"guardrail":  block.Guardrail,
		}).Warn("Response blocked by output guardrail")
		return
	}

	// the no-solution text is fixed; only answers get reformatted
	if !solved {
		resp.Content = content
		resp.Metadata["output_modified"] = false
		return
	}

	modified := false
	for _, v := range outputVerdicts {
		switch v.Action {
		case guardrail.ActionModify:
			if !modified {
				content = guardrail.Simplify(content)
				modified = true
			}
		case guardrail.ActionWarn:
			if v.Confidence < confidence {
				confidence = v.Confidence
			}
		}
	}
	resp.Metadata["output_modified"] = modified

	resp.Content = content
	resp.Confidence = confidence
	resp.Success = true
}

// feedbackContext is best effort: a failing store only drops the context.
func (g *Gateway) feedbackContext(ctx context.Context, req Request) string {
	if g.deps.Feedback == nil {
		return ""
	}
	text, err := g.deps.Feedback.FeedbackContext(ctx, req.Query())
	if err != nil {
		g.logger.WithError(err).WithField("request_id", req.ID()).Warn("Feedback lookup failed")
		return ""
	}
	return text
}

func (g *Gateway) answerFromKnowledgeBase(ctx context.Context, req Request, feedbackContext string, tr *trace, resp *Response) (string, float64, bool) {
	query := req.Query()

	candidate, err := g.deps.Retriever.FindBest(ctx, query, g.cfg.KBThreshold)
	if err != nil {
		g.logger.WithError(err).WithField("request_id", req.ID()).Warn("Knowledge base lookup failed")
		resp.Metadata["kb_error"] = err.Error()
		candidate = nil
	}

	if candidate == nil {
		tr.enter(StateKBMiss)
		return "", 0, false
	}

	tr.enter(StateKBHit)
	resp.Metadata["similarity"] = candidate.Similarity
	resp.Metadata["kb_question"] = candidate.Question

	tr.enter(StateSynthesizing)
	explanation := g.deps.Synthesizer.Synthesize(ctx, query, tutor.KnowledgeMaterial(candidate), feedbackContext)
	if tutor.IsNoExplanation(explanation) {
		g.logger.WithField("request_id", req.ID()).Warn("Knowledge base synthesis failed, falling back to search")
		resp.Metadata["kb_synthesis_failed"] = true
		return "", 0, false
	}

	resp.Metadata["agent_used"] = AgentKnowledgeBase
	resp.Metadata["source"] = AgentKnowledgeBase

	content := tutor.FormatKnowledgeAnswer(query, candidate.Answer, explanation, candidate.Similarity, "Knowledge Base")
	return content, candidate.Similarity, true
}

func (g *Gateway) answerFromSearch(ctx context.Context, req Request, feedbackContext string, tr *trace, resp *Response) (string, float64, bool) {
	tr.enter(StateFallbackChain)

	outcome := g.deps.Chain.SearchAndSolve(ctx, req.Query(), feedbackContext)
	resp.Metadata["fallback_attempts"] = outcome.Attempts
	resp.Metadata["cached"] = outcome.Cached

	if !outcome.Solved {
		resp.Metadata["agent_used"] = AgentNone
		return outcome.Solution, 0, false
	}

	resp.Metadata["agent_used"] = outcome.Provider
	resp.Metadata["source"] = outcome.Provider

	confidence := UnverifiedConfidence
	if outcome.Verification != nil {
		confidence = float64(outcome.Verification.QualityScore) / 10
		resp.Metadata["quality_score"] = outcome.Verification.QualityScore
		resp.Metadata["verified"] = true
	} else {
		resp.Metadata["verified"] = false
	}

	return outcome.Solution, confidence, true
}

func (g *Gateway) internalError(req Request, err error, tr *trace, verdicts []guardrail.Verdict) *Response {
	tr.enter(StateError)
	return &Response{
		RequestID:         req.ID(),
		Content:           internalErrorPrefix + err.Error(),
		GuardrailVerdicts: verdicts,
		Metadata: map[string]interface{}{
			"error":                err.Error(),
			"agent_used":           AgentNone,
			"total_guardrails_run": len(verdicts),
		},
	}
}

func (g *Gateway) record(ctx context.Context, req Request, resp *Response) {
	passed := guardrail.CountPassed(resp.GuardrailVerdicts)
	states, _ := resp.Metadata["states"].([]string)

	entry := LogEntry{
		RequestID:        req.ID(),
		Timestamp:        time.Now(),
		UserQuery:        req.Query(),
		ResponseLength:   len(resp.Content),
		ProcessingTime:   resp.ProcessingTime,
		GuardrailsPassed: passed,
		GuardrailsFailed: len(resp.GuardrailVerdicts) - passed,
		Success:          resp.Success,
		Blocked:          resp.Blocked,
		AgentUsed:        resp.Agent(),
		Confidence:       resp.Confidence,
		States:           states,
	}

	g.mu.Lock()
	g.counters.record(resp.ProcessingTime, resp.Success, resp.Blocked)
	g.log.push(entry)
	observers := append([]Observer(nil), g.observers...)
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"request_id":      req.ID(),
		"success":         resp.Success,
		"blocked":         resp.Blocked,
		"agent":           entry.AgentUsed,
		"processing_time": resp.ProcessingTime,
	}).Info("Request processed")

	for _, o := range observers {
		g.notify(ctx, o, req, resp, entry)
	}
}

func (g *Gateway) notify(ctx context.Context, o Observer, req Request, resp *Response, entry LogEntry) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.WithField("panic", r).Error("Request observer panicked")
		}
	}()
	o.ObserveRequest(ctx, req, resp, entry)
}

// GetMetrics returns a snapshot with success and block rates in percent.
func (g *Gateway) GetMetrics() Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counters.snapshot(g.log.size)
}

// GetRecentLogs returns the newest limit entries in arrival order. A
// non-positive limit returns the whole log.
func (g *Gateway) GetRecentLogs(limit int) []LogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.log.newest(limit)
}

func (g *Gateway) ResetMetrics() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters = counters{}
	g.log.reset()
	g.logger.Info("Gateway metrics reset")
}
