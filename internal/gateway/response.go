package gateway

import (
	"github.com/Ayash-Bera/mathgate/backend/internal/guardrail"
)

// State is a step of the request pipeline.
type State string

const (
	StateReceived      State = "RECEIVED"
	StateInputChecked  State = "INPUT_CHECKED"
	StateBlocked       State = "BLOCKED"
	StateKBLookup      State = "KB_LOOKUP"
	StateKBHit         State = "KB_HIT"
	StateKBMiss        State = "KB_MISS"
	StateSynthesizing  State = "SYNTHESIZING"
	StateFallbackChain State = "FALLBACK_CHAIN"
	StateOutputChecked State = "OUTPUT_CHECKED"
	StateError         State = "ERROR"
	StateDone          State = "DONE"
)

const (
	AgentKnowledgeBase = "knowledge_base"
	AgentNone          = "none"

	// UnverifiedConfidence is assigned to web answers that skipped verification.
	UnverifiedConfidence = 0.7

	internalErrorPrefix = "An error occurred while processing your math question: "
)

// Response is the terminal artifact of one request.
type Response struct {
	RequestID         string                 `json:"request_id"`
	Content           string                 `json:"content"`
	Success           bool                   `json:"success"`
	Blocked           bool                   `json:"blocked"`
	Confidence        float64                `json:"confidence"`
	ProcessingTime    float64                `json:"processing_time"`
	GuardrailVerdicts []guardrail.Verdict    `json:"guardrail_verdicts"`
	Metadata          map[string]interface{} `json:"metadata"`
}

func (r *Response) Agent() string {
	if agent, ok := r.Metadata["agent_used"].(string); ok {
		return agent
	}
	return AgentNone
}

// trace collects the states a request passes through.
type trace struct {
	states []State
}

func (t *trace) enter(s State) {
	t.states = append(t.states, s)
}

func (t *trace) last() State {
	if len(t.states) == 0 {
		return StateReceived
	}
	return t.states[len(t.states)-1]
}

func (t *trace) names() []string {
	out := make([]string, len(t.states))
	for i, s := range t.states {
		out[i] = string(s)
	}
	return out
}
