package models

type SolveRequest struct {
	Question  string `json:"question" binding:"required"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type GuardrailResult struct {
	Name       string  `json:"guardrail_name"`
	Passed     bool    `json:"passed"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

type SolveResponse struct {
	RequestID      string                 `json:"request_id"`
	Content        string                 `json:"content"`
	Success        bool                   `json:"success"`
	Blocked        bool                   `json:"blocked"`
	Confidence     float64                `json:"confidence"`
	ProcessingTime float64                `json:"processing_time"`
	AgentUsed      string                 `json:"agent_used"`
	Guardrails     []GuardrailResult      `json:"guardrails"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type FeedbackRequest struct {
	Question            string `json:"question" binding:"required"`
	OriginalResponse    string `json:"original_response"`
	Rating              int    `json:"rating" binding:"required,min=1,max=5"`
	FeedbackText        string `json:"feedback_text"`
	SuggestedCorrection string `json:"suggested_correction"`
}

type FeedbackResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type SimilarFeedback struct {
	ID                  string  `json:"id"`
	Question            string  `json:"question"`
	Rating              int     `json:"rating"`
	FeedbackText        string  `json:"feedback_text"`
	SuggestedCorrection string  `json:"suggested_correction"`
	Similarity          float64 `json:"similarity"`
}

type KBSearchResult struct {
	ID         uint64  `json:"id"`
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Score      float64 `json:"score"`
	Relevance  string  `json:"relevance"`
	Level      string  `json:"level,omitempty"`
	Category   string  `json:"category,omitempty"`
	Difficulty int     `json:"difficulty,omitempty"`
}

type KBSearchResponse struct {
	Results      []KBSearchResult `json:"results"`
	Total        int              `json:"total"`
	ResponseTime int              `json:"response_time_ms"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
