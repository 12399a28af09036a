package mcp

import (
	"context"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/internal/services"
	"github.com/Ayash-Bera/mathgate/backend/internal/tutor"
	"github.com/Ayash-Bera/mathgate/backend/internal/websearch"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("solve_math_question",
			mcplib.WithDescription(`Answer a math question through the full guarded pipeline.

The question is checked by the input guardrails, looked up in the knowledge
base and, on a miss, answered from web search. The answer is checked by the
output guardrails before it is returned.`),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("question",
				mcplib.Description("The math question to solve"),
				mcplib.Required(),
			),
			mcplib.WithString("user_id",
				mcplib.Description("Optional caller identifier recorded with the request"),
			),
		),
		s.handleSolve,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("search_math_tavily",
			mcplib.WithDescription("Search the web for a math problem with Tavily and return the raw results plus extracted solution snippets."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("The math problem to search for"),
				mcplib.Required(),
			),
		),
		s.searchHandler(websearch.TavilyName),
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("search_math_serper",
			mcplib.WithDescription("Search Google through Serper for a math problem and return the raw results plus extracted solution snippets."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("The math problem to search for"),
				mcplib.Required(),
			),
		),
		s.searchHandler(websearch.SerperName),
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("extract_math_solution",
			mcplib.WithDescription("Write a step-by-step solution for a question from search evidence."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("question",
				mcplib.Description("The original math question"),
				mcplib.Required(),
			),
			mcplib.WithString("evidence",
				mcplib.Description("Search snippets to build the solution from"),
				mcplib.Required(),
			),
			mcplib.WithString("source",
				mcplib.Description("Where the evidence came from"),
				mcplib.Enum(websearch.TavilyName, websearch.SerperName),
			),
		),
		s.handleExtract,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("verify_math_content",
			mcplib.WithDescription("Review a solution for mathematical accuracy. The quality score (0-10) is a best-effort classification, not a proof."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("question",
				mcplib.Description("The original math question"),
				mcplib.Required(),
			),
			mcplib.WithString("solution",
				mcplib.Description("The solution to verify"),
				mcplib.Required(),
			),
		),
		s.handleVerify,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("submit_feedback",
			mcplib.WithDescription("Rate an answer. Ratings shape later answers to similar questions."),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithString("question",
				mcplib.Description("The question that was answered"),
				mcplib.Required(),
			),
			mcplib.WithString("original_response",
				mcplib.Description("The answer being rated"),
			),
			mcplib.WithNumber("rating",
				mcplib.Description("Rating from 1 (wrong) to 5 (excellent)"),
				mcplib.Required(),
				mcplib.Min(1),
				mcplib.Max(5),
			),
			mcplib.WithString("feedback_text",
				mcplib.Description("What was good or bad about the answer"),
			),
			mcplib.WithString("suggested_correction",
				mcplib.Description("A corrected answer, if any"),
			),
		),
		s.handleFeedback,
	)
}

func (s *Server) handleSolve(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	question := request.GetString("question", "")
	if strings.TrimSpace(question) == "" {
		return errorResult("question is required"), nil
	}

	var opts []gateway.Option
	if userID := request.GetString("user_id", ""); userID != "" {
		opts = append(opts, gateway.WithUserID(userID))
	}

	resp, err := s.tutor.Ask(ctx, question, opts...)
	if err != nil {
		return errorResult(fmt.Sprintf("solve failed: %v", err)), nil
	}

	return jsonResult(services.SolveResponseFrom(resp)), nil
}

type searchToolResult struct {
	websearch.SearchResult
	Snippets []string `json:"snippets"`
}

func (s *Server) searchHandler(provider string) func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		query := request.GetString("query", "")
		if strings.TrimSpace(query) == "" {
			return errorResult("query is required"), nil
		}

		p, ok := s.providers.Provider(provider)
		if !ok {
			return errorResult(fmt.Sprintf("%s search is not configured", provider)), nil
		}

		result := p.Search(ctx, query)
		if !result.Success {
			return errorResult(fmt.Sprintf("%s search failed: %s", provider, result.Error)), nil
		}

		s.logger.WithFields(logrus.Fields{
			"provider":  provider,
			"documents": len(result.Documents),
		}).Debug("MCP search completed")

		return jsonResult(searchToolResult{
			SearchResult: result,
			Snippets:     websearch.Extract(result),
		}), nil
	}
}

func (s *Server) handleExtract(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	question := request.GetString("question", "")
	evidence := request.GetString("evidence", "")
	if strings.TrimSpace(question) == "" || strings.TrimSpace(evidence) == "" {
		return errorResult("question and evidence are required"), nil
	}
	source := request.GetString("source", websearch.TavilyName)

	explanation := s.synth.Synthesize(ctx, question, tutor.SearchMaterial(source, evidence), "")
	if tutor.IsNoExplanation(explanation) {
		return errorResult(tutor.NoExplanation), nil
	}

	return jsonResult(map[string]any{
		"source":   source,
		"solution": tutor.FormatSearchAnswer(question, explanation, source, 0),
	}), nil
}

func (s *Server) handleVerify(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	question := request.GetString("question", "")
	solution := request.GetString("solution", "")
	if strings.TrimSpace(question) == "" || strings.TrimSpace(solution) == "" {
		return errorResult("question and solution are required"), nil
	}

	return jsonResult(s.verifier.Verify(ctx, solution, question)), nil
}

func (s *Server) handleFeedback(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	record, err := s.tutor.SubmitFeedback(ctx, models.FeedbackRequest{
		Question:            request.GetString("question", ""),
		OriginalResponse:    request.GetString("original_response", ""),
		Rating:              request.GetInt("rating", 0),
		FeedbackText:        request.GetString("feedback_text", ""),
		SuggestedCorrection: request.GetString("suggested_correction", ""),
	})
	if err != nil {
		return errorResult(fmt.Sprintf("feedback rejected: %v", err)), nil
	}

	return jsonResult(models.FeedbackResponse{
		ID:      record.ID,
		Message: "Feedback recorded",
	}), nil
}
