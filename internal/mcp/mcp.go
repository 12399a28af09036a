// Package mcp exposes the tutoring pipeline and its building blocks as
// Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/feedback"
	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/internal/websearch"
)

const (
	ServerName    = "mathgate"
	ServerVersion = "1.0.0"
)

// Tutor is the application service the tools delegate to.
type Tutor interface {
	Ask(ctx context.Context, question string, opts ...gateway.Option) (*gateway.Response, error)
	SubmitFeedback(ctx context.Context, req models.FeedbackRequest) (feedback.Record, error)
}

// Providers looks up configured web search providers by name.
type Providers interface {
	Provider(name string) (websearch.Provider, bool)
}

type Server struct {
	mcpServer *mcpserver.MCPServer
	tutor     Tutor
	providers Providers
	synth     websearch.Synthesizer
	verifier  websearch.Verifier
	logger    *logrus.Logger
}

func New(tutor Tutor, providers Providers, synth websearch.Synthesizer, verifier websearch.Verifier, logger *logrus.Logger) *Server {
	s := &Server{
		tutor:     tutor,
		providers: providers,
		synth:     synth,
		verifier:  verifier,
		logger:    logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		ServerName,
		ServerVersion,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions("Math tutoring tools. Call solve_math_question for a full guarded answer; the other tools expose the individual pipeline steps."),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// HTTPHandler serves the tools over streamable HTTP.
func (s *Server) HTTPHandler() *mcpserver.StreamableHTTPServer {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer)
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to encode result: " + err.Error())
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
