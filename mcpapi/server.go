// Package mcpapi exposes the solver as Model Context Protocol tools.
package mcpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ByLCY/linkage/scissor"
)

// SolveResponse is the structured output of solve_scissor. Code is non-zero
// on failure and then Segments is empty.
type SolveResponse struct {
	Code       scissor.Code      `json:"code" jsonschema_description:"0 on success, otherwise the failure code"`
	Name       string            `json:"name" jsonschema_description:"Symbolic name of the result code"`
	Error      string            `json:"error,omitempty" jsonschema_description:"Failure detail"`
	Reach      float64           `json:"reach" jsonschema_description:"Distance from the base origin to the tip"`
	Angle      float64           `json:"angle" jsonschema_description:"Effective opening angle in radians"`
	Iterations int               `json:"iterations" jsonschema_description:"Bisection iterations used"`
	Segments   []scissor.Segment `json:"segments" jsonschema_description:"Two segments per unit, base first"`
}

// ChainResponse is the structured output of default_chain. Code is non-zero
// when the size is rejected and then Chain is empty.
type ChainResponse struct {
	Code  scissor.Code  `json:"code" jsonschema_description:"0 on success, otherwise the failure code"`
	Name  string        `json:"name" jsonschema_description:"Symbolic name of the result code"`
	Error string        `json:"error,omitempty" jsonschema_description:"Failure detail"`
	Chain scissor.Chain `json:"chain" jsonschema_description:"Units from base to tip"`
}

// EnvelopeResponse is the structured output of reach_envelope.
type EnvelopeResponse struct {
	scissor.Envelope
	Mode string `json:"mode"`
}

// ValidateResponse is the structured output of validate_chain.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Index int    `json:"index" jsonschema_description:"Index of the first failing unit, -1 for chain level failures"`
	Rule  string `json:"rule,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server wraps an MCP server with the linkage tools registered.
type Server struct {
	opts      scissor.SolveOptions
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server. opts supplies solver defaults.
func NewServer(version string, opts scissor.SolveOptions) *Server {
	s := &Server{
		opts:      opts,
		mcpServer: server.NewMCPServer("linkage-mcp", version),
	}
	s.registerTools()
	return s
}

// ServeStdio serves on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr, "base_url", baseURL)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	solveTool := mcp.NewTool("solve_scissor",
		mcp.WithDescription("Solve a scissor chain for a target reach and opening angle. Returns two segments per unit."),
		mcp.WithString("chain", mcp.Required(), mcp.Description(`JSON array of units, e.g. [{"a":1,"b":1,"c":0.5,"d":0.5}]`)),
		mcp.WithNumber("radius", mcp.Required(), mcp.Description("Target distance from base origin to tip")),
		mcp.WithNumber("angle", mcp.Required(), mcp.Description("Opening angle in radians, exclusive (0, pi)")),
		mcp.WithString("mode", mcp.Description("Angle propagation: uniform (default) or inherited")),
		mcp.WithOutputSchema[SolveResponse](),
	)
	s.mcpServer.AddTool(solveTool, mcp.NewStructuredToolHandler(s.handleSolve))

	chainTool := mcp.NewTool("default_chain",
		mcp.WithDescription("Build a chain of identical default units (a=b=1, c=d=0.5)."),
		mcp.WithNumber("size", mcp.Required(), mcp.Description("Number of units, at least 1")),
		mcp.WithOutputSchema[ChainResponse](),
	)
	s.mcpServer.AddTool(chainTool, mcp.NewStructuredToolHandler(s.handleDefaultChain))

	envelopeTool := mcp.NewTool("reach_envelope",
		mcp.WithDescription("Report the closed interval of reach achievable at the given opening angle."),
		mcp.WithString("chain", mcp.Required(), mcp.Description("JSON array of units")),
		mcp.WithNumber("angle", mcp.Required(), mcp.Description("Opening angle in radians")),
		mcp.WithString("mode", mcp.Description("uniform or inherited")),
		mcp.WithOutputSchema[EnvelopeResponse](),
	)
	s.mcpServer.AddTool(envelopeTool, mcp.NewStructuredToolHandler(s.handleEnvelope))

	validateTool := mcp.NewTool("validate_chain",
		mcp.WithDescription("Check a chain against the unit constraints and report the first violation."),
		mcp.WithString("chain", mcp.Required(), mcp.Description("JSON array of units")),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))
}

func (s *Server) handleSolve(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SolveResponse, error) {
	chain, err := chainArg(args)
	if err != nil {
		return SolveResponse{}, err
	}
	radius, err := numberArg(args, "radius")
	if err != nil {
		return SolveResponse{}, err
	}
	angle, err := numberArg(args, "angle")
	if err != nil {
		return SolveResponse{}, err
	}
	opts, err := s.withMode(args)
	if err != nil {
		return SolveResponse{}, err
	}

	sol, err := scissor.Solve(chain, scissor.Actuation{Radius: radius, Angle: angle}, opts)
	if err != nil {
		code := scissor.CodeOf(err)
		slog.Debug("MCP solve rejected", "code", code, "error", err)
		return SolveResponse{Code: code, Name: code.String(), Error: err.Error(), Segments: []scissor.Segment{}}, nil
	}
	return SolveResponse{
		Code:       scissor.CodeSuccess,
		Name:       scissor.CodeSuccess.String(),
		Reach:      sol.Reach,
		Angle:      sol.Angle,
		Iterations: sol.Iterations,
		Segments:   sol.Segments,
	}, nil
}

func (s *Server) handleDefaultChain(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ChainResponse, error) {
	size, err := numberArg(args, "size")
	if err != nil {
		return ChainResponse{}, err
	}
	if size < 0 || size != float64(uint32(size)) {
		return ChainResponse{}, fmt.Errorf("size must be a non-negative integer, got %v", size)
	}
	chain, err := scissor.DefaultChain(uint(size))
	if err != nil {
		code := scissor.CodeOf(err)
		return ChainResponse{Code: code, Name: code.String(), Error: err.Error(), Chain: scissor.Chain{}}, nil
	}
	return ChainResponse{Code: scissor.CodeSuccess, Name: scissor.CodeSuccess.String(), Chain: chain}, nil
}

func (s *Server) handleEnvelope(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EnvelopeResponse, error) {
	chain, err := chainArg(args)
	if err != nil {
		return EnvelopeResponse{}, err
	}
	angle, err := numberArg(args, "angle")
	if err != nil {
		return EnvelopeResponse{}, err
	}
	opts, err := s.withMode(args)
	if err != nil {
		return EnvelopeResponse{}, err
	}
	env, err := scissor.ReachEnvelope(chain, angle, opts)
	if err != nil {
		return EnvelopeResponse{}, fmt.Errorf("%s: %w", scissor.CodeOf(err), err)
	}
	return EnvelopeResponse{Envelope: env, Mode: opts.Mode.String()}, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	chain, err := chainArg(args)
	if err != nil {
		return ValidateResponse{}, err
	}
	resp := ValidateResponse{Valid: true, Index: -1}
	if err := scissor.ValidateChain(chain); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
		var ve *scissor.ValidationError
		if errors.As(err, &ve) {
			resp.Index = ve.Index
			resp.Rule = ve.Rule.String()
		}
	}
	return resp, nil
}

func (s *Server) withMode(args map[string]interface{}) (scissor.SolveOptions, error) {
	opts := s.opts
	mode, _ := args["mode"].(string)
	if mode == "" {
		return opts, nil
	}
	m, err := scissor.ParseAngleMode(mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = m
	return opts, nil
}

// chainArg accepts the chain either as a JSON string or as an already decoded array.
func chainArg(args map[string]interface{}) (scissor.Chain, error) {
	var raw []byte
	switch v := args["chain"].(type) {
	case nil:
		return nil, errors.New("chain is required")
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("chain: %w", err)
		}
		raw = b
	}
	var chain scissor.Chain
	if err := json.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}
	return chain, nil
}

func numberArg(args map[string]interface{}, key string) (float64, error) {
	switch v := args[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("%s is required", key)
	default:
		return 0, fmt.Errorf("%s: expected a number, got %T", key, v)
	}
}
