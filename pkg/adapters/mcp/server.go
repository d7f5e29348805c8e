// Package mcp exposes the formatting workflow as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tracescribe"
	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/adapters/file"
	"github.com/aretw0/tracescribe/pkg/catalog"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/ports"
	"github.com/aretw0/tracescribe/pkg/session"
	"github.com/aretw0/tracescribe/pkg/validator"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const catalogURI = "tracescribe://templates"

// TemplatesResponse is the output of the list_templates tool.
type TemplatesResponse struct {
	Templates []domain.TemplateDescriptor `json:"templates" jsonschema_description:"Templates accepted by the formatting service"`
}

// FormatArgs are the arguments of the format_document tool.
type FormatArgs struct {
	Template   string `json:"template"`
	Path       string `json:"path"`
	OutputPath string `json:"output_path,omitempty"`
}

// FormatResponse is the output of the format_document tool.
type FormatResponse struct {
	Template domain.TemplateID `json:"template" jsonschema_description:"Template applied"`
	Output   string            `json:"output" jsonschema_description:"Path of the formatted Word document"`
	Size     int64             `json:"size" jsonschema_description:"Size of the formatted document in bytes"`
}

// HealthChecker probes the formatting service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server exposes formatting sessions as an MCP Server.
type Server struct {
	factory   session.Factory
	formatter ports.Formatter
	health    HealthChecker
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHealthChecker registers the check_service tool backed by h.
func WithHealthChecker(h HealthChecker) Option {
	return func(s *Server) {
		s.health = h
	}
}

// NewServer creates a new MCP Server instance. Each format_document call runs in its own
// session built from factory.
func NewServer(factory session.Factory, formatter ports.Formatter, opts ...Option) *Server {
	s := &Server{
		factory:   factory,
		formatter: formatter,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("tracescribe-mcp", strings.TrimSpace(tracescribe.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE and stops it when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
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

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the document templates the formatting service can apply."),
		mcp.WithOutputSchema[TemplatesResponse](),
	), mcp.NewStructuredToolHandler(s.handleListTemplates))

	ids := make([]string, 0, len(domain.TemplateIDs()))
	for _, id := range domain.TemplateIDs() {
		ids = append(ids, id.String())
	}
	s.mcpServer.AddTool(mcp.NewTool("format_document",
		mcp.WithDescription("Format a local .docx, .pdf or .txt file (max 10 MB) with a compliance template and save the Word document."),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template to apply: "+strings.Join(ids, ", "))),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the source document")),
		mcp.WithString("output_path", mcp.Description("Where to save the result (file or directory). Defaults to <template>_formatted.docx next to the source.")),
		mcp.WithOutputSchema[FormatResponse](),
	), mcp.NewStructuredToolHandler(s.handleFormatDocument))

	if s.health != nil {
		s.mcpServer.AddTool(mcp.NewTool("check_service",
			mcp.WithDescription("Check that the formatting service is reachable."),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if err := s.health.Health(ctx); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("formatting service unavailable: %s", domain.UserMessage(err))), nil
			}
			return mcp.NewToolResultText("ok"), nil
		})
	}
}

func (s *Server) handleListTemplates(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TemplatesResponse, error) {
	return TemplatesResponse{Templates: catalog.List()}, nil
}

func (s *Server) handleFormatDocument(ctx context.Context, request mcp.CallToolRequest, args FormatArgs) (FormatResponse, error) {
	id, err := domain.ParseTemplateID(args.Template)
	if err != nil {
		return FormatResponse{}, err
	}
	doc, err := validator.Stat(args.Path)
	if err != nil {
		s.logger.Warn("MCP FormatDocument: Input rejected", "error", err, "path", args.Path)
		return FormatResponse{}, fmt.Errorf("input rejected: %s", domain.UserMessage(err))
	}

	sess := session.New(uuid.NewString(), s.factory(), s.formatter, session.WithLogger(s.logger))
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("MCP FormatDocument: Failed to close session", "error", err)
		}
	}()

	blob, err := sess.Format(ctx, id, doc)
	if err != nil {
		return FormatResponse{}, fmt.Errorf("format failed: %w", err)
	}

	dest := file.Destination(args.OutputPath, args.Path, blob.Name)
	if err := file.WriteFile(dest, blob.Data); err != nil {
		return FormatResponse{}, err
	}
	s.logger.Info("MCP FormatDocument: Saved", "template", id, "output", dest, "size", len(blob.Data))

	return FormatResponse{
		Template: id,
		Output:   dest,
		Size:     int64(len(blob.Data)),
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(catalogURI, "Template Catalog",
		mcp.WithMIMEType("text/markdown"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      catalogURI,
				MIMEType: "text/markdown",
				Text:     catalog.Markdown(),
			},
		}, nil
	})
}
