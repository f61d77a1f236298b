// Package mcp provides an MCP (Model Context Protocol) server that lets an
// assistant dry-run ditto commands: extract and validate fields from a
// spoken sentence, list tracker teams, and read command metrics and alerts.
// No tool creates an issue.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/internal/observability"
	"github.com/valter-silva-au/ditto/pkg/models"
)

// Services are the ditto components exposed as tools. Validator and
// Directory are needed for preview_command and list_teams; MetricsCalc and
// AlertEngine may be nil when the event log is unavailable.
type Services struct {
	Extractor   *core.FieldExtractor
	Validator   *core.FieldValidator
	Directory   core.ReferenceDirectory
	MetricsCalc observability.MetricsCalculator
	AlertEngine observability.AlertEngine
}

// Server wraps ditto services and exposes them as MCP tools.
type Server struct {
	server *gomcp.Server
	svc    Services
}

// NewServer creates an MCP server over svc.
func NewServer(svc Services, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{svc: svc}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "ditto", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type textInput struct {
	Text string `json:"text" jsonschema:"required,the spoken command, e.g. 'please create issue fix login team engineering priority high'"`
}

type extractOutput struct {
	Values map[string]string `json:"values"`
	Labels []string          `json:"labels,omitempty"`
}

type resolvedOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type omissionOutput struct {
	Field  string `json:"field"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

type previewOutput struct {
	Status         string           `json:"status"` // ready, aborted or empty
	Reason         string           `json:"reason,omitempty"`
	AvailableTeams []string         `json:"available_teams,omitempty"`
	Team           *resolvedOutput  `json:"team,omitempty"`
	Title          string           `json:"title,omitempty"`
	Applied        []string         `json:"applied,omitempty"`
	Omissions      []omissionOutput `json:"omissions,omitempty"`
}

type listTeamsInput struct{}

type teamOutput struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type listTeamsOutput struct {
	Teams []teamOutput `json:"teams"`
	Count int          `json:"count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	CommandsOpened   int            `json:"commands_opened"`
	IssuesCreated    int            `json:"issues_created"`
	CommandsAborted  int            `json:"commands_aborted"`
	CommandsFailed   int            `json:"commands_failed"`
	CommandsEmpty    int            `json:"commands_empty"`
	OmissionsByField map[string]int `json:"omissions_by_field"`
	AvgLatencyMs     int64          `json:"avg_latency_ms"`
	EventCount       int            `json:"event_count"`
	OldestEvent      string         `json:"oldest_event,omitempty"`
	NewestEvent      string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "extract_fields",
		Description: "Split a spoken command into raw field values (team, project, cycle, due_date, priority, assignee, label, title, description) without contacting the tracker.",
	}, s.handleExtractFields)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "preview_command",
		Description: "Extract and validate a spoken command against the tracker and report what would be created, which fields would be ignored, or why the command would abort. Never creates an issue.",
	}, s.handlePreviewCommand)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_teams",
		Description: "List the tracker teams a command can name.",
	}, s.handleListTeams)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get command outcome counts, omissions per field and dispatch latency from the event log.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (repeated dispatch failures, abort streaks, frequently dropped fields).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleExtractFields(_ context.Context, _ *gomcp.CallToolRequest, input textInput) (*gomcp.CallToolResult, extractOutput, error) {
	if input.Text == "" {
		return errorResult("text is required"), extractOutput{}, nil
	}
	return nil, toExtractOutput(s.svc.Extractor.Extract(input.Text)), nil
}

func (s *Server) handlePreviewCommand(ctx context.Context, _ *gomcp.CallToolRequest, input textInput) (*gomcp.CallToolResult, previewOutput, error) {
	if input.Text == "" {
		return errorResult("text is required"), previewOutput{}, nil
	}
	if s.svc.Validator == nil {
		return errorResult("validator not available (no tracker configured)"), previewOutput{}, nil
	}

	fields := s.svc.Extractor.Extract(input.Text)
	if len(fields.Values) == 0 && len(fields.Labels) == 0 {
		return nil, previewOutput{Status: string(models.OutcomeEmpty)}, nil
	}

	validated, err := s.svc.Validator.Validate(ctx, fields)
	if err != nil {
		var abort *core.AbortError
		if errors.As(err, &abort) {
			return nil, previewOutput{
				Status:         string(models.OutcomeAborted),
				Reason:         abort.Reason,
				AvailableTeams: abort.AvailableTeams,
			}, nil
		}
		return errorResult(fmt.Sprintf("validating command: %s", err)), previewOutput{}, nil
	}

	out := previewOutput{
		Status: "ready",
		Team:   &resolvedOutput{ID: validated.Team.ID, Name: validated.Team.Name},
		Title:  validated.Title,
	}
	for _, a := range validated.Applied() {
		out.Applied = append(out.Applied, fmt.Sprintf("%s=%s", a.Field, a.Value))
	}
	for _, om := range validated.Omissions {
		out.Omissions = append(out.Omissions, omissionOutput{Field: string(om.Field), Value: om.Value, Reason: om.Reason})
	}
	return nil, out, nil
}

func (s *Server) handleListTeams(ctx context.Context, _ *gomcp.CallToolRequest, _ listTeamsInput) (*gomcp.CallToolResult, listTeamsOutput, error) {
	if s.svc.Directory == nil {
		return errorResult("tracker not available"), listTeamsOutput{}, nil
	}
	teams, err := s.svc.Directory.Teams(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("listing teams: %s", err)), listTeamsOutput{}, nil
	}
	out := listTeamsOutput{Teams: make([]teamOutput, len(teams)), Count: len(teams)}
	for i, t := range teams {
		out.Teams[i] = teamOutput{ID: t.ID, Key: t.Key, Name: t.Name}
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.svc.MetricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}
	sinceTime, err := ParseSince(sinceStr, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	m, err := s.svc.MetricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		CommandsOpened:   m.CommandsOpened,
		IssuesCreated:    m.IssuesCreated,
		CommandsAborted:  m.CommandsAborted,
		CommandsFailed:   m.CommandsFailed,
		CommandsEmpty:    m.CommandsEmpty,
		OmissionsByField: m.OmissionsByField,
		AvgLatencyMs:     m.AvgLatencyMs,
		EventCount:       m.EventCount,
	}
	if m.OldestEvent != nil {
		out.OldestEvent = m.OldestEvent.Format(time.RFC3339)
	}
	if m.NewestEvent != nil {
		out.NewestEvent = m.NewestEvent.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.svc.AlertEngine == nil {
		return errorResult("alert engine not available (event log may be disabled)"), getAlertsOutput{}, nil
	}
	alerts, err := s.svc.AlertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{Alerts: make([]alertOutput, len(alerts)), Count: len(alerts)}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func toExtractOutput(f models.ExtractedFields) extractOutput {
	out := extractOutput{Values: make(map[string]string, len(f.Values)), Labels: f.Labels}
	for field, v := range f.Values {
		out.Values[string(field)] = v
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{OmissionsByField: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ParseSince turns "7d" or "24h" into the instant that long before now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	var num int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if num < 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q: must not be negative", s)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
