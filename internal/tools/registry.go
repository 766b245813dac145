package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/lead"
	"github.com/Conversly/lead-response/internal/llm"
	"github.com/Conversly/lead-response/internal/metrics"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

// Tool is an invokable tool that can also describe itself to every provider.
type Tool interface {
	tool.InvokableTool
	ToolInfo() *schema.ToolInfo
	JSONSchema() map[string]any
	Declaration() map[string]any
}

// Options selects the tools of one turn.
type Options struct {
	Form    []types.FormField
	Submit  bool
	Handoff bool
	Search  bool
	TopK    int
}

type Registry struct {
	leads  LeadService
	convs  ConversationStore
	search Searcher
}

func NewRegistry(leads LeadService, convs ConversationStore, search Searcher) *Registry {
	return &Registry{leads: leads, convs: convs, search: search}
}

// Build returns the tools enabled for a session.
func (r *Registry) Build(session *Session, opts Options) *Toolset {
	ts := &Toolset{byName: make(map[string]Tool)}
	if opts.Search && r.search != nil {
		ts.add(NewRAGTool(r.search, session.ChatbotID, opts.TopK))
	}
	if opts.Submit {
		ts.add(NewFormTool(session, opts.Form, r.leads, r.convs))
	}
	if opts.Handoff {
		ts.add(NewHandoffTool(session, r.leads))
	}

	utils.Zlog.Debug("Enabled tools for turn",
		zap.String("chatbot_id", session.ChatbotID),
		zap.Strings("tools", ts.Names()))
	return ts
}

// Toolset is the ordered set of tools attached to one completion.
type Toolset struct {
	tools  []Tool
	byName map[string]Tool
}

func (ts *Toolset) add(t Tool) {
	name := t.ToolInfo().Name
	if _, ok := ts.byName[name]; ok {
		return
	}
	ts.tools = append(ts.tools, t)
	ts.byName[name] = t
}

func (ts *Toolset) Len() int { return len(ts.tools) }

func (ts *Toolset) Names() []string {
	names := make([]string, 0, len(ts.tools))
	for _, t := range ts.tools {
		names = append(names, t.ToolInfo().Name)
	}
	return names
}

// Definitions returns the tools in the form llm providers accept.
func (ts *Toolset) Definitions() []llm.ToolDefinition {
	if ts.Len() == 0 {
		return nil
	}
	defs := make([]llm.ToolDefinition, 0, len(ts.tools))
	for _, t := range ts.tools {
		defs = append(defs, t)
	}
	return defs
}

// Declarations returns realtime function declarations.
func (ts *Toolset) Declarations() []map[string]any {
	decls := make([]map[string]any, 0, len(ts.tools))
	for _, t := range ts.tools {
		decls = append(decls, t.Declaration())
	}
	return decls
}

// Dedupe drops repeated calls of one turn: identical name and arguments,
// and any form submission after the first.
func (ts *Toolset) Dedupe(calls []llm.ToolCall) []llm.ToolCall {
	seen := make(map[string]bool, len(calls))
	out := make([]llm.ToolCall, 0, len(calls))
	for _, c := range calls {
		key := c.Name + "\x00" + c.Arguments
		if c.Name == lead.SubmitFormTool {
			key = c.Name
		}
		if seen[key] {
			utils.Zlog.Debug("Dropping duplicate tool call", zap.String("tool", c.Name))
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// Invoke runs a tool by name. Failures come back as error results so the
// model can recover; Invoke itself never fails.
func (ts *Toolset) Invoke(ctx context.Context, name, arguments string) string {
	t, ok := ts.byName[name]
	if !ok {
		metrics.RecordToolCall(name, "unknown")
		return failure("Unknown tool").JSON()
	}

	out, err := t.InvokableRun(ctx, arguments)
	if err != nil {
		utils.Zlog.Error("Tool execution failed",
			zap.String("tool", name),
			zap.Error(err))
		out = failure(err.Error()).JSON()
	}
	status := StatusOf(out)
	metrics.RecordToolCall(name, status)
	utils.Zlog.Info("Tool executed",
		zap.String("tool", name),
		zap.String("status", status))
	return out
}

