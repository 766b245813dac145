package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/core"
	"github.com/Conversly/lead-response/internal/lead"
	"github.com/Conversly/lead-response/internal/llm"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/metrics"
	"github.com/Conversly/lead-response/internal/persona"
	"github.com/Conversly/lead-response/internal/rag"
	"github.com/Conversly/lead-response/internal/sessions"
	"github.com/Conversly/lead-response/internal/tools"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

// NewChatID is the conversation id clients send to start a conversation.
const NewChatID = "NEW_CHAT"

// saveWait bounds how long a turn waits for its history to be stored
// before the stream is ended.
const saveWait = 5 * time.Second

// Row defaults for conversations created without a known user.
const (
	GuestUserID = "guest"
	GuestEmail  = "guest@example.com"
	DefaultPlan = "free"
)

const (
	EventThreadCreated = "thread_created"
	EventEnd           = "end"
	EventComplete      = "complete"
)

// Event is one server-sent event of a chat stream.
type Event struct {
	Token    string `json:"token,omitempty"`
	Event    string `json:"event,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// EmitFunc delivers an event. A non-nil error means the client is gone.
type EmitFunc func(Event) error

type Request struct {
	ChatbotID      string `json:"chatbot_id" binding:"required"`
	UserID         string `json:"user_id"`
	Prompt         string `json:"prompt" binding:"required"`
	ConversationID string `json:"conversation_id"`
	UserEmail      string `json:"user_email"`
	UserPlan       string `json:"user_plan"`
}

// Store is the read side the orchestrator needs.
type Store interface {
	GetChatbot(ctx context.Context, chatbotID string) (*types.Chatbot, error)
	GetPreChatForm(ctx context.Context, chatbotID string) ([]types.FormField, error)
	GetConversation(ctx context.Context, conversationID string) (*types.Conversation, error)
	GetCustomer(ctx context.Context, organizationID, email string) (*types.Customer, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, chatbotID, query string, k int) []types.ChunkMatch
}

type TurnSink interface {
	Enqueue(t core.Turn)
}

type Deps struct {
	Store     Store
	Retriever Retriever
	Tools     *tools.Registry
	Sessions  sessions.Store
	Turns     TurnSink
	Timeout   time.Duration
}

// Orchestrator runs chat turns against one provider.
type Orchestrator struct {
	deps     Deps
	provider llm.Provider
	now      func() time.Time
}

func NewOrchestrator(provider llm.Provider, deps Deps) *Orchestrator {
	if deps.Timeout <= 0 {
		deps.Timeout = 60 * time.Second
	}
	return &Orchestrator{deps: deps, provider: provider, now: time.Now}
}

func (o *Orchestrator) Provider() string { return o.provider.Name() }

type turnState struct {
	req       Request
	bot       *types.Chatbot
	conv      *types.Conversation
	isNew     bool
	exists    bool
	session   *tools.Session
	toolset   *tools.Toolset
	decision  lead.Decision
	turns     int
	emitOK    bool
	emit      EmitFunc
	response  strings.Builder
	startedAt time.Time
}

// send forwards an event until the client goes away; the turn keeps
// running so dispatched tools and persistence still complete.
func (t *turnState) send(ev Event) {
	if !t.emitOK {
		return
	}
	if err := t.emit(ev); err != nil {
		utils.Zlog.Info("Client disconnected",
			zap.String("chatbot_id", t.req.ChatbotID),
			zap.Error(err))
		t.emitOK = false
	}
}

// Stream runs one conversation turn, emitting events as they happen.
func (o *Orchestrator) Stream(ctx context.Context, req Request, emit EmitFunc) {
	t := &turnState{req: req, emit: emit, emitOK: true, startedAt: o.now()}

	bot, err := o.deps.Store.GetChatbot(ctx, req.ChatbotID)
	if errors.Is(err, loaders.ErrNotFound) {
		t.send(Event{Error: "Invalid Chatbot ID"})
		return
	}
	if err != nil {
		utils.Zlog.Error("Error validating chatbot_id", zap.String("chatbot_id", req.ChatbotID), zap.Error(err))
		t.send(Event{Error: "Database connection error during validation"})
		return
	}
	t.bot = bot

	o.resolveConversation(ctx, t)
	sysPrompt := o.prepare(ctx, t)

	messages := append(HistoryMessages(t.conv.History), schema.UserMessage(req.Prompt))
	if !o.complete(ctx, t, &llm.Request{
		SystemPrompt: sysPrompt,
		Messages:     messages,
		Tools:        t.toolset.Definitions(),
	}) {
		return
	}

	o.persist(ctx, t)
	t.send(Event{Event: EventEnd})
}

func (o *Orchestrator) resolveConversation(ctx context.Context, t *turnState) {
	id := strings.TrimSpace(t.req.ConversationID)
	email := strings.TrimSpace(t.req.UserEmail)

	if id == "" || id == NewChatID {
		t.isNew = true
		t.conv = &types.Conversation{ConversationID: uuid.NewString(), ChatbotID: t.req.ChatbotID}
		t.send(Event{Event: EventThreadCreated, ThreadID: t.conv.ConversationID})
	} else {
		conv, err := o.deps.Store.GetConversation(ctx, id)
		switch {
		case err == nil:
			t.conv = conv
			t.exists = true
		case errors.Is(err, loaders.ErrNotFound):
			t.conv = &types.Conversation{ConversationID: id, ChatbotID: t.req.ChatbotID}
		default:
			utils.Zlog.Error("Error fetching history", zap.String("conversation_id", id), zap.Error(err))
			t.conv = &types.Conversation{ConversationID: id, ChatbotID: t.req.ChatbotID}
		}
		if email == "" {
			email = t.conv.UserEmail
		}
	}

	t.turns = lead.TurnCount(t.conv.History)
	if o.deps.Sessions != nil && !t.isNew && (email == "" || !t.exists) {
		if st, err := o.deps.Sessions.Get(ctx, t.conv.ConversationID); err == nil {
			if email == "" {
				email = st.UserEmail
			}
			// the stored history may lag behind a turn still being saved
			if st.Turns > t.turns {
				t.turns = st.Turns
			}
		}
	}

	t.session = &tools.Session{
		ChatbotID:      t.req.ChatbotID,
		UserID:         t.req.UserID,
		UserEmail:      email,
		ConversationID: t.conv.ConversationID,
	}
}

// prepare retrieves knowledge, applies the lead policy and selects tools.
func (o *Orchestrator) prepare(ctx context.Context, t *turnState) string {
	matches := o.deps.Retriever.Retrieve(ctx, t.req.ChatbotID, t.req.Prompt, rag.TextTopK)

	form, err := o.deps.Store.GetPreChatForm(ctx, t.req.ChatbotID)
	if err != nil {
		utils.Zlog.Warn("Failed to load pre-chat form", zap.String("chatbot_id", t.req.ChatbotID), zap.Error(err))
	}

	identity := lead.Identity{Email: t.session.UserEmail}
	if identity.Known() {
		cust, err := o.deps.Store.GetCustomer(ctx, t.bot.OrganizationID, identity.Email)
		switch {
		case err == nil:
			identity = lead.IdentityFromCustomer(identity.Email, cust)
		case !errors.Is(err, loaders.ErrNotFound):
			utils.Zlog.Error("Error fetching customer context", zap.String("chatbot_id", t.req.ChatbotID), zap.Error(err))
		}
	}

	t.decision = lead.Decide(lead.Input{
		Identity:  identity,
		Form:      form,
		TurnCount: t.turns,
		Prompt:    t.req.Prompt,
	})
	t.toolset = o.deps.Tools.Build(t.session, tools.Options{
		Form:    form,
		Submit:  t.decision.AttachSubmit,
		Handoff: t.decision.AttachHandoff,
	})

	utils.Zlog.Info("Prepared chat turn",
		zap.String("chatbot_id", t.req.ChatbotID),
		zap.String("conversation_id", t.conv.ConversationID),
		zap.String("provider", o.provider.Name()),
		zap.Int("matches", len(matches)),
		zap.Bool("returning", identity.Known() && identity.Returning()),
		zap.Strings("heavy_intent", t.decision.HeavyIntent),
		zap.Strings("tools", t.toolset.Names()))

	return SystemPrompt(persona.For(t.bot.OrganizationType), rag.FormatContext(matches), t.decision.Instructions)
}

// complete streams one completion, runs any tool calls and streams the
// follow-up. It reports false when the turn failed and must not be saved.
func (o *Orchestrator) complete(ctx context.Context, t *turnState, req *llm.Request) bool {
	text, calls, ok := o.streamOnce(ctx, t, req)
	if !ok {
		return false
	}
	if len(calls) == 0 {
		return true
	}

	calls = t.toolset.Dedupe(calls)
	assistant := schema.AssistantMessage(text, make([]schema.ToolCall, 0, len(calls)))
	results := make([]*schema.Message, 0, len(calls))
	for _, c := range calls {
		assistant.ToolCalls = append(assistant.ToolCalls, schema.ToolCall{
			ID:       c.ID,
			Type:     "function",
			Function: schema.FunctionCall{Name: c.Name, Arguments: c.Arguments},
		})
		// tools finish even if the client has gone
		out := t.toolset.Invoke(context.WithoutCancel(ctx), c.Name, c.Arguments)
		results = append(results, &schema.Message{
			Role:       schema.Tool,
			Content:    out,
			ToolCallID: c.ID,
			ToolName:   c.Name,
		})
	}

	followUp := &llm.Request{
		SystemPrompt: req.SystemPrompt,
		Messages:     append(append(append([]*schema.Message{}, req.Messages...), assistant), results...),
	}
	_, _, ok = o.streamOnce(ctx, t, followUp)
	return ok
}

func (o *Orchestrator) streamOnce(ctx context.Context, t *turnState, req *llm.Request) (string, []llm.ToolCall, bool) {
	start := o.now()
	ctx, cancel := context.WithTimeout(ctx, o.deps.Timeout)
	defer cancel()

	fail := func(err error) (string, []llm.ToolCall, bool) {
		metrics.RecordLLMStream(o.provider.Name(), "error", time.Since(start).Seconds())
		utils.Zlog.Error("LLM stream failed",
			zap.String("chatbot_id", t.req.ChatbotID),
			zap.String("provider", o.provider.Name()),
			zap.Error(err))
		t.send(Event{Error: err.Error()})
		return "", nil, false
	}

	stream, err := o.provider.StreamComplete(ctx, req)
	if err != nil {
		return fail(err)
	}
	defer stream.Close()

	acc := llm.NewToolCallAccumulator()
	var text strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}
		if delta.Text != "" {
			text.WriteString(delta.Text)
			t.response.WriteString(delta.Text)
			t.send(Event{Token: delta.Text})
		}
		for _, tc := range delta.ToolCalls {
			acc.Add(tc)
		}
	}

	metrics.RecordLLMStream(o.provider.Name(), "success", time.Since(start).Seconds())
	return text.String(), acc.Finish(), true
}

// persist queues the turn and waits until it is stored, so a follow-up
// sent right after "end" sees this turn in its history.
func (o *Orchestrator) persist(ctx context.Context, t *turnState) {
	now := o.now()
	entries := []types.HistoryEntry{
		types.NewHistoryEntry(types.RoleUser, t.req.Prompt, t.startedAt),
		types.NewHistoryEntry(types.RoleBot, t.response.String(), now),
	}

	conv := types.Conversation{
		ConversationID: t.conv.ConversationID,
		ChatbotID:      t.req.ChatbotID,
		UserID:         orDefault(t.req.UserID, GuestUserID),
		UserEmail:      orDefault(t.session.UserEmail, GuestEmail),
		UserPlan:       orDefault(t.req.UserPlan, DefaultPlan),
		Title:          t.conv.Title,
	}
	turn := core.Turn{
		Conversation: conv,
		Entries:      entries,
		IsNew:        t.isNew,
		Saved:        make(chan error, 1),
	}
	if !t.exists {
		prompt := t.req.Prompt
		turn.Conversation.Title = FallbackTitle(prompt)
		turn.Retitle = func(ctx context.Context) string {
			return GenerateTitle(ctx, o.provider, prompt)
		}
	}

	if o.deps.Sessions != nil {
		err := o.deps.Sessions.Put(context.WithoutCancel(ctx), &sessions.State{
			ConversationID: conv.ConversationID,
			ChatbotID:      conv.ChatbotID,
			UserID:         t.req.UserID,
			UserEmail:      t.session.UserEmail,
			Provider:       o.provider.Name(),
			Turns:          t.turns + 1,
		})
		if err != nil {
			utils.Zlog.Warn("Failed to update session", zap.String("conversation_id", conv.ConversationID), zap.Error(err))
		}
	}

	o.deps.Turns.Enqueue(turn)

	timer := time.NewTimer(saveWait)
	defer timer.Stop()
	select {
	case <-turn.Saved:
	case <-timer.C:
		utils.Zlog.Warn("Turn save still pending at end of stream",
			zap.String("conversation_id", conv.ConversationID))
	case <-ctx.Done():
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
