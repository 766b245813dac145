package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conversly/lead-response/internal/core"
	"github.com/Conversly/lead-response/internal/crm"
	"github.com/Conversly/lead-response/internal/lead"
	"github.com/Conversly/lead-response/internal/llm"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/sessions"
	"github.com/Conversly/lead-response/internal/tools"
	"github.com/Conversly/lead-response/internal/types"
)

type sliceStream struct {
	deltas []llm.Delta
	err    error
}

func (s *sliceStream) Recv() (llm.Delta, error) {
	if len(s.deltas) == 0 {
		if s.err != nil {
			return llm.Delta{}, s.err
		}
		return llm.Delta{}, io.EOF
	}
	d := s.deltas[0]
	s.deltas = s.deltas[1:]
	return d, nil
}

func (s *sliceStream) Close() {}

type scriptedProvider struct {
	mu       sync.Mutex
	scripts  []*sliceStream
	requests []*llm.Request
	title    string
}

func (p *scriptedProvider) Name() string { return "fake" }

func (p *scriptedProvider) StreamComplete(_ context.Context, req *llm.Request) (llm.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.scripts) == 0 {
		return nil, errors.New("no script")
	}
	s := p.scripts[0]
	p.scripts = p.scripts[1:]
	return s, nil
}

func (p *scriptedProvider) Complete(context.Context, *llm.Request) (string, error) {
	if p.title == "" {
		return "", errors.New("unavailable")
	}
	return p.title, nil
}

func text(parts ...string) *sliceStream {
	s := &sliceStream{}
	for _, p := range parts {
		s.deltas = append(s.deltas, llm.Delta{Text: p})
	}
	return s
}

type fakeStore struct {
	form      []types.FormField
	convs     map[string]*types.Conversation
	customers map[string]*types.Customer
}

func (f *fakeStore) GetChatbot(_ context.Context, id string) (*types.Chatbot, error) {
	if id != "bot-1" {
		return nil, loaders.ErrNotFound
	}
	return &types.Chatbot{ChatbotID: id, OrganizationID: "org-1", OrganizationType: "Software"}, nil
}

func (f *fakeStore) GetPreChatForm(context.Context, string) ([]types.FormField, error) {
	return f.form, nil
}

func (f *fakeStore) GetConversation(_ context.Context, id string) (*types.Conversation, error) {
	c, ok := f.convs[id]
	if !ok {
		return nil, loaders.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) GetCustomer(_ context.Context, _, email string) (*types.Customer, error) {
	c, ok := f.customers[email]
	if !ok {
		return nil, loaders.ErrNotFound
	}
	return c, nil
}

type fakeRetriever struct{ matches []types.ChunkMatch }

func (f fakeRetriever) Retrieve(context.Context, string, string, int) []types.ChunkMatch {
	return f.matches
}

type turnSink struct{ turns []core.Turn }

func (s *turnSink) Enqueue(t core.Turn) {
	s.turns = append(s.turns, t)
	if t.Saved != nil {
		t.Saved <- nil
	}
}

type fakeLeads struct{ saved []string }

func (f *fakeLeads) SaveLead(_ context.Context, _, email string, _ map[string]any) (string, error) {
	f.saved = append(f.saved, email)
	return "1", nil
}

func (f *fakeLeads) RequestCallback(context.Context, crm.Contact) error { return nil }
func (f *fakeLeads) QueueForSupport(context.Context, crm.Contact) error { return nil }

type noopConvs struct{}

func (noopConvs) SetConversationEmail(context.Context, string, string) error { return nil }

var testForm = []types.FormField{{ID: "name"}, {ID: "email"}, {ID: "phone"}}

type harness struct {
	provider *scriptedProvider
	store    *fakeStore
	turns    *turnSink
	leads    *fakeLeads
	sessions *sessions.MemoryStore
	orch     *Orchestrator
}

func newHarness(t *testing.T, scripts ...*sliceStream) *harness {
	h := &harness{
		provider: &scriptedProvider{scripts: scripts, title: "Pricing question"},
		store:    &fakeStore{form: testForm, convs: map[string]*types.Conversation{}, customers: map[string]*types.Customer{}},
		turns:    &turnSink{},
		leads:    &fakeLeads{},
		sessions: sessions.NewMemoryStore(time.Minute),
	}
	t.Cleanup(func() { _ = h.sessions.Close() })
	h.orch = NewOrchestrator(h.provider, Deps{
		Store:     h.store,
		Retriever: fakeRetriever{matches: []types.ChunkMatch{{Content: "We offer three plans."}}},
		Tools:     tools.NewRegistry(h.leads, noopConvs{}, nil),
		Sessions:  h.sessions,
		Turns:     h.turns,
		Timeout:   time.Second,
	})
	return h
}

func (h *harness) run(req Request) []Event {
	var events []Event
	h.orch.Stream(context.Background(), req, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events
}

func toolNames(req *llm.Request) []string {
	var names []string
	for _, d := range req.Tools {
		names = append(names, d.ToolInfo().Name)
	}
	return names
}

func TestStreamUnknownChatbot(t *testing.T) {
	h := newHarness(t)
	events := h.run(Request{ChatbotID: "nope", Prompt: "hi"})

	assert.Equal(t, []Event{{Error: "Invalid Chatbot ID"}}, events)
	assert.Empty(t, h.turns.turns)
}

func TestStreamNewConversation(t *testing.T) {
	h := newHarness(t, text("Hello", " there"))
	events := h.run(Request{ChatbotID: "bot-1", UserID: "u-1", Prompt: "Hi", ConversationID: NewChatID})

	require.Len(t, events, 4)
	assert.Equal(t, EventThreadCreated, events[0].Event)
	assert.NotEmpty(t, events[0].ThreadID)
	assert.Equal(t, "Hello", events[1].Token)
	assert.Equal(t, " there", events[2].Token)
	assert.Equal(t, EventEnd, events[3].Event)

	require.Len(t, h.turns.turns, 1)
	turn := h.turns.turns[0]
	assert.True(t, turn.IsNew)
	assert.Equal(t, events[0].ThreadID, turn.Conversation.ConversationID)
	assert.Equal(t, "Hi", turn.Conversation.Title)
	require.NotNil(t, turn.Retitle)
	assert.Equal(t, "Pricing question", turn.Retitle(context.Background()))
	assert.Equal(t, GuestEmail, turn.Conversation.UserEmail)
	assert.Equal(t, DefaultPlan, turn.Conversation.UserPlan)
	require.Len(t, turn.Entries, 2)
	assert.Equal(t, types.RoleUser, turn.Entries[0].Role)
	assert.Equal(t, "Hello there", turn.Entries[1].Text)

	req := h.provider.requests[0]
	assert.Contains(t, req.SystemPrompt, "software technology company")
	assert.Contains(t, req.SystemPrompt, "We offer three plans.")
	assert.NotContains(t, toolNames(req), lead.SubmitFormTool)
	assert.Contains(t, toolNames(req), lead.HandoffTool)
}

func TestStreamHeavyIntentAsksForNameFirst(t *testing.T) {
	h := newHarness(t, text("Happy to help! May I have your name?"))
	h.run(Request{ChatbotID: "bot-1", Prompt: "What are your prices?"})

	req := h.provider.requests[0]
	assert.Contains(t, req.SystemPrompt, "beginning with their Name")
	assert.Contains(t, toolNames(req), lead.SubmitFormTool)
}

func TestStreamToolCallAndFollowUp(t *testing.T) {
	idx := 0
	call := &sliceStream{deltas: []llm.Delta{{ToolCalls: []llm.ToolCallDelta{{
		Index: &idx, ID: "call_1", Name: lead.SubmitFormTool,
		Arguments: `{"name":"Jane","email":"jane@acme.org","phone":"555"}`,
	}}}}}
	h := newHarness(t, call, text("Thanks!"))

	history := []types.HistoryEntry{}
	for i := 0; i < lead.TurnThreshold; i++ {
		history = append(history,
			types.HistoryEntry{Role: types.RoleUser, Text: "q"},
			types.HistoryEntry{Role: types.RoleBot, Text: "a"})
	}
	h.store.convs["c-1"] = &types.Conversation{ConversationID: "c-1", Title: "Old", History: history}

	events := h.run(Request{ChatbotID: "bot-1", Prompt: "555", ConversationID: "c-1"})

	assert.Equal(t, []Event{{Token: "Thanks!"}, {Event: EventEnd}}, events)
	assert.Equal(t, []string{"jane@acme.org"}, h.leads.saved)

	require.Len(t, h.provider.requests, 2)
	assert.Contains(t, toolNames(h.provider.requests[0]), lead.SubmitFormTool)
	follow := h.provider.requests[1]
	assert.Empty(t, follow.Tools)
	last := follow.Messages[len(follow.Messages)-1]
	assert.Equal(t, schema.Tool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "Data processed")

	require.Len(t, h.turns.turns, 1)
	turn := h.turns.turns[0]
	assert.False(t, turn.IsNew)
	assert.Equal(t, "Old", turn.Conversation.Title)
	assert.Nil(t, turn.Retitle)
	assert.Equal(t, "jane@acme.org", turn.Conversation.UserEmail)

	st, err := h.sessions.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "jane@acme.org", st.UserEmail)
	assert.Equal(t, lead.TurnThreshold+1, st.Turns)
}

func TestStreamReturningUser(t *testing.T) {
	h := newHarness(t, text("Welcome back, Jane."))
	h.store.customers["jane@acme.org"] = &types.Customer{CustomData: map[string]any{"name": "Jane", "phone": "555"}}

	h.run(Request{ChatbotID: "bot-1", Prompt: "pricing?", UserEmail: "jane@acme.org"})

	req := h.provider.requests[0]
	assert.Contains(t, req.SystemPrompt, "RETURNING USER")
	assert.Equal(t, []string{lead.HandoffTool}, toolNames(req))
}

func TestStreamLLMFailureIsNotPersisted(t *testing.T) {
	h := newHarness(t, &sliceStream{deltas: []llm.Delta{{Text: "partial"}}, err: errors.New("rate limited")})
	events := h.run(Request{ChatbotID: "bot-1", Prompt: "hi", ConversationID: "c-9"})

	require.Len(t, events, 2)
	assert.Equal(t, "partial", events[0].Token)
	assert.Equal(t, "rate limited", events[1].Error)
	assert.Empty(t, h.turns.turns)
}

func TestStreamKeepsRunningAfterDisconnect(t *testing.T) {
	h := newHarness(t, text("a", "b", "c"))
	var got []Event
	h.orch.Stream(context.Background(), Request{ChatbotID: "bot-1", Prompt: "hi"}, func(ev Event) error {
		got = append(got, ev)
		if len(got) == 2 {
			return errors.New("broken pipe")
		}
		return nil
	})

	assert.Len(t, got, 2)
	require.Len(t, h.turns.turns, 1)
	assert.Equal(t, "abc", h.turns.turns[0].Entries[1].Text)
}

func TestStreamStoresTurnBeforeEnd(t *testing.T) {
	h := newHarness(t, text("Hello"))
	queuedAtEnd := -1
	h.orch.Stream(context.Background(), Request{ChatbotID: "bot-1", Prompt: "Hi"}, func(ev Event) error {
		if ev.Event == EventEnd {
			queuedAtEnd = len(h.turns.turns)
		}
		return nil
	})

	assert.Equal(t, 1, queuedAtEnd)
}

func TestStreamUsesSessionTurnsWhileHistoryIsPending(t *testing.T) {
	h := newHarness(t, text("May I have your name?"))
	require.NoError(t, h.sessions.Put(context.Background(), &sessions.State{
		ConversationID: "c-2",
		ChatbotID:      "bot-1",
		Turns:          lead.TurnThreshold,
	}))

	h.run(Request{ChatbotID: "bot-1", Prompt: "tell me more", ConversationID: "c-2"})

	req := h.provider.requests[0]
	assert.Contains(t, toolNames(req), lead.SubmitFormTool)

	st, err := h.sessions.Get(context.Background(), "c-2")
	require.NoError(t, err)
	assert.Equal(t, lead.TurnThreshold+1, st.Turns)
}

func TestHistoryMessages(t *testing.T) {
	history := make([]types.HistoryEntry, 0, 120)
	for i := 0; i < 60; i++ {
		history = append(history,
			types.HistoryEntry{Role: types.RoleUser, Text: "u"},
			types.HistoryEntry{Role: types.RoleBot, Text: "b"})
	}
	history = append(history, types.HistoryEntry{Role: types.RoleUser, Text: " "})

	msgs := HistoryMessages(history)
	assert.Len(t, msgs, HistoryLimit-1)
	assert.Equal(t, schema.Assistant, msgs[0].Role)
	assert.Equal(t, schema.Assistant, msgs[len(msgs)-1].Role)
}

func TestFallbackTitle(t *testing.T) {
	assert.Equal(t, "New Chat", FallbackTitle("  "))
	assert.Equal(t, "short", FallbackTitle("short"))
	long := strings.Repeat("x", 60)
	assert.Equal(t, strings.Repeat("x", 50)+"...", FallbackTitle(long))
}

func TestGenerateTitle(t *testing.T) {
	p := &scriptedProvider{title: `Title: "Pricing Plans"`}
	assert.Equal(t, "Pricing Plans", GenerateTitle(context.Background(), p, "what are the prices"))

	p.title = ""
	assert.Equal(t, "hello", GenerateTitle(context.Background(), p, "hello"))
}
