package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/chat"
	"github.com/Conversly/lead-response/internal/lead"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/persona"
	"github.com/Conversly/lead-response/internal/rag"
	"github.com/Conversly/lead-response/internal/sessions"
	"github.com/Conversly/lead-response/internal/tools"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

const (
	LiveWebsocketURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	realtimeTitle = "Realtime Session"
	liveTitle     = "GCS Realtime Session"
	savedTitle    = "Realtime Session (Saved)"

	providerRealtime = "openai-realtime"
	providerLive     = "gemini-live"
)

// LiveVoices are the prebuilt Gemini Live voices.
var LiveVoices = []string{"Puck", "Charon", "Kore", "Fenrir", "Aoede"}

var ErrRealtimeDisabled = errors.New("realtime provider is not configured")

type Store interface {
	GetChatbot(ctx context.Context, chatbotID string) (*types.Chatbot, error)
	GetPreChatForm(ctx context.Context, chatbotID string) ([]types.FormField, error)
	GetConversation(ctx context.Context, conversationID string) (*types.Conversation, error)
	CreateConversation(ctx context.Context, conv *types.Conversation) error
	AppendHistory(ctx context.Context, conversationID string, entries []types.HistoryEntry) error
	GetCustomer(ctx context.Context, organizationID, email string) (*types.Customer, error)
	ListChunkContents(ctx context.Context, chatbotID string, limit int) ([]string, error)
}

// Realtime creates OpenAI realtime sessions.
type Realtime interface {
	CreateSession(ctx context.Context, req RealtimeRequest) (map[string]any, error)
}

type Options struct {
	RealtimeModel string
	RealtimeVoice string
	LiveModel     string
	LiveVoice     string
	// LiveAPIKey is handed to the browser when set.
	LiveAPIKey string
}

type Service struct {
	store    Store
	registry *tools.Registry
	sessions sessions.Store
	realtime Realtime
	opts     Options
	now      func() time.Time
}

func NewService(store Store, registry *tools.Registry, sess sessions.Store, realtime Realtime, opts Options) *Service {
	return &Service{
		store:    store,
		registry: registry,
		sessions: sess,
		realtime: realtime,
		opts:     opts,
		now:      time.Now,
	}
}

// OpenAISession creates or resumes a conversation and mints an OpenAI
// realtime session whose instructions carry the knowledge base and the
// recent history.
func (s *Service) OpenAISession(ctx context.Context, req StartRequest) (map[string]any, error) {
	if s.realtime == nil {
		return nil, ErrRealtimeDisabled
	}
	conv, err := s.openConversation(ctx, &req, realtimeTitle)
	if err != nil {
		return nil, err
	}

	instructions := knowledgeInstructions(s.knowledge(ctx, req.ChatbotID)) + historyInstructions(conv.History)
	payload, err := s.realtime.CreateSession(ctx, RealtimeRequest{
		Model:        s.opts.RealtimeModel,
		Voice:        s.opts.RealtimeVoice,
		Instructions: instructions,
	})
	if err != nil {
		return nil, err
	}
	payload["conversation_id"] = conv.ConversationID

	s.remember(ctx, conv, providerRealtime)
	utils.Zlog.Info("Realtime session created",
		zap.String("chatbot_id", req.ChatbotID),
		zap.String("conversation_id", conv.ConversationID))
	return payload, nil
}

// GeminiSession builds the Gemini Live setup for a conversation: persona,
// knowledge, lead capture instructions and tool declarations.
func (s *Service) GeminiSession(ctx context.Context, req StartRequest) (*LiveSession, error) {
	bot, err := s.store.GetChatbot(ctx, req.ChatbotID)
	if err != nil {
		return nil, err
	}
	conv, err := s.openConversation(ctx, &req, liveTitle)
	if err != nil {
		return nil, err
	}

	form, err := s.store.GetPreChatForm(ctx, req.ChatbotID)
	if err != nil {
		utils.Zlog.Warn("Failed to load pre-chat form", zap.String("chatbot_id", req.ChatbotID), zap.Error(err))
	}

	identity := lead.Identity{Email: conv.UserEmail}
	if identity.Known() {
		cust, err := s.store.GetCustomer(ctx, bot.OrganizationID, identity.Email)
		switch {
		case err == nil:
			identity = lead.IdentityFromCustomer(identity.Email, cust)
		case !errors.Is(err, loaders.ErrNotFound):
			utils.Zlog.Warn("Failed to load customer", zap.String("chatbot_id", req.ChatbotID), zap.Error(err))
		}
	}
	decision := lead.DecideSession(identity, form)

	session := &tools.Session{
		ChatbotID:      req.ChatbotID,
		UserID:         conv.UserID,
		UserEmail:      conv.UserEmail,
		ConversationID: conv.ConversationID,
	}
	toolset := s.registry.Build(session, tools.Options{
		Form:    form,
		Submit:  decision.AttachSubmit,
		Handoff: decision.AttachHandoff,
		Search:  true,
		TopK:    rag.VoiceTopK,
	})

	instructions := liveInstructions(
		persona.For(bot.OrganizationType),
		knowledgeInstructions(s.knowledge(ctx, req.ChatbotID)),
		conv.History,
		decision.Instructions,
	)

	out := &LiveSession{
		WebsocketURL:   LiveWebsocketURL,
		APIKey:         s.opts.LiveAPIKey,
		ConversationID: conv.ConversationID,
		Model:          s.opts.LiveModel,
		Modalities:     []string{"text", "audio"},
		TurnDetection: TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMS:   200,
			SilenceDurationMS: 400,
		},
	}
	out.Config.Model = s.opts.LiveModel
	out.Config.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	out.Config.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = s.liveVoice(req.Voice)
	out.Config.SystemInstruction.Parts = []TextPart{{Text: instructions}}
	out.Config.Tools = []LiveTools{{FunctionDeclarations: toolset.Declarations()}}

	s.remember(ctx, conv, providerLive)
	utils.Zlog.Info("Gemini live session prepared",
		zap.String("chatbot_id", req.ChatbotID),
		zap.String("conversation_id", conv.ConversationID),
		zap.Strings("tools", toolset.Names()))
	return out, nil
}

// SaveTranscript appends client transcript lines to a conversation and
// creates the row when it does not exist. It returns the number of saved
// entries.
func (s *Service) SaveTranscript(ctx context.Context, req SaveRequest) (int, error) {
	if req.ConversationID == "" || len(req.Messages) == 0 {
		return 0, nil
	}
	now := s.now()
	entries := make([]types.HistoryEntry, 0, len(req.Messages))
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		entries = append(entries, types.NewHistoryEntry(transcriptRole(m.Role), m.Text, now))
	}
	if len(entries) == 0 {
		return 0, nil
	}

	err := s.store.AppendHistory(ctx, req.ConversationID, entries)
	if errors.Is(err, loaders.ErrNotFound) {
		err = s.store.CreateConversation(ctx, &types.Conversation{
			ConversationID: req.ConversationID,
			ChatbotID:      req.ChatbotID,
			UserID:         orDefault(req.UserID, chat.GuestUserID),
			UserEmail:      orDefault(req.UserEmail, chat.GuestEmail),
			UserPlan:       orDefault(req.UserPlan, chat.DefaultPlan),
			Title:          savedTitle,
			History:        entries,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save transcript: %w", err)
	}
	return len(entries), nil
}

// SubmitLead runs the form tool for a voice client.
func (s *Service) SubmitLead(ctx context.Context, req LeadRequest) json.RawMessage {
	session := &tools.Session{ChatbotID: req.ChatbotID, UserEmail: req.Email, ConversationID: req.ConversationID}
	ts := s.registry.Build(session, tools.Options{Submit: true})
	args := arguments("name", req.Name, "email", req.Email, "phone", req.Phone)
	return json.RawMessage(ts.Invoke(ctx, lead.SubmitFormTool, args))
}

// Search runs the knowledge search tool for a voice client.
func (s *Service) Search(ctx context.Context, req SearchRequest) json.RawMessage {
	ts := s.registry.Build(&tools.Session{ChatbotID: req.ChatbotID}, tools.Options{Search: true, TopK: rag.VoiceTopK})
	return json.RawMessage(ts.Invoke(ctx, tools.SearchToolName, arguments("query", req.Query)))
}

// Handoff runs the support handoff tool for a voice client.
func (s *Service) Handoff(ctx context.Context, req HandoffRequest) json.RawMessage {
	session := &tools.Session{ChatbotID: req.ChatbotID, UserID: req.UserID, UserEmail: req.Email}
	ts := s.registry.Build(session, tools.Options{Handoff: true})
	args := arguments("email", req.Email, "name", req.Name, "phone", req.Phone, "urgency", req.Urgency)
	return json.RawMessage(ts.Invoke(ctx, lead.HandoffTool, args))
}

func (s *Service) openConversation(ctx context.Context, req *StartRequest, title string) (*types.Conversation, error) {
	req.UserID = orDefault(req.UserID, chat.GuestUserID)
	req.UserPlan = orDefault(req.UserPlan, chat.DefaultPlan)
	if req.UserEmail == "" && strings.Contains(req.UserID, "@") {
		req.UserEmail = req.UserID
	}

	id := req.ConversationID
	if id != "" && id != chat.NewChatID {
		conv, err := s.store.GetConversation(ctx, id)
		if err == nil {
			if !lead.IsAnonymous(req.UserEmail) {
				conv.UserEmail = req.UserEmail
			}
			return conv, nil
		}
		if !errors.Is(err, loaders.ErrNotFound) {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
	} else {
		id = uuid.NewString()
	}

	now := s.now()
	conv := &types.Conversation{
		ConversationID: id,
		ChatbotID:      req.ChatbotID,
		UserID:         req.UserID,
		UserEmail:      orDefault(req.UserEmail, chat.GuestEmail),
		UserPlan:       req.UserPlan,
		Title:          title,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func (s *Service) knowledge(ctx context.Context, chatbotID string) []string {
	contents, err := s.store.ListChunkContents(ctx, chatbotID, knowledgeChunkLimit)
	if err != nil {
		utils.Zlog.Warn("Failed to load knowledge base", zap.String("chatbot_id", chatbotID), zap.Error(err))
		return nil
	}
	return contents
}

func (s *Service) remember(ctx context.Context, conv *types.Conversation, provider string) {
	if s.sessions == nil {
		return
	}
	err := s.sessions.Put(ctx, &sessions.State{
		ConversationID: conv.ConversationID,
		ChatbotID:      conv.ChatbotID,
		UserID:         conv.UserID,
		UserEmail:      conv.UserEmail,
		Provider:       provider,
		Turns:          lead.TurnCount(conv.History),
		UpdatedAt:      s.now(),
	})
	if err != nil {
		utils.Zlog.Warn("Failed to store session", zap.String("conversation_id", conv.ConversationID), zap.Error(err))
	}
}

func (s *Service) liveVoice(requested string) string {
	for _, v := range LiveVoices {
		if strings.EqualFold(v, requested) {
			return v
		}
	}
	return s.opts.LiveVoice
}

func transcriptRole(role string) string {
	switch strings.ToLower(role) {
	case "assistant", "bot", "model":
		return types.RoleBot
	}
	return types.RoleUser
}

// arguments encodes key/value pairs as a tool argument object, skipping
// empty values.
func arguments(kv ...string) string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			m[kv[i]] = kv[i+1]
		}
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
