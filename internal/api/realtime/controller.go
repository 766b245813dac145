package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/api"
	"github.com/Conversly/lead-response/internal/chat"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/utils"
	"github.com/Conversly/lead-response/internal/voice"
)

type Sessions interface {
	OpenAISession(ctx context.Context, req voice.StartRequest) (map[string]any, error)
	GeminiSession(ctx context.Context, req voice.StartRequest) (*voice.LiveSession, error)
	SaveTranscript(ctx context.Context, req voice.SaveRequest) (int, error)
	SubmitLead(ctx context.Context, req voice.LeadRequest) json.RawMessage
	Search(ctx context.Context, req voice.SearchRequest) json.RawMessage
	Handoff(ctx context.Context, req voice.HandoffRequest) json.RawMessage
}

type Controller struct {
	svc Sessions
}

func NewController(svc Sessions) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) OpenAISession(ctx *gin.Context) {
	var req voice.StartRequest
	if !bind(ctx, &req) {
		return
	}
	out, err := c.svc.OpenAISession(ctx.Request.Context(), req)
	if err != nil {
		sessionError(ctx, req.ChatbotID, err)
		return
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *Controller) GeminiSession(ctx *gin.Context) {
	var req voice.StartRequest
	if !bind(ctx, &req) {
		return
	}
	out, err := c.svc.GeminiSession(ctx.Request.Context(), req)
	if err != nil {
		sessionError(ctx, req.ChatbotID, err)
		return
	}
	ctx.JSON(http.StatusOK, out)
}

func (c *Controller) SaveConversation(ctx *gin.Context) {
	var req voice.SaveRequest
	if !bind(ctx, &req) {
		return
	}
	n, err := c.svc.SaveTranscript(ctx.Request.Context(), req)
	if err != nil {
		utils.Zlog.Error("Failed to save realtime conversation",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err))
		api.Error(ctx, http.StatusInternalServerError, api.CodeInternal, err.Error())
		return
	}
	if n == 0 {
		ctx.JSON(http.StatusOK, gin.H{"message": "No data to save"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Conversation saved successfully", "event": chat.EventComplete, "saved": n})
}

func (c *Controller) SubmitLead(ctx *gin.Context) {
	var req voice.LeadRequest
	if !bind(ctx, &req) {
		return
	}
	ctx.JSON(http.StatusOK, c.svc.SubmitLead(ctx.Request.Context(), req))
}

func (c *Controller) SearchKnowledge(ctx *gin.Context) {
	var req voice.SearchRequest
	if !bind(ctx, &req) {
		return
	}
	ctx.JSON(http.StatusOK, c.svc.Search(ctx.Request.Context(), req))
}

func (c *Controller) HandoffSupport(ctx *gin.Context) {
	var req voice.HandoffRequest
	if !bind(ctx, &req) {
		return
	}
	ctx.JSON(http.StatusOK, c.svc.Handoff(ctx.Request.Context(), req))
}

func bind(ctx *gin.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		utils.Zlog.Warn("invalid realtime payload", zap.String("path", ctx.FullPath()), zap.Error(err))
		api.Error(ctx, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return false
	}
	return true
}

func sessionError(ctx *gin.Context, chatbotID string, err error) {
	var upstream *voice.UpstreamError
	switch {
	case errors.Is(err, loaders.ErrNotFound):
		api.Error(ctx, http.StatusNotFound, api.CodeNotFound, "Invalid Chatbot ID")
	case errors.Is(err, voice.ErrRealtimeDisabled):
		api.Error(ctx, http.StatusServiceUnavailable, api.CodeUnavailable, err.Error())
	case errors.As(err, &upstream):
		utils.Zlog.Error("Realtime provider rejected session",
			zap.String("chatbot_id", chatbotID),
			zap.Int("status", upstream.Status))
		api.Error(ctx, http.StatusBadGateway, api.CodeUnavailable, upstream.Body)
	default:
		utils.Zlog.Error("Failed to create realtime session", zap.String("chatbot_id", chatbotID), zap.Error(err))
		api.Error(ctx, http.StatusInternalServerError, api.CodeInternal, err.Error())
	}
}
