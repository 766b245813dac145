package knowledge

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/api"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/training"
	"github.com/Conversly/lead-response/internal/utils"
)

type Controller struct {
	svc *Service
}

func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) Ingest(ctx *gin.Context) {
	var req IngestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Zlog.Warn("invalid /api/ingest payload", zap.Error(err))
		api.Error(ctx, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}

	res, err := c.svc.StartJob(ctx.Request.Context(), &req)
	switch {
	case errors.Is(err, training.ErrAlreadyTraining):
		ctx.JSON(http.StatusOK, res)
	case errors.Is(err, loaders.ErrNotFound):
		api.Error(ctx, http.StatusNotFound, api.CodeNotFound, "chatbot not found")
	case err != nil:
		utils.Zlog.Error("failed to start training", zap.String("chatbot_id", req.ChatbotID), zap.Error(err))
		api.Error(ctx, http.StatusInternalServerError, api.CodeInternal, err.Error())
	default:
		ctx.JSON(http.StatusAccepted, res)
	}
}

func (c *Controller) TrainingStatus(ctx *gin.Context) {
	chatbotID := ctx.Param("chatbot_id")
	state, err := c.svc.Status(ctx.Request.Context(), chatbotID)
	if errors.Is(err, loaders.ErrNotFound) {
		api.Error(ctx, http.StatusNotFound, api.CodeNotFound, "chatbot not found")
		return
	}
	if err != nil {
		utils.Zlog.Error("failed to read training status", zap.String("chatbot_id", chatbotID), zap.Error(err))
		api.Error(ctx, http.StatusInternalServerError, api.CodeInternal, err.Error())
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// SetUserAssistant ingests synchronously and answers when the run is done.
func (c *Controller) SetUserAssistant(ctx *gin.Context) {
	var req IngestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.Error(ctx, http.StatusBadRequest, api.CodeBadRequest, "chatbot_id is required")
		return
	}

	res, err := c.svc.IngestNow(ctx.Request.Context(), req.ChatbotID)
	if errors.Is(err, loaders.ErrNotFound) {
		api.Error(ctx, http.StatusNotFound, api.CodeNotFound, "chatbot not found")
		return
	}
	if err != nil {
		utils.Zlog.Error("synchronous ingestion failed", zap.String("chatbot_id", req.ChatbotID), zap.Error(err))
		api.Error(ctx, http.StatusInternalServerError, api.CodeInternal, err.Error())
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (c *Controller) DeleteSource(ctx *gin.Context) {
	var req DeleteSourceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.Error(ctx, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}

	res, err := c.svc.DeleteSource(ctx.Request.Context(), &req)
	if err != nil {
		utils.Zlog.Error("failed to delete source",
			zap.String("chatbot_id", req.ChatbotID),
			zap.String("source", req.Source),
			zap.Error(err))
		api.Error(ctx, http.StatusInternalServerError, api.CodeInternal, err.Error())
		return
	}
	ctx.JSON(http.StatusOK, res)
}
