package chatstream

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/api"
	"github.com/Conversly/lead-response/internal/chat"
	"github.com/Conversly/lead-response/internal/metrics"
	"github.com/Conversly/lead-response/internal/utils"
)

// Streamer runs one chat turn and emits its events.
type Streamer interface {
	Stream(ctx context.Context, req chat.Request, emit chat.EmitFunc)
	Provider() string
}

type Controller struct {
	orch Streamer
}

func NewController(orch Streamer) *Controller {
	return &Controller{orch: orch}
}

// Chat streams a turn as server-sent events with one JSON object per event.
func (c *Controller) Chat(ctx *gin.Context) {
	var req chat.Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Zlog.Warn("invalid chat payload", zap.Error(err))
		api.Error(ctx, http.StatusBadRequest, api.CodeBadRequest, err.Error())
		return
	}

	w := ctx.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	if rid := api.RequestID(ctx); rid != "" {
		header.Set("X-Request-ID", rid)
	}
	w.WriteHeader(http.StatusOK)
	w.Flush()

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	utils.Zlog.Info("Chat stream opened",
		zap.String("chatbot_id", req.ChatbotID),
		zap.String("conversation_id", req.ConversationID),
		zap.String("provider", c.orch.Provider()))

	c.orch.Stream(ctx.Request.Context(), req, func(ev chat.Event) error {
		if err := sse.Encode(w, sse.Event{Data: ev}); err != nil {
			return err
		}
		w.Flush()
		return nil
	})
}
