package tools

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/crm"
	"github.com/Conversly/lead-response/internal/lead"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/utils"
)

const (
	UrgencyImmediate = "immediate"
	UrgencyLater     = "later"
)

var HandoffSpec = Spec{
	Name: lead.HandoffTool,
	Desc: "Moves the customer to the priority support pipeline OR requests an immediate call.",
	Params: []Param{
		{Name: "email", Type: schema.String, Desc: "Customer email", Required: true},
		{Name: "name", Type: schema.String, Desc: "Customer name"},
		{Name: "phone", Type: schema.String, Desc: "Customer phone"},
		{Name: "urgency", Type: schema.String, Desc: "Set to 'immediate' if user explicitly asks for a call NOW.",
			Enum: []string{UrgencyImmediate, UrgencyLater}},
	},
}

type HandoffTool struct {
	Spec
	session *Session
	leads   LeadService
}

func NewHandoffTool(session *Session, leads LeadService) *HandoffTool {
	return &HandoffTool{Spec: HandoffSpec, session: session, leads: leads}
}

func (t *HandoffTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.ToolInfo(), nil
}

func (t *HandoffTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	spec := t.Spec
	spec.Params = withOptional(spec.Params, "email")
	args, err := spec.Validate(argumentsInJSON)
	if err != nil {
		return invalidArgs(err).JSON(), nil
	}

	contact := crm.Contact{
		ChatbotID: t.session.ChatbotID,
		UserID:    t.session.UserID,
		Email:     args.String("email"),
		Name:      args.String("name"),
		Phone:     args.String("phone"),
	}
	if contact.Email == "" {
		contact.Email = t.session.UserEmail
	}
	if err := lead.ValidateEmail(contact.Email); err != nil {
		utils.Zlog.Warn("Blocked placeholder email in handoff",
			zap.String("chatbot_id", t.session.ChatbotID),
			zap.String("email", contact.Email))
		return failure(err.Error()).JSON(), nil
	}

	if contact.Name != "" || contact.Phone != "" {
		data := map[string]any{"source": "chatbot", "chatbot_id": contact.ChatbotID}
		if contact.Name != "" {
			data["name"] = contact.Name
		}
		if contact.Phone != "" {
			data["phone"] = contact.Phone
		}
		if _, err := t.leads.SaveLead(ctx, contact.ChatbotID, contact.Email, data); err != nil {
			utils.Zlog.Warn("Failed to save customer before handoff",
				zap.String("chatbot_id", contact.ChatbotID),
				zap.Error(err))
		}
	}

	if args.String("urgency") == UrgencyImmediate {
		if err := t.leads.RequestCallback(ctx, contact); err != nil {
			utils.Zlog.Error("Handoff callback failed",
				zap.String("chatbot_id", contact.ChatbotID),
				zap.Error(err))
			return failure("Server error during handoff.").JSON(), nil
		}
		return success("Immediate callback requested. Team notified!").JSON(), nil
	}

	err = t.leads.QueueForSupport(ctx, contact)
	switch {
	case err == nil:
		return success("Handoff complete. Customer moved to priority queue.").JSON(), nil
	case errors.Is(err, crm.ErrCustomerNotFound), errors.Is(err, crm.ErrNoStages),
		errors.Is(err, loaders.ErrPipelineNotFound), errors.Is(err, loaders.ErrNotFound):
		utils.Zlog.Warn("Handoff failed",
			zap.String("chatbot_id", contact.ChatbotID),
			zap.Error(err))
		return failure("Handoff failed (pipeline not found or user missing).").JSON(), nil
	default:
		utils.Zlog.Error("Handoff error",
			zap.String("chatbot_id", contact.ChatbotID),
			zap.Error(err))
		return failure("Server error during handoff.").JSON(), nil
	}
}

var _ tool.InvokableTool = (*HandoffTool)(nil)
