package tools

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/lead"
	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

// FormSpec builds the submit_pre_chat_form declaration. Name, email and
// phone are always required; configured extra fields follow.
func FormSpec(form []types.FormField) Spec {
	spec := Spec{
		Name: lead.SubmitFormTool,
		Desc: "Submit user form data. Call this ONLY after collecting Name, Email, Phone, and other required fields.",
		Params: []Param{
			{Name: "name", Type: schema.String, Desc: "Customer Name", Required: true},
			{Name: "email", Type: schema.String, Desc: "Customer Email", Required: true},
			{Name: "phone", Type: schema.String, Desc: "Customer Phone Number", Required: true},
		},
	}
	for _, f := range form {
		switch f.ID {
		case "", "name", "email", "phone":
			continue
		}
		typ := schema.String
		if f.Type == "number" {
			typ = schema.Number
		}
		desc := f.Label
		if desc == "" {
			desc = f.ID
		}
		spec.Params = append(spec.Params, Param{Name: f.ID, Type: typ, Desc: desc, Required: f.Required})
	}
	return spec
}

type FormTool struct {
	Spec
	session *Session
	leads   LeadService
	convs   ConversationStore
}

func NewFormTool(session *Session, form []types.FormField, leads LeadService, convs ConversationStore) *FormTool {
	return &FormTool{Spec: FormSpec(form), session: session, leads: leads, convs: convs}
}

func (t *FormTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.ToolInfo(), nil
}

func (t *FormTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	// email is validated below with its own messages
	spec := t.Spec
	spec.Params = withOptional(spec.Params, "email")
	args, err := spec.Validate(argumentsInJSON)
	if err != nil {
		return invalidArgs(err).JSON(), nil
	}

	email := args.String("email")
	if email == "" {
		email = t.session.UserEmail
	}
	if err := lead.ValidateEmail(email); err != nil {
		utils.Zlog.Warn("Blocked placeholder email in form submission",
			zap.String("chatbot_id", t.session.ChatbotID),
			zap.String("email", email))
		return failure(err.Error()).JSON(), nil
	}

	data := map[string]any{"source": "chatbot", "chatbot_id": t.session.ChatbotID}
	for k, v := range args {
		if k != "email" {
			data[k] = v
		}
	}

	if _, err := t.leads.SaveLead(ctx, t.session.ChatbotID, email, data); err != nil {
		if errors.Is(err, loaders.ErrNotFound) {
			utils.Zlog.Warn("Organization not found for chatbot",
				zap.String("chatbot_id", t.session.ChatbotID))
			return success("Ack.").JSON(), nil
		}
		utils.Zlog.Error("Failed to save customer",
			zap.String("chatbot_id", t.session.ChatbotID),
			zap.Error(err))
		return failure("Failed to save data.").JSON(), nil
	}

	t.session.UserEmail = email
	if t.session.ConversationID != "" {
		if err := t.convs.SetConversationEmail(ctx, t.session.ConversationID, email); err != nil {
			utils.Zlog.Warn("Failed to stamp conversation email",
				zap.String("conversation_id", t.session.ConversationID),
				zap.Error(err))
		}
	}
	return success("Data processed. Continue conversation.").JSON(), nil
}

func withOptional(params []Param, name string) []Param {
	out := make([]Param, len(params))
	copy(out, params)
	for i := range out {
		if out[i].Name == name {
			out[i].Required = false
		}
	}
	return out
}

func invalidArgs(err error) Result {
	return failure("Invalid arguments: " + err.Error() + ". Ask the user for the missing details and call the tool again.")
}

var _ tool.InvokableTool = (*FormTool)(nil)
