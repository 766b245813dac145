package chat

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Conversly/lead-response/internal/types"
)

// HistoryLimit is the number of stored entries replayed to the model.
const HistoryLimit = 100

// SystemPrompt joins the persona, the retrieved knowledge and the lead
// capture blocks into one system instruction.
func SystemPrompt(persona, knowledge, leadBlocks string) string {
	var b strings.Builder
	b.WriteString("Persona/Industry Context: ")
	b.WriteString(persona)
	b.WriteString("\n\nSource Knowledge (Vector DB Context):\n")
	b.WriteString(knowledge)
	b.WriteString("\n\n")
	b.WriteString("Instruction: Answer the user's question using the Source Knowledge provided above.\n")
	b.WriteString("IMPORTANT EXCEPTION: If the user asks about PRICING, COST, BUYING, or SUPPORT, do NOT answer from the context. Instead, start Lead Capture immediately.\n")
	b.WriteString("STYLE: Be helpful but concise. Keep answers to 2-4 sentences.\n")
	b.WriteString("Default Rule: If info is not found, state it politely. But if it's a Pricing/Support question, IGNORE missing info and ask for their Name.")
	b.WriteString(leadBlocks)
	return b.String()
}

// HistoryMessages maps the last HistoryLimit stored entries to chat
// messages. Bot entries become assistant messages, everything else user.
func HistoryMessages(history []types.HistoryEntry) []*schema.Message {
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}
	msgs := make([]*schema.Message, 0, len(history))
	for _, h := range history {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}
		if h.Role == types.RoleBot {
			msgs = append(msgs, schema.AssistantMessage(h.Text, nil))
		} else {
			msgs = append(msgs, schema.UserMessage(h.Text))
		}
	}
	return msgs
}
