package voice

import (
	"strings"

	"github.com/Conversly/lead-response/internal/types"
)

const (
	knowledgeChunkLimit = 500
	knowledgeCharLimit  = 20000
	historyTurns        = 20
)

const plainAssistant = "You are a helpful assistant."

// knowledgeInstructions renders stored chunks as the knowledge base of a
// realtime session.
func knowledgeInstructions(contents []string) string {
	text := strings.TrimSpace(strings.Join(contents, "\n\n"))
	if text == "" {
		return plainAssistant
	}
	if r := []rune(text); len(r) > knowledgeCharLimit {
		text = string(r[:knowledgeCharLimit])
	}
	return plainAssistant + " Use the following knowledge base to answer questions:\n" + text
}

// historyInstructions renders the last turns as "Role: text" lines.
func historyInstructions(history []types.HistoryEntry) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	var b strings.Builder
	b.WriteString("\n\nPrevious Conversation History:\n")
	for _, h := range history {
		b.WriteString(roleTitle(h.Role))
		b.WriteString(": ")
		b.WriteString(h.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func roleTitle(role string) string {
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + strings.ToLower(role[1:])
}

const liveAssistant = "You are the AI Assistant for this organization. " +
	"Speak as the organization (use 'we', 'us', 'our'). " +
	"Do NOT mention 'Google' or being an AI model from another company. " +
	"If asked about your identity, say you are the AI Assistant for the organization. " +
	"Use the 'search_knowledge_base' tool to find specific answers. " +
	"IMPORTANT: When searching, generate DETAILED, SENTENCE-LENGTH queries that capture the full context. Avoid single-word queries. " +
	"Always verify your answer with the retrieved context.\n\n" +
	"STYLE GUIDELINES (CRITICAL):\n" +
	"1. Speak NATURALLY. Use short, punchy sentences.\n" +
	"2. Do NOT narrate your internal thought process.\n" +
	"3. Do NOT mention the form collection process.\n" +
	"4. Be EXTREMELY CONCISE. Answer in 1-2 short sentences max.\n" +
	"5. LEAD RULE: On Pricing/Support queries, CHECK if you have Name & Phone. If missing, ASK FIRST. If present, you may answer."

func liveInstructions(persona, knowledge string, history []types.HistoryEntry, lead string) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString(liveAssistant)
	if knowledge != "" && knowledge != plainAssistant {
		b.WriteString("\n\n")
		b.WriteString(knowledge)
	}
	b.WriteString(historyInstructions(history))
	b.WriteString(lead)
	return b.String()
}
