package lead

import "github.com/Conversly/lead-response/internal/utils"

// Triggers are phrases, not bare topic words: "support", "plan" or "agent"
// appear in ordinary product questions.
var heavyIntent = utils.NewKeywordMatcher(
	// pricing
	"price", "prices", "pricing", "how much", "quote", "cost", "costs",
	"paid plan", "paid plans", "pricing plan", "pricing plans", "plans cost",
	// buying
	"how to buy", "how do i buy", "how can i buy", "want to buy", "purchase", "subscribe to",
	// support
	"need support", "contact support", "customer support", "support team", "need help",
	"talk to an agent", "speak to an agent", "live agent", "human agent",
	"talk to a human", "speak to a human", "talk to someone", "speak to someone",
	"talk to a person", "real person", "representative", "call me",
	// competitors
	"freshworks", "intercom", "zendesk", "hubspot",
	"compare ... vs", "compare ... with", "compared to", "compared with",
	"how do you compare", "alternative to",
)

// HeavyIntent returns the high-interest triggers found in a prompt.
func HeavyIntent(prompt string) []string {
	return heavyIntent.Matches(prompt)
}
