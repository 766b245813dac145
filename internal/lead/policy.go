package lead

import (
	"fmt"
	"strings"

	"github.com/Conversly/lead-response/internal/types"
)

// TurnThreshold is the number of completed user turns before contact
// details are requested from a new user.
const TurnThreshold = 3

// Tool names shared by the prompt blocks and the tool registry.
const (
	SubmitFormTool = "submit_pre_chat_form"
	HandoffTool    = "handoff_to_support"
)

var standardFields = map[string]bool{"name": true, "email": true, "phone": true}

// Identity is what is known about the person in a conversation.
type Identity struct {
	Email string
	Name  string
	Phone string
}

// Returning reports whether the customer record already holds name and phone.
func (id Identity) Returning() bool {
	return id.Name != "" && id.Phone != ""
}

// Known reports whether the email identifies a customer.
func (id Identity) Known() bool {
	return !IsAnonymous(id.Email)
}

// IdentityFromCustomer fills name and phone from a stored customer record.
func IdentityFromCustomer(email string, c *types.Customer) Identity {
	return Identity{Email: email, Name: c.Field("name"), Phone: c.Field("phone")}
}

// Input is everything the lead policy decides on for one turn.
type Input struct {
	Identity  Identity
	Form      []types.FormField
	TurnCount int
	Prompt    string
}

// Decision says which tools to attach and which prompt blocks to append.
type Decision struct {
	AttachSubmit  bool
	AttachHandoff bool
	HeavyIntent   []string
	Instructions  string
}

// TurnCount counts prior user turns in a history.
func TurnCount(history []types.HistoryEntry) int {
	n := 0
	for _, h := range history {
		if h.Role == types.RoleUser {
			n++
		}
	}
	return n
}

// Decide applies the lead-capture policy. The form tools are only offered
// when a form is configured; submit is withheld from returning users and,
// until the turn threshold, from users without a high-interest trigger.
func Decide(in Input) Decision {
	d := Decision{HeavyIntent: HeavyIntent(in.Prompt)}
	hasForm := len(in.Form) > 0
	collect := in.TurnCount >= TurnThreshold || len(d.HeavyIntent) > 0

	var b strings.Builder
	switch {
	case in.Identity.Known() && in.Identity.Returning():
		b.WriteString(returningBlock(in.Identity))
	case in.Identity.Known():
		b.WriteString(partialBlock(in.Identity, in.TurnCount, len(d.HeavyIntent) > 0))
		d.AttachSubmit = hasForm && collect
	default:
		b.WriteString(newUserBlock(in.TurnCount, d.HeavyIntent, extraFields(in.Form)))
		d.AttachSubmit = hasForm && collect
	}
	b.WriteString(handoffBlock)

	d.AttachHandoff = hasForm
	d.Instructions = b.String()
	return d
}

func returningBlock(id Identity) string {
	var b strings.Builder
	b.WriteString("\n\n[USER CONTEXT]\n")
	fmt.Fprintf(&b, "You are speaking with a RETURNING USER: %s\n", id.Email)
	fmt.Fprintf(&b, "Name: %s\n", id.Name)
	fmt.Fprintf(&b, "IMPORTANT: Address the user by their name (%s) occasionally to be friendly.\n", id.Name)
	fmt.Fprintf(&b, "Phone: %s\n", id.Phone)
	b.WriteString("You have their details, so do NOT ask for Name/Email/Phone.\n")
	return b.String()
}

func partialBlock(id Identity, turns int, heavy bool) string {
	var b strings.Builder
	b.WriteString("\n\n[USER CONTEXT]\n")
	fmt.Fprintf(&b, "You are speaking with a user whose email is: %s.\n", id.Email)
	if id.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", id.Name)
	}
	if id.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", id.Phone)
	}
	b.WriteString("Since you already have their email, do NOT ask for it again.\n")
	if turns >= TurnThreshold || heavy {
		b.WriteString("If you do not have their Name or Phone in the context above, ask for the missing one politely, one at a time, ")
		fmt.Fprintf(&b, "then call '%s' with the email above.\n", SubmitFormTool)
	} else {
		fmt.Fprintf(&b, "Do not ask for their Name or Phone yet; this is turn %d of %d.\n", turns+1, TurnThreshold)
	}
	return b.String()
}

func newUserBlock(turns int, triggers []string, extra string) string {
	var b strings.Builder
	b.WriteString("\n\n[PROGRESSIVE FORM COLLECTION]\n")
	switch {
	case turns >= TurnThreshold:
		b.WriteString("The user has had enough turns. You must now collect: Name, Email, and Phone Number.\n")
		b.WriteString(oneByOne)
	case len(triggers) > 0:
		fmt.Fprintf(&b, "The user's message shows HIGH INTEREST (%s).\n", strings.Join(triggers, ", "))
		b.WriteString("Do NOT answer the pricing or support question from the context. Start Lead Capture now, ")
		b.WriteString("beginning with their Name.\n")
		b.WriteString(oneByOne)
	default:
		fmt.Fprintf(&b, "Engage naturally and answer the user's questions helpfully. This is turn %d of %d.\n", turns+1, TurnThreshold)
		b.WriteString("Do NOT ask for Name, Email or Phone yet.\n")
		return b.String()
	}
	if extra != "" {
		b.WriteString(extra)
		b.WriteString("\n")
	}
	return b.String()
}

const oneByOne = "CRITICAL: Ask for these details ONE BY ONE. Do NOT ask for all three at once.\n" +
	"1. Ask for the Name. Wait for answer.\n" +
	"2. Ask for the Email. Wait for answer.\n" +
	"3. Ask for the Phone Number. Wait for answer.\n" +
	"Once you have all three values (name, email, phone), call the '" + SubmitFormTool + "' function once.\n" +
	"After calling the function, do NOT tell the user 'I have saved your details'. Just say 'Thanks!' or 'Got it!' and continue.\n"

const handoffBlock = "\n[SUPPORT HANDOFF (CRITICAL)]\n" +
	"You must proactively capture the user's details (Name, Email, Phone) and move them to the pipeline if they show HIGH INTEREST.\n" +
	"Triggers for HIGH INTEREST include:\n" +
	"1. Asking about PRICING or cost.\n" +
	"2. Asking for comparisons with COMPETITORS (e.g., Freshworks, Intercom).\n" +
	"3. Asking deep/detailed questions about COMPANY FEATURES or technical specs.\n" +
	"4. Explicitly asking to speak to a human or support.\n" +
	"ACTION IF TRIGGERED:\n" +
	"1. Check if you have Name, Email, Phone. If missing, ASK for them politely one by one.\n" +
	"2. Once you have the details, call '" + HandoffTool + "' with urgency='later' to save them to the pipeline first.\n" +
	"3. AFTER saving, ASK the user: 'I have added you to our priority queue. would you like to connect with a support agent immediately?'\n" +
	"4. IF USER SAYS YES: Call '" + HandoffTool + "' AGAIN with urgency='immediate'.\n" +
	"5. IF USER SAYS NO: Say 'Great! Our team will reach out to you shortly.'\n"

// extraFields lists configured fields beyond name, email and phone.
func extraFields(form []types.FormField) string {
	var labels []string
	for _, f := range form {
		if standardFields[f.ID] {
			continue
		}
		label := f.Label
		if label == "" {
			label = f.ID
		}
		labels = append(labels, "- "+label)
	}
	if len(labels) == 0 {
		return ""
	}
	return "Also ask for: " + strings.Join(labels, ", ")
}

// DecideSession applies the lead policy to a realtime voice session. The
// whole session runs on one instruction, so the turn threshold is stated to
// the model instead of being enforced per turn. Voice always offers handoff.
func DecideSession(id Identity, form []types.FormField) Decision {
	d := Decision{AttachHandoff: true}

	var b strings.Builder
	switch {
	case id.Known() && id.Returning():
		b.WriteString(returningBlock(id))
		fmt.Fprintf(&b, "When calling tools, use this email: %s\n", id.Email)
	case id.Known():
		b.WriteString(sessionBlock(extraFields(form)))
		fmt.Fprintf(&b, "The user's email is already known: %s. Do NOT ask for it again.\n", id.Email)
		d.AttachSubmit = true
	default:
		b.WriteString(sessionBlock(extraFields(form)))
		d.AttachSubmit = true
	}
	b.WriteString(handoffBlock)

	d.Instructions = b.String()
	return d
}

func sessionBlock(extra string) string {
	var b strings.Builder
	b.WriteString("\n\n[PROGRESSIVE FORM COLLECTION]\n")
	fmt.Fprintf(&b, "For the first %d conversation turns, engage naturally and answer questions. Do NOT ask for details yet.\n", TurnThreshold)
	b.WriteString("If the user shows HIGH INTEREST (pricing, buying, support) at any point, start collecting right away.\n")
	b.WriteString(oneByOne)
	if extra != "" {
		b.WriteString(extra)
		b.WriteString("\n")
	}
	return b.String()
}
