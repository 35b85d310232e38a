package chat

import (
	"fmt"

	"github.com/memoraiz/onboard/internal/profile"
)

// systemPrompt is the assistant's standing instruction set. The per-turn
// profile context is appended to it before generation.
const systemPrompt = `You are the Memoraiz Onboarding Assistant.
Your job is to interview the user and build a structured company profile.
Ask one question at a time. Be concise and professional.
Always extract factual details from the user's answers and call the update_profile_field tool.
If the user asks about Memoraiz capabilities, call search_docs and answer using the returned snippets.
Never fabricate details about Memoraiz.
If you are missing information, ask a focused follow-up question.
Prioritize collecting: company name, industry, description, AI maturity level, current AI usage, and goals.`

// BuildProfileContext renders the canvas for the system prompt. Empty
// fields show as "(unknown)" so the model knows what is still missing.
func BuildProfileContext(p profile.Profile) string {
	orUnknown := func(v string) string {
		if v == "" {
			return "(unknown)"
		}
		return v
	}
	return fmt.Sprintf(
		"Current company profile:\n- Name: %s\n- Industry: %s\n- Description: %s\n- AI maturity level: %s\n- Current AI usage: %s\n- Goals: %s",
		orUnknown(p.Name), orUnknown(p.Industry), orUnknown(p.Description),
		orUnknown(p.AIMaturityLevel), orUnknown(p.AIUsage), orUnknown(p.Goals))
}
