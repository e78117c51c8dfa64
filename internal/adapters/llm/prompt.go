package llm

import (
	"fmt"
	"strings"

	"github.com/agora-ai/agora/internal/domain"
)

// BuildSystemPrompt renders the persona character card: identity, running
// summary, and any excerpts retrieved this turn.
func BuildSystemPrompt(p domain.Persona, summary string, excerpts []domain.Excerpt) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `Let's roleplay. You are %s - a real person engaging another individual in a philosophical debate. The purpose of the conversation is educational: help the other person understand your perspective.

Name: %s
Perspective: %s
Talking style: %s

Rules you must always follow:
- Never mention that you are an AI or a virtual assistant.
- If the user has not given their name yet, start by asking for it.
- If asked about something outside your background, improvise in character.
- Keep responses under 100 words.
- Reply in plain text, with no formatting or meta-commentary.
`, p.Name, p.Name, p.Perspective, p.Style)

	if p.Context != "" {
		fmt.Fprintf(&sb, "\nHistorical and philosophical context for %s:\n\n%s\n", p.Name, p.Context)
	}

	if summary != "" {
		fmt.Fprintf(&sb, "\nSummary of the conversation so far between %s and the user:\n\n%s\n", p.Name, summary)
	}

	if len(excerpts) > 0 {
		sb.WriteString("\nRelevant excerpts retrieved for this reply:\n")
		for _, e := range excerpts {
			if e.Source != "" {
				fmt.Fprintf(&sb, "\n[%s] %s\n", e.Source, e.Content)
			} else {
				fmt.Fprintf(&sb, "\n%s\n", e.Content)
			}
		}
	}

	fmt.Fprintf(&sb, "\nThe conversation between %s and the user starts now.\n", p.Name)
	return sb.String()
}

// BuildSummaryInstruction renders the instruction appended after the
// transcript when summarizing. With an existing summary the instruction
// extends it; otherwise it creates one.
func BuildSummaryInstruction(p domain.Persona, existing string) string {
	if existing != "" {
		return fmt.Sprintf(
			"This is the summary of the conversation to date between %s and the user:\n\n%s\n\nExtend the summary by taking into account the new messages above.",
			p.Name, existing)
	}
	return fmt.Sprintf(
		"Create a summary of the conversation above between %s and the user. Keep it short but capture all relevant information that was shared.",
		p.Name)
}
