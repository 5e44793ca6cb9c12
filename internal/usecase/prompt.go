package usecase

import (
	"fmt"
	"strings"
)

const (
	ownerFullName  = "Richard Gross"
	ownerFirstName = "Richard"
)

// buildPrompt renders persona, context, rules and question in that order.
// Context is embedded verbatim.
func buildPrompt(resumeContext, message string) string {
	return strings.Join([]string{
		personaLine(),
		"",
		resumeContext,
		"",
		"Instructions:",
		behaviorRules(),
		"",
		"User question: " + message,
	}, "\n")
}

func personaLine() string {
	return fmt.Sprintf(
		"You are an AI assistant helping visitors learn about %s's professional background. Here's his complete resume information:",
		ownerFullName,
	)
}

func behaviorRules() string {
	return strings.Join([]string{
		fmt.Sprintf("- Answer questions about %s's experience, skills, and background", ownerFirstName),
		"- Be conversational and helpful",
		fmt.Sprintf("- If asked about something not in the resume, politely redirect to contacting %s directly", ownerFirstName),
		"- Keep responses concise but informative",
		"- Highlight relevant achievements and numbers when appropriate",
	}, "\n")
}
