package aisearch

import (
	"fmt"
	"strings"
)

const (
	askSystemPrompt = "You are a helpful documentation assistant. Use the provided context snippets when relevant. " +
		"Answer concisely. If you are unsure, say you do not have enough information."
	generateSystemPrompt = "You are a helpful writing assistant. Keep responses concise and in the same language as the input."

	// NoContextSentinel replaces the context block when retrieval found nothing.
	NoContextSentinel = "No relevant context available."
)

// BuildAskMessages builds the system + user prompt for a question.
func BuildAskMessages(query string, contexts []RetrievedContext) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: askSystemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock(contexts), query)},
	}
}

func contextBlock(contexts []RetrievedContext) string {
	if len(contexts) == 0 {
		return NoContextSentinel
	}

	entries := make([]string, 0, len(contexts))
	for i, c := range contexts {
		header := fmt.Sprintf("Source #%d (document %s", i+1, c.DocumentID)
		if c.Title != "" {
			header += ": " + c.Title
		}
		entries = append(entries, fmt.Sprintf("%s):\n%s\nLink: %s", header, c.Text, c.Link))
	}
	return strings.Join(entries, "\n---\n")
}

var actionInstructions = map[Action]string{
	ActionImproveWriting:     "Improve the writing of the following content while keeping its meaning unchanged.",
	ActionFixSpellingGrammar: "Fix the spelling and grammar of the following content. Do not change its meaning.",
	ActionMakeShorter:        "Make the following content shorter while keeping the key points.",
	ActionMakeLonger:         "Expand the following content with more detail while keeping its meaning.",
	ActionSimplify:           "Simplify the following content so it is easier to read.",
	ActionChangeTone:         "Rewrite the following content in a more professional tone.",
	ActionSummarize:          "Summarize the following content.",
	ActionContinueWriting:    "Continue writing after the following content in the same style.",
	ActionTranslate:          "Translate the following content to English.",
}

const defaultGenerateInstruction = "Help improve the following content while keeping meaning unchanged."

// BuildGenerateMessages builds the prompt for a writing action. An explicit
// prompt wins over the action's instruction.
func BuildGenerateMessages(req GenerateRequest) []ChatMessage {
	instruction := strings.TrimSpace(req.Prompt)
	if instruction == "" {
		instruction = actionInstructions[req.Action]
	}
	if instruction == "" {
		instruction = defaultGenerateInstruction
	}

	return []ChatMessage{
		{Role: RoleSystem, Content: generateSystemPrompt},
		{Role: RoleUser, Content: instruction + "\n\n" + req.Content},
	}
}

func promptPreview(messages []ChatMessage, n int) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Role+": "+m.Content)
	}
	return truncateRunes(strings.Join(parts, " | "), n)
}
