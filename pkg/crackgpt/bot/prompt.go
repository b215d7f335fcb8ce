// prompt.go assembles the message list sent to the model: master
// instruction, optional per-channel style line, bounded history,
// link-derived context notes, and the current user message.
package bot

import (
	"strings"

	"github.com/pengu/crackgpt/pkg/crackgpt/enrich"
)

// historySafetyCap bounds the transcript regardless of the configured
// history size.
const historySafetyCap = 50

// annotationMaxChars caps each link annotation line in the prompt.
const annotationMaxChars = 300

// PromptBuilder turns session state into an Ollama message list.
type PromptBuilder struct {
	master string
	style  string
}

// NewPromptBuilder creates a builder with the master and style instructions.
func NewPromptBuilder(master, style string) *PromptBuilder {
	return &PromptBuilder{
		master: strings.TrimSpace(master),
		style:  strings.TrimSpace(style),
	}
}

// SystemPrompt returns the system message content for a channel. The style
// instruction is included only when the channel's toggle is on.
func (p *PromptBuilder) SystemPrompt(styleEnabled bool) string {
	if styleEnabled && p.style != "" {
		return p.master + "\n" + p.style
	}
	return p.master + "\n(Style-guidance is OFF for this channel.)"
}

// Build assembles the full message list. userName and userText may be empty
// for ambient chatter, in which case no user turn is appended.
func (p *PromptBuilder) Build(styleEnabled bool, history []Turn, annotations []enrich.Annotation, userName, userText string) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(history)+3)

	msgs = append(msgs, ChatMessage{
		Role:    "system",
		Content: p.SystemPrompt(styleEnabled),
	})

	if len(history) > historySafetyCap {
		history = history[len(history)-historySafetyCap:]
	}
	for _, turn := range history {
		msgs = append(msgs, ChatMessage{
			Role:    string(turn.Role),
			Content: turn.Text,
		})
	}

	// Enrichment is framed as a contextual note, not as the user's words.
	if len(annotations) > 0 {
		var b strings.Builder
		b.WriteString("Context from shared links:")
		for _, a := range annotations {
			b.WriteString("\n")
			b.WriteString(a.URL)
			b.WriteString(" → ")
			b.WriteString(flattenAnnotation(a.Text))
		}
		msgs = append(msgs, ChatMessage{
			Role:    "system",
			Content: b.String(),
		})
	}

	if userText != "" {
		msgs = append(msgs, ChatMessage{
			Role:    "user",
			Content: FormatUserTurn(userName, userText),
		})
	}

	return msgs
}

// FormatUserTurn prefixes a user message with the sender's display name so
// the model can track who said what. The same form is stored in history.
func FormatUserTurn(name, text string) string {
	if name == "" {
		return text
	}
	return name + ": " + text
}

// flattenAnnotation collapses a summary to one bounded line.
func flattenAnnotation(text string) string {
	line := strings.Join(strings.Fields(text), " ")
	if len(line) <= annotationMaxChars {
		return line
	}
	// Cut on a rune boundary.
	count := 0
	for i := range line {
		if count >= annotationMaxChars {
			return line[:i]
		}
		count++
	}
	return line
}
