// commands.go implements the in-band command surface: the style toggle
// keyword and the static help keywords. Everything else is a conversation.
package bot

import (
	"fmt"
	"strings"
)

// helpKeywords are the accepted spellings of the help command.
var helpKeywords = map[string]bool{
	"!crackgpt help": true,
	"!cg help":       true,
	"!help cg":       true,
}

// commandResult reports whether a message was consumed as a command and the
// reply to send, if any.
type commandResult struct {
	Handled  bool
	Response string
}

// handleCommand checks the message against the command surface. Commands
// never reach the inference backend.
func (a *Assistant) handleCommand(chatID, content string) commandResult {
	lower := strings.ToLower(strings.TrimSpace(content))

	if strings.HasPrefix(lower, strings.ToLower(a.config.ToggleKeyword)) {
		enabled := a.sessions.ToggleStyle(chatID)
		state := "OFF"
		if enabled {
			state = "ON"
		}
		return commandResult{
			Handled:  true,
			Response: fmt.Sprintf("%s style toggle is now **%s** for this channel.", a.config.Name, state),
		}
	}

	if helpKeywords[lower] {
		return commandResult{
			Handled:  true,
			Response: a.helpText(),
		}
	}

	return commandResult{}
}

// helpText returns the static usage summary.
func (a *Assistant) helpText() string {
	return "Commands:\n" +
		fmt.Sprintf("- `%s` — toggle style guidance for this channel\n", a.config.ToggleKeyword) +
		"- `!crackgpt help` — show this help\n"
}
