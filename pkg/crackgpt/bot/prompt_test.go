package bot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pengu/crackgpt/pkg/crackgpt/enrich"
)

func TestSystemPrompt(t *testing.T) {
	p := NewPromptBuilder("You are a bot.", "(STRICT mode.)")

	t.Run("style on includes instruction", func(t *testing.T) {
		got := p.SystemPrompt(true)
		if !strings.Contains(got, "(STRICT mode.)") {
			t.Errorf("expected style instruction in %q", got)
		}
	})

	t.Run("style off notes it", func(t *testing.T) {
		got := p.SystemPrompt(false)
		if strings.Contains(got, "(STRICT mode.)") {
			t.Errorf("did not expect style instruction in %q", got)
		}
		if !strings.Contains(got, "Style-guidance is OFF") {
			t.Errorf("expected off note in %q", got)
		}
	})
}

func TestBuild(t *testing.T) {
	p := NewPromptBuilder("master", "style")

	t.Run("order is system, history, note, user", func(t *testing.T) {
		history := []Turn{
			{Role: RoleUser, Text: "alice: hey"},
			{Role: RoleAssistant, Text: "hello"},
		}
		annotations := []enrich.Annotation{
			{URL: "https://example.com", Text: "Example Domain"},
		}

		msgs := p.Build(true, history, annotations, "alice", "check this")
		if len(msgs) != 5 {
			t.Fatalf("expected 5 messages, got %d", len(msgs))
		}
		if msgs[0].Role != "system" {
			t.Errorf("expected leading system message, got %s", msgs[0].Role)
		}
		if msgs[1].Content != "alice: hey" || msgs[2].Content != "hello" {
			t.Error("history not carried in order")
		}
		if msgs[3].Role != "system" || !strings.Contains(msgs[3].Content, "Context from shared links:") {
			t.Errorf("expected enrichment note, got %+v", msgs[3])
		}
		if !strings.Contains(msgs[3].Content, "https://example.com → Example Domain") {
			t.Errorf("expected URL-tagged annotation, got %q", msgs[3].Content)
		}
		if msgs[4].Role != "user" || msgs[4].Content != "alice: check this" {
			t.Errorf("expected named user turn, got %+v", msgs[4])
		}
	})

	t.Run("no annotations means no note", func(t *testing.T) {
		msgs := p.Build(false, nil, nil, "bob", "hi")
		for _, m := range msgs {
			if strings.Contains(m.Content, "Context from shared links") {
				t.Error("unexpected enrichment note")
			}
		}
		if len(msgs) != 2 {
			t.Errorf("expected system + user, got %d messages", len(msgs))
		}
	})

	t.Run("empty user text builds ambient prompt", func(t *testing.T) {
		history := []Turn{{Role: RoleAssistant, Text: "earlier"}}
		msgs := p.Build(true, history, nil, "", "")
		last := msgs[len(msgs)-1]
		if last.Role == "user" {
			t.Error("ambient prompt must not end with a user turn")
		}
	})

	t.Run("history capped", func(t *testing.T) {
		var history []Turn
		for i := 0; i < historySafetyCap+20; i++ {
			history = append(history, Turn{Role: RoleUser, Text: fmt.Sprintf("m%d", i)})
		}
		msgs := p.Build(false, history, nil, "u", "x")
		// system + cap + user
		if len(msgs) != historySafetyCap+2 {
			t.Errorf("expected %d messages, got %d", historySafetyCap+2, len(msgs))
		}
		// The newest history entry must survive the cap.
		if msgs[len(msgs)-2].Content != fmt.Sprintf("m%d", historySafetyCap+19) {
			t.Errorf("expected newest history kept, got %q", msgs[len(msgs)-2].Content)
		}
	})

	t.Run("long annotations flattened and bounded", func(t *testing.T) {
		annotations := []enrich.Annotation{
			{URL: "https://x.test", Text: "line one\nline two  " + strings.Repeat("y", 1000)},
		}
		msgs := p.Build(false, nil, annotations, "u", "x")
		note := msgs[1].Content
		if strings.Contains(note, "\nline two") {
			t.Error("annotation newlines should be flattened")
		}
		for _, line := range strings.Split(note, "\n")[1:] {
			if len(line) > annotationMaxChars+len("https://x.test → ")+10 {
				t.Errorf("annotation line too long: %d chars", len(line))
			}
		}
	})
}

func TestFormatUserTurn(t *testing.T) {
	if got := FormatUserTurn("alice", "hi"); got != "alice: hi" {
		t.Errorf("got %q", got)
	}
	if got := FormatUserTurn("", "hi"); got != "hi" {
		t.Errorf("got %q", got)
	}
}
