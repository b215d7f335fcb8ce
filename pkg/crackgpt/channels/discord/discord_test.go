package discord

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSplitMessage(t *testing.T) {
	t.Run("short message is one chunk", func(t *testing.T) {
		chunks := splitMessage("hello", 2000)
		if len(chunks) != 1 || chunks[0] != "hello" {
			t.Errorf("got %v", chunks)
		}
	})

	t.Run("exactly at limit", func(t *testing.T) {
		text := strings.Repeat("a", 2000)
		chunks := splitMessage(text, 2000)
		if len(chunks) != 1 {
			t.Errorf("expected 1 chunk, got %d", len(chunks))
		}
	})

	t.Run("long message splits under limit", func(t *testing.T) {
		text := strings.Repeat("a", 4500)
		chunks := splitMessage(text, 2000)
		if len(chunks) != 3 {
			t.Errorf("expected 3 chunks, got %d", len(chunks))
		}
		var total int
		for _, c := range chunks {
			if len(c) > 2000 {
				t.Errorf("chunk exceeds limit: %d", len(c))
			}
			total += len(c)
		}
		if total != 4500 {
			t.Errorf("expected no lost text, got %d of 4500", total)
		}
	})

	t.Run("prefers newline boundaries", func(t *testing.T) {
		line := strings.Repeat("b", 1500)
		text := line + "\n" + line
		chunks := splitMessage(text, 2000)
		if len(chunks) != 2 {
			t.Fatalf("expected 2 chunks, got %d", len(chunks))
		}
		if !strings.HasSuffix(chunks[0], "\n") {
			t.Error("expected first chunk cut at a newline")
		}
	})

	t.Run("ignores early newlines", func(t *testing.T) {
		// A newline in the first half is a worse cut than the hard limit.
		text := "x\n" + strings.Repeat("y", 3000)
		chunks := splitMessage(text, 2000)
		if len(chunks[0]) != 2000 {
			t.Errorf("expected hard cut at limit, got %d", len(chunks[0]))
		}
	})
}

func TestDisplayName(t *testing.T) {
	author := &discordgo.User{Username: "user1", GlobalName: "Globby"}

	t.Run("nickname wins", func(t *testing.T) {
		m := &discordgo.MessageCreate{Message: &discordgo.Message{
			Author: author,
			Member: &discordgo.Member{Nick: "Nicky"},
		}}
		if got := displayName(m); got != "Nicky" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("global name next", func(t *testing.T) {
		m := &discordgo.MessageCreate{Message: &discordgo.Message{Author: author}}
		if got := displayName(m); got != "Globby" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("username last", func(t *testing.T) {
		m := &discordgo.MessageCreate{Message: &discordgo.Message{
			Author: &discordgo.User{Username: "user1"},
		}}
		if got := displayName(m); got != "user1" {
			t.Errorf("got %q", got)
		}
	})
}

func TestConnectRequiresToken(t *testing.T) {
	d := New(Config{}, testLogger())
	if err := d.Connect(context.Background()); err == nil {
		t.Error("expected error without a token")
	}
}

func TestNewDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.SendTyping {
		t.Error("expected typing indicators enabled by default")
	}

	d := New(cfg, testLogger())
	if d.Name() != "discord" {
		t.Errorf("got name %q", d.Name())
	}
	if d.IsConnected() {
		t.Error("expected disconnected before Connect")
	}
	if d.Health().Connected {
		t.Error("expected unhealthy before Connect")
	}
}

func TestSendBeforeConnect(t *testing.T) {
	d := New(DefaultConfig(), testLogger())
	err := d.Send(context.Background(), "chan", nil)
	if err == nil {
		t.Error("expected error before Connect")
	}
}
