// Package bot implements the main orchestrator for CrackGPT. Coordinates
// the channel manager, session store, enrichment fetchers, inference
// client, and ambient chatter to turn inbound messages into replies.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pengu/crackgpt/pkg/crackgpt/channels"
	"github.com/pengu/crackgpt/pkg/crackgpt/chatter"
	"github.com/pengu/crackgpt/pkg/crackgpt/enrich"
)

// apologyReply is the single user-visible failure message. No internal
// detail ever reaches chat.
const apologyReply = "Sorry, my brain just lagged. Try again in a moment."

// Assistant is the message router. Per-event flow:
// filter → command check → link enrichment → prompt assembly → inference →
// history update → reply.
type Assistant struct {
	config *Config

	// channelMgr manages communication channels.
	channelMgr *channels.Manager

	// sessions holds per-channel history and style toggles.
	sessions *SessionStore

	// llm is the inference client.
	llm *OllamaClient

	// enricher derives context from shared links.
	enricher *enrich.Chain

	// prompts assembles model transcripts.
	prompts *PromptBuilder

	// ambient drives unsolicited chatter.
	ambient *chatter.Scheduler

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an Assistant with all dependencies built from config.
func New(cfg *Config, logger *slog.Logger) *Assistant {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Assistant{
		config:     cfg,
		channelMgr: channels.NewManager(logger.With("component", "channels")),
		sessions:   NewSessionStore(cfg.MaxHistoryTurns, cfg.DefaultStyleEnabled, logger.With("component", "sessions")),
		llm:        NewOllamaClient(cfg.Ollama, logger),
		enricher: enrich.NewChain(logger,
			enrich.NewSpotifyFetcher(cfg.Spotify, logger),
			enrich.NewWebPreviewer(cfg.Web, logger),
		),
		prompts: NewPromptBuilder(cfg.MasterInstruction, cfg.StyleInstruction),
		logger:  logger,
	}

	a.ambient = chatter.New(cfg.Chatter, a.eligibleChats, a.speakAmbient, logger)

	return a
}

// Start connects the channels and launches the message loop and ambient
// chatter. Channels must be registered before calling Start.
func (a *Assistant) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.logger.Info("starting assistant",
		"name", a.config.Name,
		"model", a.config.Ollama.Model,
		"allowed_channels", len(a.config.AllowedChannels),
	)

	// Reachability check only; the backend may come up later.
	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	if err := a.llm.Ping(pingCtx); err != nil {
		a.logger.Warn("ollama not reachable at startup", "error", err)
	}
	cancel()

	if err := a.channelMgr.Start(a.ctx); err != nil {
		return fmt.Errorf("starting channels: %w", err)
	}

	if err := a.ambient.Start(a.ctx); err != nil {
		return fmt.Errorf("starting chatter: %w", err)
	}

	go a.messageLoop()

	a.logger.Info("assistant started", "sessions", a.sessions.Count())
	return nil
}

// Stop shuts down all subsystems in reverse initialization order.
func (a *Assistant) Stop() {
	a.logger.Info("stopping assistant...")

	if a.cancel != nil {
		a.cancel()
	}

	a.ambient.Stop()
	a.channelMgr.Stop()

	a.logger.Info("assistant stopped")
}

// ChannelManager returns the channel manager for external registration.
func (a *Assistant) ChannelManager() *channels.Manager {
	return a.channelMgr
}

// Sessions returns the session store.
func (a *Assistant) Sessions() *SessionStore {
	return a.sessions
}

// messageLoop drains the aggregated channel stream. Each message is handled
// in its own goroutine; ordering between near-simultaneous messages in the
// same chat is best-effort.
func (a *Assistant) messageLoop() {
	for {
		select {
		case msg, ok := <-a.channelMgr.Messages():
			if !ok {
				return
			}
			go a.handleMessage(msg)

		case <-a.ctx.Done():
			return
		}
	}
}

// handleMessage runs one router pass for an inbound message.
func (a *Assistant) handleMessage(msg *channels.IncomingMessage) {
	start := time.Now()
	logger := a.logger.With(
		"channel", msg.Channel,
		"chat_id", msg.ChatID,
		"from", msg.From,
	)

	// ── Step 1: Filter ──
	if msg.FromBot && !a.config.RespondToBots {
		return
	}
	if !a.chatAllowed(msg.ChatID) {
		logger.Debug("message ignored (channel not in allow-list)")
		return
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}

	// ── Step 2: Commands ──
	if result := a.handleCommand(msg.ChatID, content); result.Handled {
		a.sendReply(msg, result.Response)
		logger.Info("command processed", "duration_ms", time.Since(start).Milliseconds())
		return
	}

	// Eligible for ambient chatter from now on.
	a.sessions.MarkActive(msg.ChatID, msg.Channel)

	// ── Step 3: Link enrichment ──
	annotations := a.enricher.Enrich(a.ctx, enrich.ExtractURLs(content))

	// ── Step 4: Prompt assembly ──
	history := a.sessions.HistorySnapshot(msg.ChatID)
	messages := a.prompts.Build(
		a.sessions.StyleEnabled(msg.ChatID),
		history,
		annotations,
		msg.FromName,
		content,
	)

	a.sendTyping(msg)

	// ── Step 5: Inference ──
	reply, err := a.llm.Complete(a.ctx, messages)
	if err != nil {
		// One apology, no history mutation.
		logger.Warn("inference unavailable", "error", err)
		a.sendReply(msg, apologyReply)
		return
	}

	// ── Step 6: History update (user turn first, then assistant) ──
	a.sessions.AppendTurn(msg.ChatID, RoleUser, FormatUserTurn(msg.FromName, content))
	a.sessions.AppendTurn(msg.ChatID, RoleAssistant, reply)

	// ── Step 7: Reply ──
	a.sendReply(msg, reply)

	logger.Info("message processed",
		"duration_ms", time.Since(start).Milliseconds(),
		"enrichments", len(annotations),
	)
}

// speakAmbient generates one unsolicited message for a chat. Enters the
// pipeline at prompt assembly: no user turn, no link extraction.
func (a *Assistant) speakAmbient(ctx context.Context, chatID string) error {
	history := a.sessions.HistorySnapshot(chatID)
	messages := a.prompts.Build(a.sessions.StyleEnabled(chatID), history, nil, "", "")

	reply, err := a.llm.Complete(ctx, messages)
	if err != nil {
		return err
	}

	platform := a.sessions.PlatformOf(chatID)
	if platform == "" {
		return fmt.Errorf("no platform recorded for chat %s", chatID)
	}

	if err := a.channelMgr.Send(ctx, platform, chatID, &channels.OutgoingMessage{Content: reply}); err != nil {
		return err
	}

	a.sessions.AppendTurn(chatID, RoleAssistant, reply)
	return nil
}

// eligibleChats returns active chats that pass the allow-list, for ambient
// chatter.
func (a *Assistant) eligibleChats() []string {
	var eligible []string
	for _, chatID := range a.sessions.ActiveChannels() {
		if a.chatAllowed(chatID) {
			eligible = append(eligible, chatID)
		}
	}
	return eligible
}

// chatAllowed applies the channel allow-list; an empty list allows all.
func (a *Assistant) chatAllowed(chatID string) bool {
	if len(a.config.AllowedChannels) == 0 {
		return true
	}
	for _, id := range a.config.AllowedChannels {
		if id == chatID {
			return true
		}
	}
	return false
}

// sendTyping shows a typing indicator if the channel supports it.
func (a *Assistant) sendTyping(msg *channels.IncomingMessage) {
	ch, ok := a.channelMgr.Channel(msg.Channel)
	if !ok {
		return
	}
	if pc, ok := ch.(channels.PresenceChannel); ok {
		if err := pc.SendTyping(a.ctx, msg.ChatID); err != nil {
			a.logger.Debug("typing indicator failed", "error", err)
		}
	}
}

// sendReply sends a response back to the originating chat.
func (a *Assistant) sendReply(original *channels.IncomingMessage, content string) {
	outMsg := &channels.OutgoingMessage{
		Content: content,
		ReplyTo: original.ID,
	}

	if err := a.channelMgr.Send(a.ctx, original.Channel, original.ChatID, outMsg); err != nil {
		a.logger.Error("failed to send reply",
			"channel", original.Channel,
			"chat_id", original.ChatID,
			"error", err,
		)
	}
}
