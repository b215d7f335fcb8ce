// session.go implements the per-channel conversation state: a bounded
// history of role-tagged turns plus the style toggle. Sessions are created
// lazily on first contact and live only for the process lifetime.
package bot

import (
	"log/slog"
	"sync"
	"time"
)

// Role tags a stored conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in a channel's history.
type Turn struct {
	Role Role
	Text string
}

// ChannelSession holds the conversation state for one channel.
type ChannelSession struct {
	// ChannelID is the owning channel identifier.
	ChannelID string

	// StyleEnabled is the per-channel style-instruction toggle.
	StyleEnabled bool

	// Platform is the channel implementation that owns this chat
	// (e.g. "discord"), recorded on first user message so unsolicited
	// replies can be routed back.
	Platform string

	// Active marks channels that have seen user traffic, making them
	// eligible for ambient chatter.
	Active bool

	// LastActiveAt is the timestamp of the last user message.
	LastActiveAt time.Time

	// history is the bounded turn sequence, oldest first.
	history []Turn
}

// SessionStore manages channel sessions. All operations are safe for
// concurrent use and atomic: no operation spans a suspension point.
type SessionStore struct {
	sessions     map[string]*ChannelSession
	maxTurns     int
	defaultStyle bool
	logger       *slog.Logger
	mu           sync.RWMutex
}

// NewSessionStore creates a store with the given history bound and default
// style toggle for new sessions.
func NewSessionStore(maxTurns int, defaultStyle bool, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &SessionStore{
		sessions:     make(map[string]*ChannelSession),
		maxTurns:     maxTurns,
		defaultStyle: defaultStyle,
		logger:       logger,
	}
}

// GetOrCreate returns the session for a channel, creating it with defaults
// on first contact. Never fails.
func (ss *SessionStore) GetOrCreate(channelID string) *ChannelSession {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.getOrCreateLocked(channelID)
}

// AppendTurn appends a turn to the channel's history, evicting the oldest
// entries when the bound is exceeded. The len(history) <= maxTurns
// invariant holds on return.
func (ss *SessionStore) AppendTurn(channelID string, role Role, text string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s := ss.getOrCreateLocked(channelID)
	s.history = append(s.history, Turn{Role: role, Text: text})
	if excess := len(s.history) - ss.maxTurns; excess > 0 {
		s.history = s.history[excess:]
	}
}

// ToggleStyle flips the channel's style toggle and returns the new value.
func (ss *SessionStore) ToggleStyle(channelID string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s := ss.getOrCreateLocked(channelID)
	s.StyleEnabled = !s.StyleEnabled
	return s.StyleEnabled
}

// StyleEnabled reports the channel's current style toggle.
func (ss *SessionStore) StyleEnabled(channelID string) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if s, ok := ss.sessions[channelID]; ok {
		return s.StyleEnabled
	}
	return ss.defaultStyle
}

// HistorySnapshot returns a copy of the channel's history at call time.
func (ss *SessionStore) HistorySnapshot(channelID string) []Turn {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	s, ok := ss.sessions[channelID]
	if !ok {
		return nil
	}
	snapshot := make([]Turn, len(s.history))
	copy(snapshot, s.history)
	return snapshot
}

// MarkActive flags the channel as having seen user traffic and records the
// owning platform.
func (ss *SessionStore) MarkActive(channelID, platform string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s := ss.getOrCreateLocked(channelID)
	s.Active = true
	s.Platform = platform
	s.LastActiveAt = time.Now()
}

// PlatformOf returns the platform recorded for a channel, or empty if the
// channel has never been active.
func (ss *SessionStore) PlatformOf(channelID string) string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if s, ok := ss.sessions[channelID]; ok {
		return s.Platform
	}
	return ""
}

// ActiveChannels returns the IDs of channels flagged active.
func (ss *SessionStore) ActiveChannels() []string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	var ids []string
	for id, s := range ss.sessions {
		if s.Active {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns the number of sessions.
func (ss *SessionStore) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// getOrCreateLocked is the shared creation path; callers hold the write lock.
func (ss *SessionStore) getOrCreateLocked(channelID string) *ChannelSession {
	if s, ok := ss.sessions[channelID]; ok {
		return s
	}

	s := &ChannelSession{
		ChannelID:    channelID,
		StyleEnabled: ss.defaultStyle,
	}
	ss.sessions[channelID] = s
	ss.logger.Info("new session created", "chat_id", channelID)
	return s
}
