// Package chatter implements the ambient-chatter scheduler: unsolicited
// messages emitted into active channels, either at random intervals within
// a configured range or on fixed cron schedules. The scheduler owns no
// conversation logic; it only decides when and where to speak and hands the
// rest to the router through a callback.
package chatter

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Config holds ambient-chatter configuration.
type Config struct {
	// Enabled turns the random-interval loop on/off.
	Enabled bool `yaml:"enabled"`

	// MinIntervalSeconds and MaxIntervalSeconds bound the uniform random
	// wait between unsolicited messages.
	MinIntervalSeconds int `yaml:"min_interval_seconds"`
	MaxIntervalSeconds int `yaml:"max_interval_seconds"`

	// CronSchedules lists fixed schedules (standard 5-field cron or
	// "@daily"-style descriptors) that also trigger an ambient message.
	CronSchedules []string `yaml:"cron_schedules"`
}

// DefaultConfig returns a Config with sensible defaults (15–30 minutes).
func DefaultConfig() Config {
	return Config{
		Enabled:            false,
		MinIntervalSeconds: 900,
		MaxIntervalSeconds: 1800,
	}
}

// SpeakFunc asks the router to emit one unprompted message into a chat.
type SpeakFunc func(ctx context.Context, chatID string) error

// EligibleFunc returns the chat IDs currently eligible for ambient chatter.
type EligibleFunc func() []string

// Scheduler drives ambient chatter. Both trigger sources (random loop and
// cron entries) funnel into the same fire path.
type Scheduler struct {
	cfg      Config
	eligible EligibleFunc
	speak    SpeakFunc
	logger   *slog.Logger

	cron *cron.Cron
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler with the given eligibility provider and speak
// callback.
func New(cfg Config, eligible EligibleFunc, speak SpeakFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		eligible: eligible,
		speak:    speak,
		logger:   logger.With("component", "chatter"),
	}
}

// Start launches the random-interval loop and registers cron schedules.
// A scheduler with nothing to do starts successfully and stays idle.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.cfg.Enabled {
		if s.cfg.MinIntervalSeconds <= 0 || s.cfg.MaxIntervalSeconds < s.cfg.MinIntervalSeconds {
			return fmt.Errorf("chatter: invalid interval range [%d, %d]",
				s.cfg.MinIntervalSeconds, s.cfg.MaxIntervalSeconds)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.randomLoop()
		}()
		s.logger.Info("random chatter loop started",
			"min_s", s.cfg.MinIntervalSeconds,
			"max_s", s.cfg.MaxIntervalSeconds,
		)
	}

	if len(s.cfg.CronSchedules) > 0 {
		s.cron = cron.New()
		for _, spec := range s.cfg.CronSchedules {
			if _, err := s.cron.AddFunc(spec, func() { s.fire("cron") }); err != nil {
				return fmt.Errorf("chatter: invalid cron schedule %q: %w", spec, err)
			}
		}
		s.cron.Start()
		s.logger.Info("cron chatter schedules registered", "count", len(s.cfg.CronSchedules))
	}

	return nil
}

// Stop cancels the random loop and the cron runner, waiting for in-flight
// firings started by the loop to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.wg.Wait()
	s.logger.Info("chatter stopped")
}

// randomLoop sleeps a uniform random duration within the configured range,
// fires once, and repeats until cancelled.
func (s *Scheduler) randomLoop() {
	for {
		wait := s.nextInterval()

		select {
		case <-time.After(wait):
			s.fire("random")
		case <-s.ctx.Done():
			return
		}
	}
}

// nextInterval picks a uniform random wait in [min, max] seconds.
func (s *Scheduler) nextInterval() time.Duration {
	min, max := s.cfg.MinIntervalSeconds, s.cfg.MaxIntervalSeconds
	return time.Duration(min+rand.IntN(max-min+1)) * time.Second
}

// fire picks one eligible chat at random and asks the router to speak.
// Failures are logged and dropped; ambient chatter never escalates errors.
func (s *Scheduler) fire(trigger string) {
	chats := s.eligible()
	if len(chats) == 0 {
		s.logger.Debug("no eligible channels, skipping", "trigger", trigger)
		return
	}

	chatID := chats[rand.IntN(len(chats))]
	runID := uuid.NewString()

	s.logger.Debug("ambient chatter firing",
		"run_id", runID,
		"trigger", trigger,
		"chat_id", chatID,
	)

	if err := s.speak(s.ctx, chatID); err != nil {
		s.logger.Debug("ambient chatter skipped",
			"run_id", runID,
			"chat_id", chatID,
			"error", err,
		)
		return
	}

	s.logger.Info("ambient message sent", "run_id", runID, "chat_id", chatID)
}
