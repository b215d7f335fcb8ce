// spotify.go implements the track-metadata fetcher for open.spotify.com
// links. Uses the Web API with an OAuth client-credentials token; without
// configured credentials the fetcher is silently inert.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL   = "https://api.spotify.com/v1"
)

// trackPattern matches Spotify track links and captures the track ID.
var trackPattern = regexp.MustCompile(`open\.spotify\.com/track/([A-Za-z0-9]+)`)

// ExtractTrackID returns the track ID from a Spotify track URL.
func ExtractTrackID(url string) (string, bool) {
	m := trackPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SpotifyConfig holds Spotify fetcher configuration.
type SpotifyConfig struct {
	// Enabled turns track lookups on/off.
	Enabled bool `yaml:"enabled"`

	// ClientID and ClientSecret are the Spotify app credentials.
	// Both empty disables the fetcher without error.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// TimeoutSeconds is the time budget per lookup.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// DefaultSpotifyConfig returns a SpotifyConfig with sensible defaults.
func DefaultSpotifyConfig() SpotifyConfig {
	return SpotifyConfig{
		Enabled:        true,
		TimeoutSeconds: 5,
	}
}

// SpotifyFetcher looks up track metadata for shared Spotify links.
type SpotifyFetcher struct {
	cfg    SpotifyConfig
	logger *slog.Logger

	// client carries the client-credentials token source; nil when the
	// fetcher is inert (disabled or missing credentials).
	client *http.Client

	// apiURL is overridable in tests.
	apiURL string
}

// NewSpotifyFetcher creates a fetcher from config. With the feature enabled
// but credentials missing, the fetcher is created inert and a warning is
// logged once, matching the soft-failure contract.
func NewSpotifyFetcher(cfg SpotifyConfig, logger *slog.Logger) *SpotifyFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "spotify")

	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultSpotifyConfig().TimeoutSeconds
	}

	s := &SpotifyFetcher{
		cfg:    cfg,
		logger: logger,
		apiURL: spotifyAPIURL,
	}

	if !cfg.Enabled {
		return s
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.Warn("spotify enabled but credentials missing, feature disabled")
		return s
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyTokenURL,
	}
	s.client = cc.Client(context.Background())
	s.client.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	logger.Info("spotify client initialized")

	return s
}

// Name returns "spotify".
func (s *SpotifyFetcher) Name() string { return "spotify" }

// Fetch returns a short formatted description for Spotify track URLs.
// Non-track URLs and any lookup failure return ok=false.
func (s *SpotifyFetcher) Fetch(ctx context.Context, url string) (string, bool) {
	if s.client == nil {
		return "", false
	}

	trackID, ok := ExtractTrackID(url)
	if !ok {
		return "", false
	}

	track, err := s.getTrack(ctx, trackID)
	if err != nil {
		s.logger.Debug("track fetch failed", "track_id", trackID, "error", err)
		return "", false
	}

	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	return fmt.Sprintf("🎵 %s by %s (album: %s, released: %s, popularity: %d)",
		track.Name,
		strings.Join(artists, ", "),
		track.Album.Name,
		track.Album.ReleaseDate,
		track.Popularity,
	), true
}

// spotifyTrack is the subset of the Web API track object we use.
type spotifyTrack struct {
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name        string `json:"name"`
		ReleaseDate string `json:"release_date"`
	} `json:"album"`
	DurationMs int `json:"duration_ms"`
	Popularity int `json:"popularity"`
}

// getTrack calls GET /v1/tracks/{id}.
func (s *SpotifyFetcher) getTrack(ctx context.Context, trackID string) (*spotifyTrack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"/tracks/"+trackID, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned %d", resp.StatusCode)
	}

	var track spotifyTrack
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &track, nil
}

var _ Fetcher = (*SpotifyFetcher)(nil)
