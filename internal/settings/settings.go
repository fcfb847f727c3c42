// Package settings loads player configuration from a TOML file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/op/go-logging"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/s0up4200/go-bdplay/internal/bdnav"
	"github.com/s0up4200/go-bdplay/internal/bluray"
	"github.com/s0up4200/go-bdplay/internal/lang"
)

// Settings mirrors the config file.
type Settings struct {
	// PlaybackMode is "title" (longest title) or "menu" (disc menus).
	PlaybackMode string `toml:"playback_mode"`
	// MinTitleLength hides shorter titles, in seconds.
	MinTitleLength int    `toml:"min_title_length"`
	LogLevel       string `toml:"log_level"`
	Player         Player `toml:"player"`
}

// Player holds the player registers a disc can query.
type Player struct {
	Region           string `toml:"region"`
	ParentalLevel    int    `toml:"parental_level"`
	AudioLanguage    string `toml:"audio_language"`
	SubtitleLanguage string `toml:"subtitle_language"`
	MenuLanguage     string `toml:"menu_language"`
	Country          string `toml:"country"`
}

func Default() Settings {
	return Settings{
		PlaybackMode:   "title",
		MinTitleLength: 20,
		LogLevel:       "info",
		Player: Player{
			Region:           "B",
			ParentalLevel:    99,
			AudioLanguage:    "eng",
			SubtitleLanguage: "eng",
			MenuLanguage:     "eng",
			Country:          "gb",
		},
	}
}

// DefaultPath is bdplay/config.toml in the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, "bdplay", "config.toml"), nil
}

// Load reads path over the defaults. An empty path means DefaultPath; a
// missing default file yields the defaults.
func Load(path string) (Settings, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	file, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (s *Settings) normalize() {
	s.PlaybackMode = strings.ToLower(strings.TrimSpace(s.PlaybackMode))
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	p := &s.Player
	p.Region = strings.ToUpper(strings.TrimSpace(p.Region))
	p.Country = strings.ToLower(strings.TrimSpace(p.Country))
	for _, l := range []*string{&p.AudioLanguage, &p.SubtitleLanguage, &p.MenuLanguage} {
		*l = strings.ToLower(strings.TrimSpace(*l))
	}
}

// Validate checks every field.
func (s Settings) Validate() error {
	switch s.PlaybackMode {
	case "title", "menu":
	default:
		return fmt.Errorf("playback_mode %q: want title or menu", s.PlaybackMode)
	}
	if s.MinTitleLength < 0 {
		return fmt.Errorf("min_title_length %d: must not be negative", s.MinTitleLength)
	}
	if _, err := logging.LogLevel(s.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", s.LogLevel, err)
	}
	p := s.Player
	if _, ok := regions[p.Region]; !ok {
		return fmt.Errorf("player.region %q: want A, B or C", p.Region)
	}
	if p.ParentalLevel < 0 || p.ParentalLevel > 255 {
		return fmt.Errorf("player.parental_level %d: want 0-255", p.ParentalLevel)
	}
	for name, code := range map[string]string{
		"player.audio_language":    p.AudioLanguage,
		"player.subtitle_language": p.SubtitleLanguage,
		"player.menu_language":     p.MenuLanguage,
	} {
		if lang.ISO3(code) == "" {
			return fmt.Errorf("%s %q: unknown language", name, code)
		}
	}
	if r, err := language.ParseRegion(p.Country); err != nil || !r.IsCountry() {
		return fmt.Errorf("player.country %q: unknown country", p.Country)
	}
	return nil
}

var regions = map[string]uint32{
	"A": bdnav.RegionA,
	"B": bdnav.RegionB,
	"C": bdnav.RegionC,
}

// PlayerSettings converts the player section. Languages become ISO 639-2
// codes.
func (s Settings) PlayerSettings() bdnav.PlayerSettings {
	p := s.Player
	return bdnav.PlayerSettings{
		RegionCode:       regions[p.Region],
		ParentalLevel:    uint32(max(p.ParentalLevel, 0)),
		AudioLanguage:    lang.ISO3(p.AudioLanguage),
		SubtitleLanguage: lang.ISO3(p.SubtitleLanguage),
		MenuLanguage:     lang.ISO3(p.MenuLanguage),
		CountryCode:      p.Country,
	}
}

// StreamOptions configures a bluray.Stream from the settings.
func (s Settings) StreamOptions() []bluray.Option {
	mode := bluray.PlaybackTitle
	if s.PlaybackMode == "menu" {
		mode = bluray.PlaybackMenu
	}
	return []bluray.Option{
		bluray.WithSettings(s.PlayerSettings()),
		bluray.WithPlaybackMode(mode),
		bluray.WithMinTitleLength(s.MinTitleLength),
	}
}

// Sample renders the defaults as a config file.
func Sample() ([]byte, error) {
	return toml.Marshal(Default())
}
