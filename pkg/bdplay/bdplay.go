// Package bdplay inspects Blu-ray disc structures and opens their titles as
// seekable streams.
package bdplay

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/op/go-logging"

	"github.com/s0up4200/go-bdplay/internal/bdnav"
	"github.com/s0up4200/go-bdplay/internal/bluray"
	"github.com/s0up4200/go-bdplay/internal/inputstream"
	"github.com/s0up4200/go-bdplay/internal/overlay"
	"github.com/s0up4200/go-bdplay/internal/report"
	"github.com/s0up4200/go-bdplay/internal/settings"
	"github.com/s0up4200/go-bdplay/internal/util"
)

type (
	// Stream is an opened disc title. See Open.
	Stream       = bluray.Stream
	FileItem     = inputstream.FileItem
	NextStream   = inputstream.NextStream
	Config       = settings.Settings
	OverlayGroup = overlay.Group
)

var (
	ErrMount           = bluray.ErrMount
	ErrNoPlayableTitle = bluray.ErrNoPlayableTitle
	ErrDecode          = bluray.ErrDecode
	ErrEncrypted       = bluray.ErrEncrypted
	ErrExit            = bluray.ErrExit
	ErrSeekOutOfRange  = bluray.ErrSeekOutOfRange
)

func init() {
	// go-logging prints every level until a backend is installed. Library
	// users see warnings and errors only; SetLogLevel or a backend of
	// their own replaces this.
	logging.SetLevel(logging.WARNING, "")
}

// SetLogLevel changes the level of every bdplay logger on the current
// backend. Level names are those of go-logging, e.g. "debug" or "error".
func SetLogLevel(level string) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	logging.SetLevel(lvl, "")
	return nil
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return settings.Default()
}

// LoadConfig reads a TOML config file; see settings.Load.
func LoadConfig(path string) (Config, error) {
	return settings.Load(path)
}

// Stage represents a coarse progress stage for Inspect.
type Stage string

const (
	StageStarting  Stage = "starting"
	StageOpened    Stage = "opened"
	StageTitles    Stage = "titles"
	StageRendering Stage = "rendering"
	StageDone      Stage = "done"
)

// ProgressEvent is emitted when Inspect transitions between phases.
type ProgressEvent struct {
	Stage      Stage
	Path       string
	Titles     int
	Elapsed    time.Duration
	OccurredAt time.Time
}

// Options configure one Inspect call.
type Options struct {
	Path string
	// MinTitleLength hides titles shorter than this many seconds.
	MinTitleLength int
	Chapters       bool
	Streams        bool
	Version        string
	OnProgress     func(ProgressEvent)
}

// DiscInfo contains high-level disc metadata.
type DiscInfo struct {
	Path       string
	Title      string
	Label      string
	IsAACS     bool
	IsBDPlus   bool
	IsBDJava   bool
	IsUHD      bool
	HDMVTitles int
	BDJTitles  int
	Playlists  int
}

// TitleInfo summarizes one playable title.
type TitleInfo struct {
	Playlist  int
	Duration  time.Duration
	SizeBytes uint64
	Angles    int
	Chapters  []time.Duration
	Clips     []string
}

// Result is the structured disc summary plus the rendered report.
type Result struct {
	Disc   DiscInfo
	Titles []TitleInfo
	Report string
}

// Inspect reads the disc structure at options.Path. Titles are ordered
// longest first.
func Inspect(ctx context.Context, options Options) (Result, error) {
	if options.Path == "" {
		return Result{}, errors.New("path is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	emit(options.OnProgress, ProgressEvent{Stage: StageStarting, Path: options.Path, OccurredAt: time.Now()})

	disc, err := bdnav.Open(options.Path)
	if err != nil {
		return Result{}, err
	}
	defer disc.Close()
	emit(options.OnProgress, ProgressEvent{Stage: StageOpened, Path: options.Path, OccurredAt: time.Now()})

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	titles := disc.Titles(options.MinTitleLength)
	slices.SortStableFunc(titles, func(a, b *bdnav.TitleInfo) int {
		switch {
		case a.Duration > b.Duration:
			return -1
		case a.Duration < b.Duration:
			return 1
		default:
			return 0
		}
	})
	emit(options.OnProgress, ProgressEvent{Stage: StageTitles, Path: options.Path, Titles: len(titles), OccurredAt: time.Now()})

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	emit(options.OnProgress, ProgressEvent{Stage: StageRendering, Path: options.Path, OccurredAt: time.Now()})
	info := disc.DiscInfo()
	var b strings.Builder
	err = report.Write(&b, info, titles, report.Options{
		Chapters: options.Chapters,
		Streams:  options.Streams,
		Version:  options.Version,
	})
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Disc:   buildDiscInfo(disc.Root(), info),
		Titles: buildTitleInfo(titles),
		Report: b.String(),
	}
	emit(options.OnProgress, ProgressEvent{
		Stage:      StageDone,
		Path:       options.Path,
		Titles:     len(titles),
		Elapsed:    time.Since(start),
		OccurredAt: time.Now(),
	})
	return result, nil
}

func emit(cb func(ProgressEvent), event ProgressEvent) {
	if cb != nil {
		cb(event)
	}
}

func buildDiscInfo(root string, info bdnav.DiscInfo) DiscInfo {
	return DiscInfo{
		Path:       root,
		Title:      info.DiscName,
		Label:      info.VolumeLabel,
		IsAACS:     info.AACSDetected,
		IsBDPlus:   info.BDPlusDetected,
		IsBDJava:   info.BDJDetected,
		IsUHD:      info.UHD,
		HDMVTitles: info.NumHDMVTitles,
		BDJTitles:  info.NumBDJTitles,
		Playlists:  info.NumPlaylists,
	}
}

func ticks(t uint64) time.Duration {
	return util.TicksToDuration(t)
}

func buildTitleInfo(titles []*bdnav.TitleInfo) []TitleInfo {
	out := make([]TitleInfo, 0, len(titles))
	for _, ti := range titles {
		t := TitleInfo{
			Playlist:  ti.Playlist,
			Duration:  ticks(ti.Duration),
			SizeBytes: ti.Size(),
			Angles:    ti.AngleCount,
		}
		for _, ch := range ti.Chapters {
			t.Chapters = append(t.Chapters, ticks(ch.Start))
		}
		for _, c := range ti.Clips {
			t.Clips = append(t.Clips, c.Name)
		}
		out = append(out, t)
	}
	return out
}

// Open opens path (a disc folder, index.bdmv, a playlist file or a
// bluray:// URL) for reading with cfg. Graphics plane updates go to sink
// when it is not nil.
func Open(path string, cfg Config, sink func(OverlayGroup)) (*Stream, error) {
	opts := cfg.StreamOptions()
	if sink != nil {
		opts = append(opts, bluray.WithOverlaySink(sink))
	}
	s := bluray.New(opts...)
	if err := s.Open(FileItem{Path: path}); err != nil {
		return nil, err
	}
	return s, nil
}

// PlaylistURL names playlist id of the disc at root for Open.
func PlaylistURL(root string, id int) string {
	return bluray.PlaylistURL(root, id)
}
