package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/s0up4200/go-bdplay/internal/logsetup"
	"github.com/s0up4200/go-bdplay/internal/settings"
	"github.com/s0up4200/go-bdplay/pkg/bdplay"
)

var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

type infoOptions struct {
	chapters  bool
	streams   bool
	minLength int
}

type dumpOptions struct {
	output   string
	playlist string
	angle    int
	chapter  int
}

var (
	opts     rootOptions
	infoOpts infoOptions
	dumpOpts dumpOptions
	cfg      bdplay.Config
)

var rootCmd = &cobra.Command{
	Use:               "bdplay",
	Short:             "Play and inspect Blu-ray disc structures.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "List the playable titles of a disc",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var dumpCmd = &cobra.Command{
	Use:   "dump <path>",
	Short: "Write a title's transport stream to a file",
	Long:  "Write a title's transport stream to a file. Without --playlist the longest title is used.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print a config file with the default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := settings.Sample()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
	DisableFlagsInUseLine: true,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update bdplay",
	Long:  "Update bdplay to latest version (release builds only).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelfUpdate(cmd.Context(), cmd.OutOrStdout())
	},
	DisableFlagsInUseLine: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "bdplay version: %s\n", version)
		return nil
	},
	DisableFlagsInUseLine: true,
}

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: bdplay/config.toml in the user config directory)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warning, error)")

	infoCmd.Flags().BoolVarP(&infoOpts.chapters, "chapters", "c", false, "Include the chapter list of every title")
	infoCmd.Flags().BoolVarP(&infoOpts.streams, "streams", "s", false, "Include the elementary streams of every title")
	infoCmd.Flags().IntVarP(&infoOpts.minLength, "min-length", "m", -1, "Hide titles shorter than this many seconds (default from config)")

	dumpCmd.Flags().StringVarP(&dumpOpts.output, "output", "o", "", "Output file (default: <playlist>.m2ts)")
	dumpCmd.Flags().StringVarP(&dumpOpts.playlist, "playlist", "p", "", "Playlist to dump, e.g. 00800 or 00800.mpls")
	dumpCmd.Flags().IntVarP(&dumpOpts.angle, "angle", "a", 0, "Angle to dump (1-based)")
	dumpCmd.Flags().IntVar(&dumpOpts.chapter, "chapter", 0, "Start at this chapter (1-based)")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bdplay: %s\n", err.Error())
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := bdplay.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	return logsetup.Setup(os.Stderr, level, isatty.IsTerminal(os.Stderr.Fd()))
}

func runInfo(cmd *cobra.Command, args []string) error {
	minLength := cfg.MinTitleLength
	if infoOpts.minLength >= 0 {
		minLength = infoOpts.minLength
	}
	res, err := bdplay.Inspect(cmd.Context(), bdplay.Options{
		Path:           args[0],
		MinTitleLength: minLength,
		Chapters:       infoOpts.chapters,
		Streams:        infoOpts.streams,
		Version:        version,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), res.Report)
	return err
}

func runDump(cmd *cobra.Command, args []string) error {
	path := args[0]
	if dumpOpts.playlist != "" {
		id, err := parsePlaylist(dumpOpts.playlist)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		path = bdplay.PlaylistURL(abs, id)
	}

	s, err := bdplay.Open(path, cfg, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if dumpOpts.angle > 0 && !s.SetAngle(dumpOpts.angle) {
		return fmt.Errorf("angle %d not available (title has %d)", dumpOpts.angle, s.GetAngleCount())
	}
	if dumpOpts.chapter > 0 && !s.SeekChapter(dumpOpts.chapter) {
		return fmt.Errorf("chapter %d not available (title has %d)", dumpOpts.chapter, s.GetChapterCount())
	}

	output := dumpOpts.output
	if output == "" {
		output = fmt.Sprintf("%05d.m2ts", s.Title().Playlist)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}

	var progress func(int64)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		total := s.GetLength()
		progress = func(done int64) {
			fmt.Fprintf(os.Stderr, "\r%s / %s", humanize.IBytes(uint64(done)), humanize.IBytes(uint64(total)))
		}
	}
	written, err := copyStream(cmd.Context(), f, s, progress)
	if progress != nil {
		fmt.Fprintln(os.Stderr)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", output, humanize.IBytes(uint64(written)))
	return nil
}

// blockReader is the part of the stream copyStream reads from.
type blockReader interface {
	io.Reader
	BlockSize() int
	Abort()
}

// copyStream copies r to w until EOF. Cancelling ctx aborts r.
func copyStream(ctx context.Context, w io.Writer, r blockReader, progress func(int64)) (int64, error) {
	stop := context.AfterFunc(ctx, r.Abort)
	defer stop()

	buf := make([]byte, 32*r.BlockSize())
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if progress != nil {
				progress(written)
			}
		}
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return written, ctxErr
			}
			return written, err
		}
	}
}

// parsePlaylist accepts "800", "00800", "00800.mpls" or a path to the
// playlist file.
func parsePlaylist(name string) (int, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".mpls") {
		base = strings.TrimSuffix(base, ext)
	}
	id, err := strconv.Atoi(base)
	if err != nil || id < 0 || id > 99999 {
		return 0, fmt.Errorf("invalid playlist %q", name)
	}
	return id, nil
}

func runSelfUpdate(ctx context.Context, out io.Writer) error {
	if version == "" || version == "dev" {
		return errors.New("self-update is only available in release builds")
	}

	if _, err := semver.ParseTolerant(version); err != nil {
		return fmt.Errorf("could not parse version: %w", err)
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug("s0up4200/go-bdplay"))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest version for %s/%s could not be found from github repository", "s0up4200/go-bdplay", version)
	}

	if latest.LessOrEqual(version) {
		fmt.Fprintf(out, "Current binary is the latest version: %s\n", version)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Fprintf(out, "Successfully updated to version: %s\n", latest.Version())
	return nil
}
