// Package report renders disc and title summaries for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/s0up4200/go-bdplay/internal/bdnav"
	"github.com/s0up4200/go-bdplay/internal/util"
)

type Options struct {
	Chapters bool
	Streams  bool
	Version  string
}

// Write prints the disc header followed by a table of titles, longest
// first as given.
func Write(w io.Writer, info bdnav.DiscInfo, titles []*bdnav.TitleInfo, opts Options) error {
	var b strings.Builder
	writeHeader(&b, info, opts.Version)

	if len(titles) == 0 {
		b.WriteString("No playable titles.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	rows := make([][]string, 0, len(titles))
	for i, ti := range titles {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			playlistName(ti.Playlist),
			util.FormatTicks(ti.Duration, false),
			humanize.IBytes(ti.Size()),
			fmt.Sprint(len(ti.Clips)),
			fmt.Sprint(ti.AngleCount),
			fmt.Sprint(len(ti.Chapters)),
		})
	}
	b.WriteString(renderTable(
		[]string{"#", "Playlist", "Length", "Size", "Clips", "Angles", "Chapters"},
		rows,
		[]text.Align{text.AlignRight, text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight},
	))
	b.WriteString("\n")

	for _, ti := range titles {
		if opts.Streams {
			writeStreams(&b, ti)
		}
		if opts.Chapters {
			writeChapters(&b, ti)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeHeader(b *strings.Builder, info bdnav.DiscInfo, version string) {
	if info.DiscName != "" {
		fmt.Fprintf(b, "%-16s%s\n", "Disc Title:", info.DiscName)
	}
	fmt.Fprintf(b, "%-16s%s\n", "Disc Label:", info.VolumeLabel)
	fmt.Fprintf(b, "%-16s%s\n", "Protection:", protection(info))

	var extra []string
	if info.UHD {
		extra = append(extra, "Ultra HD")
	}
	if info.BDJDetected {
		extra = append(extra, "BD-Java")
	}
	if info.FirstPlaySupported {
		extra = append(extra, "First Play")
	}
	if info.TopMenuSupported {
		extra = append(extra, "Top Menu")
	}
	if len(extra) > 0 {
		fmt.Fprintf(b, "%-16s%s\n", "Extras:", strings.Join(extra, ", "))
	}
	fmt.Fprintf(b, "%-16s%d HDMV, %d BD-J\n", "Titles:", info.NumHDMVTitles, info.NumBDJTitles)
	fmt.Fprintf(b, "%-16s%d\n", "Playlists:", info.NumPlaylists)
	if version != "" {
		fmt.Fprintf(b, "%-16s%s\n", "bdplay:", version)
	}
	b.WriteString("\n")
}

func protection(info bdnav.DiscInfo) string {
	switch {
	case info.BDPlusDetected:
		return "BD+"
	case info.AACSDetected && info.UHD:
		return "AACS2"
	case info.AACSDetected:
		return "AACS"
	default:
		return "None"
	}
}

func playlistName(id int) string {
	return fmt.Sprintf("%05d.MPLS", id)
}

func writeChapters(b *strings.Builder, ti *bdnav.TitleInfo) {
	if len(ti.Chapters) == 0 {
		return
	}
	fmt.Fprintf(b, "CHAPTERS: %s\n\n", playlistName(ti.Playlist))
	rows := make([][]string, 0, len(ti.Chapters))
	for _, ch := range ti.Chapters {
		clip := ""
		if ch.ClipRef < len(ti.Clips) {
			clip = ti.Clips[ch.ClipRef].Name
		}
		rows = append(rows, []string{
			fmt.Sprint(ch.Index + 1),
			util.FormatTicks(ch.Start, true),
			util.FormatTicks(ch.Duration, true),
			humanize.Comma(int64(ch.Offset)),
			clip,
		})
	}
	b.WriteString(renderTable(
		[]string{"Number", "Time In", "Length", "Offset", "Clip"},
		rows,
		[]text.Align{text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignLeft},
	))
	b.WriteString("\n")
}

// writeStreams lists the streams of the first clip.
func writeStreams(b *strings.Builder, ti *bdnav.TitleInfo) {
	if len(ti.Clips) == 0 || len(ti.Clips[0].Streams) == 0 {
		return
	}
	fmt.Fprintf(b, "STREAMS: %s\n\n", playlistName(ti.Playlist))
	rows := make([][]string, 0, len(ti.Clips[0].Streams))
	for _, st := range ti.Clips[0].Streams {
		rows = append(rows, []string{
			fmt.Sprintf("0x%04X", st.PID),
			st.CodecShortName(),
			st.LanguageName,
			st.Description(),
		})
	}
	b.WriteString(renderTable(
		[]string{"PID", "Codec", "Language", "Description"},
		rows,
		nil,
	))
	b.WriteString("\n")
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render() + "\n"
}
