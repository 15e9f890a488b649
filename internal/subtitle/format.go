package subtitle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/asticode/go-astisub"
)

// Format identifies a subtitle container.
type Format string

const (
	FormatSRT    Format = "srt"
	FormatWebVTT Format = "vtt"
	FormatSSA    Format = "ssa"
	FormatTTML   Format = "ttml"
)

var ErrUnsupportedFormat = errors.New("unsupported subtitle format")

// ParseFormat accepts a format name or file extension.
func ParseFormat(value string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), ".") {
	case "srt", "":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatWebVTT, nil
	case "ssa", "ass":
		return FormatSSA, nil
	case "ttml", "dfxp":
		return FormatTTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// FormatForPath infers the format from the file extension.
func FormatForPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Extension returns the canonical file extension, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type used when serving the format.
func (f Format) ContentType() string {
	switch f {
	case FormatWebVTT:
		return "text/vtt; charset=utf-8"
	case FormatTTML:
		return "application/ttml+xml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Decode parses r as format f.
func Decode(r io.Reader, f Format) ([]Cue, error) {
	var (
		subs *astisub.Subtitles
		err  error
	)
	switch f {
	case FormatSRT:
		subs, err = astisub.ReadFromSRT(r)
	case FormatWebVTT:
		subs, err = astisub.ReadFromWebVTT(r)
	case FormatSSA:
		subs, err = astisub.ReadFromSSA(r)
	case FormatTTML:
		subs, err = astisub.ReadFromTTML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f, err)
	}
	return fromItems(subs.Items), nil
}

// Encode renders cues as format f. An empty cue list produces an empty
// document.
func Encode(w io.Writer, cues []Cue, f Format) error {
	if len(cues) == 0 {
		if f == FormatWebVTT {
			_, err := io.WriteString(w, "WEBVTT\n")
			return err
		}
		return nil
	}
	subs := astisub.NewSubtitles()
	subs.Items = toItems(cues)

	var err error
	switch f {
	case FormatSRT:
		err = subs.WriteToSRT(w)
	case FormatWebVTT:
		err = subs.WriteToWebVTT(w)
	case FormatSSA:
		err = subs.WriteToSSA(w)
	case FormatTTML:
		err = subs.WriteToTTML(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", f, err)
	}
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(cues []Cue, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, cues, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fromItems(items []*astisub.Item) []Cue {
	cues := make([]Cue, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		cue := Cue{Index: len(cues) + 1, Start: item.StartAt, End: item.EndAt}
		for _, line := range item.Lines {
			parts := make([]string, 0, len(line.Items))
			for _, li := range line.Items {
				if text := strings.TrimSpace(li.Text); text != "" {
					parts = append(parts, text)
				}
			}
			if text := strings.Join(parts, " "); text != "" {
				cue.Lines = append(cue.Lines, text)
			}
		}
		cues = append(cues, cue)
	}
	return cues
}

func toItems(cues []Cue) []*astisub.Item {
	items := make([]*astisub.Item, 0, len(cues))
	for _, cue := range cues {
		item := &astisub.Item{StartAt: cue.Start, EndAt: cue.End}
		for _, line := range cue.Lines {
			item.Lines = append(item.Lines, astisub.Line{Items: []astisub.LineItem{{Text: line}}})
		}
		items = append(items, item)
	}
	return items
}
