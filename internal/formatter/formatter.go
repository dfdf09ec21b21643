// package formatter renders tracks and playlists as text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// Format is an output format name.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat accepts text, txt, markdown, md, csv and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Ext returns the file extension used for f.
func (f Format) Ext() string {
	switch f {
	case Markdown:
		return ".md"
	case CSV:
		return ".csv"
	case JSON:
		return ".json"
	default:
		return ".txt"
	}
}

func marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// WriteJSON writes v as JSON followed by a newline.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	data, err := marshal(v, pretty)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func trackLine(i int, t models.Track) string {
	album := ""
	if t.Album.Name != "" {
		album = fmt.Sprintf(" (%s)", t.Album.Name)
	}
	return fmt.Sprintf("%d. %s - %s%s [%s]", i+1, t.ArtistNames(), t.Name, album, shared.FormatDuration(t.DurationMS))
}

// Tracks writes a numbered track list, or JSON/CSV when asked.
func Tracks(w io.Writer, tracks []models.Track, f Format) error {
	switch f {
	case JSON:
		return WriteJSON(w, tracks, true)
	case CSV:
		data, err := TracksCSV(tracks)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	if len(tracks) == 0 {
		_, err := fmt.Fprintln(w, "No tracks.")
		return err
	}
	for i, t := range tracks {
		line := trackLine(i, t)
		if f == Markdown {
			line = strings.Replace(line, t.Name, "**"+t.Name+"**", 1)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Playlists writes one playlist per line with its id and track total.
func Playlists(w io.Writer, playlists []models.Playlist, f Format) error {
	if f == JSON {
		return WriteJSON(w, playlists, true)
	}

	if len(playlists) == 0 {
		_, err := fmt.Fprintln(w, "No playlists.")
		return err
	}
	for _, p := range playlists {
		var err error
		if f == Markdown {
			_, err = fmt.Fprintf(w, "- **%s** (%d tracks) `%s`\n", p.Name, p.TrackCount, p.ID)
		} else {
			_, err = fmt.Fprintf(w, "%-24s %-40s %4d tracks  %s\n", p.ID, p.Name, p.TrackCount, shared.VisibilityString(p.Public))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Albums writes one album per line.
func Albums(w io.Writer, albums []models.Album, f Format) error {
	if f == JSON {
		return WriteJSON(w, albums, true)
	}
	if len(albums) == 0 {
		_, err := fmt.Fprintln(w, "No albums.")
		return err
	}
	for _, a := range albums {
		names := make([]string, 0, len(a.Artists))
		for _, ar := range a.Artists {
			names = append(names, ar.Name)
		}
		if _, err := fmt.Fprintf(w, "%-24s %s - %s (%s)\n", a.ID, strings.Join(names, ", "), a.Name, a.ReleaseDate); err != nil {
			return err
		}
	}
	return nil
}

// TracksCSV renders tracks with columns ID, URI, Title, Artists, Album, Duration.
func TracksCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "URI", "Title", "Artists", "Album", "Duration"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, t := range tracks {
		record := []string{t.ID, t.URI, t.Name, t.ArtistNames(), t.Album.Name, strconv.Itoa(t.DurationMS / 1000)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders a playlist with an optional cover image reference.
func ExportToMarkdown(export *models.PlaylistExport, imageFilename string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&buf, "**Visibility**: %s\n\n", shared.VisibilityString(export.Playlist.Public))

	buf.WriteString("## Tracks\n\n")
	for i, t := range export.Tracks {
		buf.WriteString(trackLine(i, t) + "\n")
	}
	return buf.Bytes()
}

// ExportToText renders a playlist header followed by its tracks.
func ExportToText(export *models.PlaylistExport) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))
	for i, t := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, t.ArtistNames(), t.Name)
	}
	return buf.Bytes()
}

// Export renders export in f.
func Export(export *models.PlaylistExport, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return TracksCSV(export.Tracks)
	case JSON:
		return marshal(export, true)
	case Markdown:
		return ExportToMarkdown(export, ""), nil
	default:
		return ExportToText(export), nil
	}
}

// DownloadImage fetches url with client and returns the body.
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty image URL", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// ExportResult lists the files written by [WriteExport].
type ExportResult struct {
	Files      []string `json:"files"`
	CoverImage string   `json:"cover_image,omitempty"`
}

// WriteExport writes export to path in f. An empty path defaults to the
// playlist id plus the format extension. Markdown exports become a directory
// holding README.md and, when the playlist has artwork, cover.jpg.
func WriteExport(export *models.PlaylistExport, f Format, path string, client *http.Client) (*ExportResult, error) {
	if f == Markdown {
		return writeMarkdownExport(export, path, client)
	}
	if path == "" {
		path = export.Playlist.ID + f.Ext()
	}

	data, err := Export(export, f)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return &ExportResult{Files: []string{path}}, nil
}

func writeMarkdownExport(export *models.PlaylistExport, dir string, client *http.Client) (*ExportResult, error) {
	if dir == "" {
		dir = export.Playlist.ID
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &ExportResult{Files: []string{}}

	cover := ""
	if len(export.Playlist.Images) > 0 {
		if data, err := DownloadImage(client, export.Playlist.Images[0].URL); err == nil {
			path := filepath.Join(dir, "cover.jpg")
			if err := os.WriteFile(path, data, 0644); err == nil {
				cover = "cover.jpg"
				result.CoverImage = path
				result.Files = append(result.Files, path)
			}
		}
	}

	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, ExportToMarkdown(export, cover), 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, readme)
	return result, nil
}
