package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/Jekudy/MuSync/internal/shared"
)

// ExportToCSV converts a report's track results to CSV with columns:
// SourceID, Title, Artists, Album, Duration, Status, TargetURI, Confidence, Reason
func ExportToCSV(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"SourceID", "Title", "Artists", "Album", "Duration", "Status", "TargetURI", "Confidence", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range report.Tracks {
		record := []string{
			track.SourceID,
			track.Title,
			track.Artists,
			track.Album,
			strconv.Itoa(track.DurationMS),
			track.Status,
			track.TargetURI,
			strconv.FormatFloat(track.Confidence, 'f', 2, 64),
			track.Reason,
		}
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

// ExportToMarkdown converts a report to Markdown with a per-playlist
// summary table and a track listing.
func ExportToMarkdown(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Transfer Report %s\n\n", report.Header.JobID))
	buf.WriteString(fmt.Sprintf("**Generated**: %s\n", report.Header.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	buf.WriteString(fmt.Sprintf("**Snapshot**: `%s`\n", report.Header.SnapshotHash))
	if report.Header.DryRun {
		buf.WriteString("**Mode**: dry run\n")
	}
	buf.WriteString("\n## Playlists\n\n")

	buf.WriteString("| Playlist | Tracks | Matched | Not Found | Added | Duplicates | Failed |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for _, p := range report.Playlists {
		buf.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %d |\n",
			p.PlaylistName, p.TotalTracks, p.MatchedTracks, p.NotFoundTracks,
			p.AddedTracks, p.DuplicateTracks, p.FailedTracks))
	}
	if len(report.Playlists) > 1 {
		t := report.Totals()
		buf.WriteString(fmt.Sprintf("| **%s** | %d | %d | %d | %d | %d | %d |\n",
			t.PlaylistName, t.TotalTracks, t.MatchedTracks, t.NotFoundTracks,
			t.AddedTracks, t.DuplicateTracks, t.FailedTracks))
	}

	if len(report.Tracks) > 0 {
		buf.WriteString("\n## Tracks\n\n")
		for i, track := range report.Tracks {
			duration := shared.FormatDuration(track.DurationMS)
			marker := "✗"
			if track.Status == StatusMatched {
				marker = "✓"
			}
			albumPart := ""
			if track.Album != "" {
				albumPart = fmt.Sprintf(" (%s)", track.Album)
			}
			buf.WriteString(fmt.Sprintf("%d. %s %s - %s%s [%s] %s\n",
				i+1, marker, track.Artists, track.Title, albumPart, duration, track.Status))
		}
	}

	for _, p := range report.Playlists {
		for _, e := range p.Errors {
			buf.WriteString(fmt.Sprintf("\n> %s: %s\n", p.PlaylistName, e))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a report to plain text.
func ExportToText(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Job: %s\n", report.Header.JobID))
	if report.Header.DryRun {
		buf.WriteString("Mode: dry run\n")
	}
	buf.WriteString("\n")

	for _, p := range report.Playlists {
		buf.WriteString(fmt.Sprintf("Playlist: %s\n", p.PlaylistName))
		buf.WriteString(fmt.Sprintf("  Matched %d/%d, added %d, duplicates %d, failed %d\n",
			p.MatchedTracks, p.TotalTracks, p.AddedTracks, p.DuplicateTracks, p.FailedTracks))
		for _, e := range p.Errors {
			buf.WriteString(fmt.Sprintf("  Error: %s\n", e))
		}
	}

	if len(report.Tracks) > 0 {
		buf.WriteString("\nTracks:\n")
		for i, track := range report.Tracks {
			buf.WriteString(fmt.Sprintf("%d. [%s] %s - %s\n", i+1, track.Status, track.Artists, track.Title))
		}
	}

	return buf.Bytes(), nil
}

// WriteReport writes the report in the requested format.
//
// Format is one of "json", "csv", "markdown", "text"; the path defaults
// to report_{jobID}.{ext} in the working directory.
func WriteReport(report *Report, format, path string) (string, error) {
	var data []byte
	var err error
	var ext string

	switch format {
	case "json", "":
		data, err = report.ToJSON()
		ext = "json"
	case "csv":
		data, err = ExportToCSV(report)
		ext = "csv"
	case "markdown", "md":
		data, err = ExportToMarkdown(report)
		ext = "md"
	case "text", "txt":
		data, err = ExportToText(report)
		ext = "txt"
	default:
		return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if path == "" {
		path = fmt.Sprintf("report_%s.%s", report.Header.JobID, ext)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}
