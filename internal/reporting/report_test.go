package reporting

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/shared"
)

func sampleReport() *Report {
	report := NewReport("job-1", "abc123", false)
	report.AddTrack(
		models.Track{SourceID: "s1", Title: "Bohemian Rhapsody", Artists: []string{"Queen"}, Album: "A Night at the Opera", DurationMS: 354000},
		models.MatchResult{URI: "spotify:track:1", Confidence: 1.0, Reason: models.ReasonISRCExact},
	)
	report.AddTrack(
		models.Track{SourceID: "s2", Title: "Obscure B-Side", Artists: []string{"Nobody"}, DurationMS: 120000},
		models.MatchResult{Confidence: 0.3, Reason: models.ReasonNotFound},
	)
	report.AddTrack(
		models.Track{SourceID: "s3", Title: "Broken", Artists: []string{"Artist"}, DurationMS: 90000},
		models.MatchResult{Reason: models.ReasonError},
	)
	report.AddPlaylist(&models.TransferResult{
		PlaylistID:    "p1",
		PlaylistName:  "Road Trip",
		TotalTracks:   3,
		MatchedTracks: 1,
		AddedTracks:   1,
		FailedTracks:  1,
		Errors:        []string{"batch 0 failed"},
	})
	return report
}

func TestAddTrackStatuses(t *testing.T) {
	report := sampleReport()

	want := []string{StatusMatched, StatusNotFound, StatusFailed}
	if len(report.Tracks) != len(want) {
		t.Fatalf("expected %d tracks, got %d", len(want), len(report.Tracks))
	}
	for i, status := range want {
		if report.Tracks[i].Status != status {
			t.Errorf("track %d: expected status %q, got %q", i, status, report.Tracks[i].Status)
		}
	}
	if report.Tracks[0].Artists != "Queen" {
		t.Errorf("expected joined artists, got %q", report.Tracks[0].Artists)
	}
	if report.Tracks[0].TargetURI != "spotify:track:1" {
		t.Errorf("expected target uri, got %q", report.Tracks[0].TargetURI)
	}
}

func TestTotals(t *testing.T) {
	report := sampleReport()
	report.AddPlaylist(&models.TransferResult{
		PlaylistName:  "Likes",
		TotalTracks:   10,
		MatchedTracks: 9,
		AddedTracks:   9,
	})

	totals := report.Totals()
	if totals.TotalTracks != 13 {
		t.Errorf("expected 13 total tracks, got %d", totals.TotalTracks)
	}
	if totals.MatchedTracks != 10 {
		t.Errorf("expected 10 matched, got %d", totals.MatchedTracks)
	}
	if totals.AddedTracks != 10 {
		t.Errorf("expected 10 added, got %d", totals.AddedTracks)
	}
	if totals.FailedTracks != 1 {
		t.Errorf("expected 1 failed, got %d", totals.FailedTracks)
	}
}

func TestExportToCSV(t *testing.T) {
	data, err := ExportToCSV(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
	if records[0][0] != "SourceID" || records[0][7] != "Confidence" {
		t.Errorf("unexpected header row: %v", records[0])
	}
	if records[1][7] != "1.00" {
		t.Errorf("expected confidence 1.00, got %q", records[1][7])
	}
	if records[2][5] != StatusNotFound {
		t.Errorf("expected not_found status, got %q", records[2][5])
	}
}

func TestExportToMarkdown(t *testing.T) {
	data, err := ExportToMarkdown(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(data)

	for _, fragment := range []string{
		"# Transfer Report job-1",
		"| Road Trip | 3 | 1 |",
		"✓ Queen - Bohemian Rhapsody (A Night at the Opera)",
		"✗ Nobody - Obscure B-Side",
		"> Road Trip: batch 0 failed",
	} {
		if !strings.Contains(out, fragment) {
			t.Errorf("markdown output missing %q", fragment)
		}
	}
}

func TestWriteReport(t *testing.T) {
	t.Run("writes each format", func(t *testing.T) {
		dir := t.TempDir()
		for format, ext := range map[string]string{
			"json":     "json",
			"csv":      "csv",
			"markdown": "md",
			"text":     "txt",
		} {
			path := filepath.Join(dir, "report."+ext)
			written, err := WriteReport(sampleReport(), format, path)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", format, err)
			}
			if written != path {
				t.Errorf("%s: expected path %q, got %q", format, path, written)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("%s: report file not written: %v", format, err)
			}
		}
	})

	t.Run("json output round-trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.json")
		if _, err := WriteReport(sampleReport(), "json", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var decoded Report
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON report: %v", err)
		}
		if decoded.Header.JobID != "job-1" {
			t.Errorf("expected job-1, got %q", decoded.Header.JobID)
		}
		if len(decoded.Tracks) != 3 {
			t.Errorf("expected 3 tracks, got %d", len(decoded.Tracks))
		}
	})

	t.Run("unknown format fails", func(t *testing.T) {
		_, err := WriteReport(sampleReport(), "xml", "")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
