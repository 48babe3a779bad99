// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package merge

import (
	"errors"
	"testing"
	"time"
)

const (
	watchedCSV = `Date,Name,Year,Letterboxd URI
2024-01-01,Heat,1995,https://boxd.it/heat
2024-01-05,Alien,1979,https://boxd.it/alien
2024-02-10,Arrival,2016,https://boxd.it/arrival
`
	diaryCSV = `Date,Name,Year,Letterboxd URI,Rating,Rewatch,Tags,Watched Date
2024-03-01,Heat,1995,https://boxd.it/heat,4.5,Yes,"crime, la, crime",
`
)

func newTestMerger(t *testing.T) *Merger {
	t.Helper()
	m, err := NewMerger(nil)
	if err != nil {
		t.Fatalf("NewMerger() error = %v", err)
	}
	return m
}

func findRecord(t *testing.T, res *Result, key string) Row {
	t.Helper()
	for _, r := range res.Records {
		if r.Key == key {
			return r
		}
	}
	t.Fatalf("record %q not found", key)
	return Row{}
}

func TestMerge_DiaryOverridesHistoryFieldByField(t *testing.T) {
	m := newTestMerger(t)

	history := "Date,Name,Year,Letterboxd URI\n2024-01-01,Heat,1995,K\n"
	diary := "Name,Year,Letterboxd URI,Rating,Watched Date\nHeat,1995,K,4.5,\n"

	res, err := m.Merge([]File{
		{Name: "watched.csv", Data: []byte(history)},
		{Name: "diary.csv", Data: []byte(diary)},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	rec := res.Records[0]

	if rec.WatchedDate == nil || !rec.WatchedDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WatchedDate = %v, want inherited 2024-01-01", rec.WatchedDate)
	}
	if rec.Rating == nil || *rec.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5 from diary", rec.Rating)
	}
	if len(rec.Sources) != 2 || rec.Sources[0] != SourceHistory || rec.Sources[1] != SourceDiary {
		t.Errorf("Sources = %v, want [history diary]", rec.Sources)
	}
}

func TestMerge_PriorityOrder(t *testing.T) {
	m := newTestMerger(t)

	ratings := "Date,Name,Year,Letterboxd URI,Rating\n2024-05-01,Heat,1995,K,3\n"
	diary := "Date,Name,Year,Letterboxd URI,Rating\n2024-05-02,Heat,1995,K,5\n"

	// Input order must not matter; priority decides.
	res, err := m.Merge([]File{
		{Name: "diary.csv", Data: []byte(diary)},
		{Name: "ratings.csv", Data: []byte(ratings)},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got := *res.Records[0].Rating; got != 5 {
		t.Errorf("Rating = %v, want 5 (diary beats ratings)", got)
	}

	// Ratings rows carry no watched date; the diary falls back to Date.
	if res.Records[0].WatchedDate == nil {
		t.Error("expected diary Date fallback for watched date")
	}
}

func TestMerge_CustomPriority(t *testing.T) {
	m, err := NewMerger([]SourceKind{SourceDiary, SourceRatings, SourceHistory})
	if err != nil {
		t.Fatalf("NewMerger() error = %v", err)
	}

	ratings := "Letterboxd URI,Rating\nK,3\n"
	diary := "Letterboxd URI,Rating\nK,5\n"

	res, err := m.Merge([]File{
		{Name: "ratings.csv", Data: []byte(ratings)},
		{Name: "diary.csv", Data: []byte(diary)},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got := *res.Records[0].Rating; got != 3 {
		t.Errorf("Rating = %v, want 3 when ratings outrank diary", got)
	}
}

func TestMerge_FirstDuplicateWins(t *testing.T) {
	m := newTestMerger(t)

	data := "Date,Name,Year,Letterboxd URI\n2024-01-01,First,2000,K\n2024-02-02,Second,2001,K\n"

	for run := 0; run < 3; run++ {
		res, err := m.Merge([]File{{Name: "watched.csv", Data: []byte(data)}})
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if len(res.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(res.Records))
		}
		if res.Records[0].Title != "First" {
			t.Errorf("run %d: Title = %q, want First", run, res.Records[0].Title)
		}
		if res.DuplicateRows != 1 {
			t.Errorf("DuplicateRows = %d, want 1", res.DuplicateRows)
		}
	}
}

func TestMerge_DiaryFields(t *testing.T) {
	m := newTestMerger(t)

	res, err := m.Merge([]File{
		{Name: "watched.csv", Data: []byte(watchedCSV)},
		{Name: "diary.csv", Data: []byte(diaryCSV)},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(res.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(res.Records))
	}

	heat := findRecord(t, res, "https://boxd.it/heat")
	if heat.Rewatch == nil || !*heat.Rewatch {
		t.Error("expected rewatch from diary")
	}
	if len(heat.Tags) != 2 || heat.Tags[0] != "crime" || heat.Tags[1] != "la" {
		t.Errorf("Tags = %v, want [crime la]", heat.Tags)
	}
	// Diary Watched Date is empty, Date is the log date and wins over history.
	if heat.WatchedDate == nil || heat.WatchedDate.Month() != time.March {
		t.Errorf("WatchedDate = %v, want diary date", heat.WatchedDate)
	}

	alien := findRecord(t, res, "https://boxd.it/alien")
	if alien.Rating != nil {
		t.Errorf("alien should have no rating, got %v", *alien.Rating)
	}

	// Output order follows first appearance.
	if res.Records[0].Key != "https://boxd.it/heat" || res.Records[2].Key != "https://boxd.it/arrival" {
		t.Errorf("unexpected order: %s, %s", res.Records[0].Key, res.Records[2].Key)
	}
}

func TestMerge_BadValuesBecomeNil(t *testing.T) {
	m := newTestMerger(t)

	data := "Date,Name,Year,Letterboxd URI,Rating\nnot-a-date,Heat,19x5,K,eleven\n"
	res, err := m.Merge([]File{{Name: "diary.csv", Data: []byte(data)}})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	rec := res.Records[0]
	if rec.WatchedDate != nil || rec.Year != nil || rec.Rating != nil {
		t.Errorf("expected nil fields, got date=%v year=%v rating=%v", rec.WatchedDate, rec.Year, rec.Rating)
	}
	if rec.Title != "Heat" {
		t.Errorf("Title = %q, want Heat", rec.Title)
	}
}

func TestMerge_SkipsRowsWithoutKey(t *testing.T) {
	m := newTestMerger(t)

	data := "Name,Letterboxd URI\nHeat,\nAlien,K2\n"
	res, err := m.Merge([]File{{Name: "watched.csv", Data: []byte(data)}})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(res.Records) != 1 || res.SkippedRows != 1 {
		t.Errorf("records=%d skipped=%d, want 1 and 1", len(res.Records), res.SkippedRows)
	}
}

func TestMerge_Errors(t *testing.T) {
	m := newTestMerger(t)
	valid := File{Name: "watched.csv", Data: []byte(watchedCSV)}

	tests := []struct {
		name    string
		files   []File
		wantErr error
		file    string
	}{
		{
			name:    "no files",
			files:   nil,
			wantErr: ErrNoFiles,
		},
		{
			name:    "unrecognized filename",
			files:   []File{valid, {Name: "watchlist.csv", Data: []byte(watchedCSV)}},
			wantErr: ErrUnrecognizedFile,
			file:    "watchlist.csv",
		},
		{
			name:    "missing key column",
			files:   []File{valid, {Name: "ratings.csv", Data: []byte("Name,Year,Rating\nHeat,1995,4\n")}},
			wantErr: ErrMissingColumn,
			file:    "ratings.csv",
		},
		{
			name:    "semicolon delimited",
			files:   []File{{Name: "diary.csv", Data: []byte("Name;Letterboxd URI\nHeat;K\n")}},
			wantErr: ErrWrongDelimiter,
			file:    "diary.csv",
		},
		{
			name:    "invalid utf8",
			files:   []File{{Name: "diary.csv", Data: []byte("Name,Letterboxd URI\n\xff\xfe,K\n")}},
			wantErr: ErrInvalidEncoding,
			file:    "diary.csv",
		},
		{
			name:    "empty file",
			files:   []File{{Name: "diary.csv", Data: []byte("  \n")}},
			wantErr: ErrEmptyFile,
			file:    "diary.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Merge(tt.files)
			if res != nil {
				t.Error("expected nil result on error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if !IsValidationError(err) {
				t.Errorf("IsValidationError(%v) = false", err)
			}

			var ve *ValidationError
			var pe *ParseError
			switch {
			case errors.As(err, &ve):
				if ve.File != tt.file {
					t.Errorf("File = %q, want %q", ve.File, tt.file)
				}
			case errors.As(err, &pe):
				if pe.File != tt.file {
					t.Errorf("File = %q, want %q", pe.File, tt.file)
				}
			}
		})
	}
}

func TestMerge_MalformedQuotesIsParseError(t *testing.T) {
	m := newTestMerger(t)

	data := "Name,Letterboxd URI\n\"Heat,K\nAlien,K2\n"
	_, err := m.Merge([]File{{Name: "watched.csv", Data: []byte(data)}})

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.File != "watched.csv" {
		t.Errorf("File = %q, want watched.csv", pe.File)
	}
}

func TestMerge_BOMAndHeaderCase(t *testing.T) {
	m := newTestMerger(t)

	data := "\xEF\xBB\xBF NAME , letterboxd uri ,YEAR\nHeat,K,1995\n"
	res, err := m.Merge([]File{{Name: "Watched.CSV", Data: []byte(data)}})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if res.Records[0].Title != "Heat" || res.Records[0].Year == nil || *res.Records[0].Year != 1995 {
		t.Errorf("unexpected record: %+v", res.Records[0])
	}
}

func TestRow_ToMovieRecord(t *testing.T) {
	rewatch := true
	row := Row{Key: "K", Title: "Heat", Rewatch: &rewatch}

	rec := row.ToMovieRecord("s1")
	if rec.SessionID != "s1" || rec.Key != "K" || !rec.Rewatch {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Tags == nil {
		t.Error("Tags should be an empty slice, not nil")
	}
	if rec.EnrichmentApplied {
		t.Error("new records must start unenriched")
	}
}
