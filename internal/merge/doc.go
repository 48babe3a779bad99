// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

/*
Package merge turns the CSV files of a film-diary export into one canonical
record per film.

Three source kinds are recognized by filename:

  - watched*.csv: primary watch history (title, year, date watched)
  - ratings*.csv: ratings only
  - diary*.csv, reviews*.csv: diary entries (watched date, rating, rewatch,
    tags, review)

Every kind must carry the film URI column, which is the natural key. Other
columns are optional; a file may supply any subset of them.

# Merge rules

Within one kind, the first row for a key wins. Across kinds the sources are
folded in priority order (history, then ratings, then diary by default), and
a non-empty field from a later source overrides the earlier value while empty
fields are inherited. A film can therefore take its watched date from the
history file and its rating and review from the diary.

Unparseable dates, years and ratings become nil instead of failing the row.
A missing key column, a wrong delimiter or an unrecognized filename fails the
whole batch; nothing is returned for persistence.

# Usage

	m, err := merge.NewMerger(merge.DefaultPriority())
	result, err := m.Merge([]merge.File{
	    {Name: "watched.csv", Data: watched},
	    {Name: "diary.csv", Data: diary},
	})
	if merge.IsValidationError(err) {
	    // report to the uploader
	}
*/
package merge
