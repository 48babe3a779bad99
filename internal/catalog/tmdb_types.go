// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package catalog

import (
	"sort"
	"strings"

	"github.com/tomtom215/cinelog/internal/models"
)

// searchResponse is the /search/movie result page
type searchResponse struct {
	Page    int `json:"page"`
	Results []struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		ReleaseDate string  `json:"release_date"`
		Popularity  float64 `json:"popularity"`
	} `json:"results"`
	TotalResults int `json:"total_results"`
}

// movieDetails is /movie/{id} with credits appended
type movieDetails struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	Runtime      *int    `json:"runtime"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Genres       []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
	Credits struct {
		Cast []struct {
			Name  string `json:"name"`
			Order int    `json:"order"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

// normalize maps the catalog response onto the stored enrichment fields.
func (d *movieDetails) normalize(imageBaseURL string, topDirectors, topCast int) *models.Enrichment {
	e := &models.Enrichment{
		Genres:    []string{},
		Directors: []string{},
		Cast:      []string{},
	}

	if d.ID > 0 {
		id := d.ID
		e.ExternalID = &id
	}

	for _, g := range d.Genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			e.Genres = append(e.Genres, name)
		}
	}

	seen := make(map[string]bool)
	for _, member := range d.Credits.Crew {
		if member.Job != "Director" || member.Name == "" || seen[member.Name] {
			continue
		}
		if topDirectors > 0 && len(e.Directors) >= topDirectors {
			break
		}
		seen[member.Name] = true
		e.Directors = append(e.Directors, member.Name)
	}

	cast := d.Credits.Cast
	sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })
	for _, member := range cast {
		if member.Name == "" {
			continue
		}
		if topCast > 0 && len(e.Cast) >= topCast {
			break
		}
		e.Cast = append(e.Cast, member.Name)
	}

	if d.Runtime != nil && *d.Runtime > 0 {
		runtime := *d.Runtime
		e.RuntimeMinutes = &runtime
	}
	if overview := strings.TrimSpace(d.Overview); overview != "" {
		e.Synopsis = &overview
	}
	if d.VoteCount > 0 || d.VoteAverage > 0 {
		score := d.VoteAverage
		e.ExternalRating = &score
	}
	e.PosterURL = imageURL(imageBaseURL, d.PosterPath)
	e.BackdropURL = imageURL(imageBaseURL, d.BackdropPath)
	return e
}

// imageURL joins a catalog image path to the configured image base.
func imageURL(base, path string) *string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return &path
	}
	full := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	return &full
}
