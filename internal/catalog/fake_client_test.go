// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package catalog

import (
	"context"
	"sync"

	"github.com/tomtom215/cinelog/internal/models"
)

// fakeClient is a scripted Client that counts calls
type fakeClient struct {
	mu           sync.Mutex
	searchCalls  int
	detailsCalls int
	searchID     int
	searchErr    error
	details      *models.Enrichment
	detailsErr   error
}

func (f *fakeClient) Search(ctx context.Context, title string, year *int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return f.searchID, f.searchErr
}

func (f *fakeClient) FetchDetails(ctx context.Context, id int) (*models.Enrichment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailsCalls++
	return f.details, f.detailsErr
}

func (f *fakeClient) Enrich(ctx context.Context, title string, year *int) (*models.Enrichment, error) {
	return enrich(ctx, f, title, year)
}

func (f *fakeClient) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.detailsCalls
}
