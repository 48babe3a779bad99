// Cinelog - Film Diary Import and Catalog Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinelog

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// mockService is a suture.Service whose failures are scripted.
type mockService struct {
	name       string
	failFirst  int32
	startCount atomic.Int32
	stopCount  atomic.Int32
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

// failTimes makes the first n calls to Serve fail immediately.
func (m *mockService) failTimes(n int32) *mockService {
	m.failFirst = n
	return m
}

func (m *mockService) Serve(ctx context.Context) error {
	n := m.startCount.Add(1)
	defer m.stopCount.Add(1)

	if n <= m.failFirst {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string {
	return m.name
}
