// Package store provides HelpRequest persistence adapters. Both adapters
// enforce the same contract: Save is a conditional write on the version read,
// so two racing read-modify-write cycles cannot silently lose a candidate
// transition — the loser gets ErrConflict and retries.
package store

import (
	"context"
	"fmt"
	"sync"

	"nearhelp/internal/helprequest"
	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
)

// Memory is an in-process HelpRequest store. It backs unit tests and doubles
// as the storage adapter for single-node development runs.
type Memory struct {
	mu       sync.RWMutex
	requests map[domain.HelpRequestID]helprequest.HelpRequest
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{requests: make(map[domain.HelpRequestID]helprequest.HelpRequest)}
}

// Add inserts a new aggregate at version 1.
func (m *Memory) Add(_ context.Context, hr helprequest.HelpRequest) (helprequest.HelpRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[hr.ID]; ok {
		return helprequest.HelpRequest{}, fmt.Errorf("%w: help request %s already exists", sentinel.ErrConflict, hr.ID)
	}
	hr.Version = 1
	m.requests[hr.ID] = hr
	return hr, nil
}

// FindByID loads the aggregate snapshot.
func (m *Memory) FindByID(_ context.Context, id domain.HelpRequestID) (helprequest.HelpRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hr, ok := m.requests[id]
	if !ok {
		return helprequest.HelpRequest{}, fmt.Errorf("%w: help request %s", sentinel.ErrNotFound, id)
	}
	return hr, nil
}

// Save writes the aggregate conditioned on the version it was loaded at.
func (m *Memory) Save(_ context.Context, hr helprequest.HelpRequest) (helprequest.HelpRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.requests[hr.ID]
	if !ok {
		return helprequest.HelpRequest{}, fmt.Errorf("%w: help request %s", sentinel.ErrNotFound, hr.ID)
	}
	if current.Version != hr.Version {
		return helprequest.HelpRequest{}, fmt.Errorf("%w: help request %s version %d is stale (current %d)",
			sentinel.ErrConflict, hr.ID, hr.Version, current.Version)
	}
	hr.Version++
	m.requests[hr.ID] = hr
	return hr, nil
}
