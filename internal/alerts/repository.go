// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"
	"sort"
	"sync"

	"github.com/elevow/table-sub009/internal/models"
)

// Repository is the durable alert registry.
//
// Absence is never an error: Get and UpdateStatus return nil, nil for an
// unknown id. Alerts come back newest first with nil Involved and Evidence
// normalized to empty slices.
type Repository interface {
	// Create inserts a. Creating an id that already exists is a no-op, so
	// replays cannot duplicate alerts.
	Create(ctx context.Context, a models.AdminAlert) error

	// List returns every alert ordered by CreatedAt descending, ties by id.
	List(ctx context.Context) ([]models.AdminAlert, error)

	// Get returns the alert with the given id.
	Get(ctx context.Context, id string) (*models.AdminAlert, error)

	// UpdateStatus sets the status and UpdatedAt of an existing alert. It
	// never inserts.
	UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt int64) (*models.AdminAlert, error)
}

// sortNewestFirst orders alerts by CreatedAt descending, then by id.
func sortNewestFirst(list []models.AdminAlert) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt > list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})
}

// MemoryRepository is a Repository held in process memory. Fail makes every
// call return an error, which lets tests simulate an unreachable database.
type MemoryRepository struct {
	mu     sync.Mutex
	alerts map[string]models.AdminAlert
	err    error
	calls  map[string]int
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		alerts: make(map[string]models.AdminAlert),
		calls:  make(map[string]int),
	}
}

// Fail makes subsequent calls return err. Fail(nil) restores normal operation.
func (m *MemoryRepository) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times op was invoked, failed calls included.
func (m *MemoryRepository) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Len returns the number of stored alerts.
func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

func (m *MemoryRepository) enter(op string) error {
	m.calls[op]++
	return m.err
}

func (m *MemoryRepository) Create(_ context.Context, a models.AdminAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("create"); err != nil {
		return err
	}
	if _, exists := m.alerts[a.ID]; exists {
		return nil
	}
	stored := a.Clone()
	stored.Normalize()
	m.alerts[a.ID] = stored
	return nil
}

func (m *MemoryRepository) List(_ context.Context) ([]models.AdminAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("list"); err != nil {
		return nil, err
	}
	list := make([]models.AdminAlert, 0, len(m.alerts))
	for _, a := range m.alerts {
		list = append(list, a.Clone())
	}
	sortNewestFirst(list)
	return list, nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*models.AdminAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("get"); err != nil {
		return nil, err
	}
	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	c := a.Clone()
	return &c, nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id string, status models.Status, updatedAt int64) (*models.AdminAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("update_status"); err != nil {
		return nil, err
	}
	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	a.Status = status
	a.UpdatedAt = max(updatedAt, a.CreatedAt)
	m.alerts[id] = a
	c := a.Clone()
	return &c, nil
}
