package employee

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aanand-mishra/employees-app/internal/storage"
	"github.com/aanand-mishra/employees-app/internal/types"
)

// memStore is a map-backed storage.Storage for service tests.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	employees map[int64]types.Employee

	// skipNameCheck makes EmployeeNameExists always report false, to
	// simulate losing the check-then-insert race.
	skipNameCheck bool
	listErr       error
}

func newMemStore() *memStore {
	return &memStore{employees: map[int64]types.Employee{}}
}

func (m *memStore) nameTaken(name string, excludeID int64) bool {
	for id, e := range m.employees {
		if id != excludeID && strings.ToLower(e.Name) == strings.ToLower(name) {
			return true
		}
	}
	return false
}

func (m *memStore) CreateEmployee(_ context.Context, e types.Employee) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTaken(e.Name, 0) {
		return 0, fmt.Errorf("CreateEmployee: %w", storage.ErrDuplicateName)
	}
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.employees[e.ID] = e
	return e.ID, nil
}

func (m *memStore) GetEmployeeByID(_ context.Context, id int64) (types.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.employees[id]
	if !ok {
		return types.Employee{}, storage.ErrNotFound
	}
	return e, nil
}

func (m *memStore) ListEmployees(_ context.Context, q types.ListQuery) ([]types.Employee, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, 0, m.listErr
	}

	all := make([]types.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		if q.Search == "" || strings.Contains(e.Name, q.Search) || strings.Contains(e.Position, q.Search) {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	start := min(q.Offset(), len(all))
	end := min(start+types.PerPage, len(all))
	return all[start:end], len(all), nil
}

func (m *memStore) UpdateEmployeeByID(_ context.Context, id int64, e types.Employee) (types.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.employees[id]
	if !ok {
		return types.Employee{}, storage.ErrNotFound
	}
	if m.nameTaken(e.Name, id) {
		return types.Employee{}, storage.ErrDuplicateName
	}
	current.Name, current.Age, current.Position, current.HiredDate = e.Name, e.Age, e.Position, e.HiredDate
	current.UpdatedAt = time.Now()
	m.employees[id] = current
	return current, nil
}

func (m *memStore) DeleteEmployeeByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.employees, id)
	return nil
}

func (m *memStore) EmployeeNameExists(_ context.Context, name string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.skipNameCheck {
		return false, nil
	}
	return m.nameTaken(name, excludeID), nil
}

func (m *memStore) CreateUser(context.Context, string, string) (int64, error) {
	return 0, errors.New("not implemented")
}

func (m *memStore) GetUserByID(context.Context, int64) (types.User, error) {
	return types.User{}, storage.ErrNotFound
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.employees)
}
