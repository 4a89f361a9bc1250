package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/voltroute/voltroute/internal/models"
)

// Memory is the in-memory state store, used when DATABASE_URL is unset or
// the database cannot be reached. State does not survive a restart, which
// matches the degraded contract: the UI stays usable, nothing crashes.
type Memory struct {
	mu     sync.RWMutex
	slots  map[string]map[string][]byte // clientID -> slot -> JSON payload
	routes []models.RouteRecord
	nextID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		slots:  make(map[string]map[string][]byte),
		nextID: 1,
	}
}

func (m *Memory) get(clientID, slot string, out interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.slots[clientID][slot]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(payload, out)
}

func (m *Memory) set(clientID, slot string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s slot: %w", slot, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.slots[clientID] == nil {
		m.slots[clientID] = make(map[string][]byte)
	}
	m.slots[clientID][slot] = payload
	return nil
}

func (m *Memory) clear(clientID string, slots ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, slot := range slots {
		delete(m.slots[clientID], slot)
	}
}

// Theme returns the stored theme, defaulting to light.
func (m *Memory) Theme(ctx context.Context, clientID string) (models.Theme, error) {
	var theme models.Theme
	if err := m.get(clientID, slotTheme, &theme); err != nil || !theme.Valid() {
		return models.ThemeLight, nil
	}
	return theme, nil
}

func (m *Memory) SetTheme(ctx context.Context, clientID string, theme models.Theme) error {
	return m.set(clientID, slotTheme, theme)
}

func (m *Memory) Session(ctx context.Context, clientID string) (*models.Session, error) {
	session := &models.Session{}
	if err := m.get(clientID, slotSession, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (m *Memory) SetSession(ctx context.Context, clientID string, session *models.Session) error {
	return m.set(clientID, slotSession, session)
}

func (m *Memory) ClearSession(ctx context.Context, clientID string) error {
	m.clear(clientID, slotSession, slotResult)
	return nil
}

func (m *Memory) Result(ctx context.Context, clientID string) (*models.OptimizeResult, error) {
	result := &models.OptimizeResult{}
	if err := m.get(clientID, slotResult, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Memory) SetResult(ctx context.Context, clientID string, result *models.OptimizeResult) error {
	return m.set(clientID, slotResult, result)
}

func (m *Memory) ClearResult(ctx context.Context, clientID string) error {
	m.clear(clientID, slotResult)
	return nil
}

func (m *Memory) SaveRoute(ctx context.Context, vehicleNumber string, result *models.OptimizeResult) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := models.RouteRecord{
		ID:            m.nextID,
		VehicleNumber: vehicleNumber,
		Result:        *result,
		CreatedAt:     time.Now(),
	}
	m.nextID++
	m.routes = append(m.routes, record)
	return record.ID, nil
}

func (m *Memory) ListRoutes(ctx context.Context, vehicleNumber string, limit, offset int) ([]models.RouteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest first.
	var matched []models.RouteRecord
	for i := len(m.routes) - 1; i >= 0; i-- {
		if m.routes[i].VehicleNumber == vehicleNumber {
			matched = append(matched, m.routes[i])
		}
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *Memory) RouteByID(ctx context.Context, id int64) (*models.RouteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.routes {
		if m.routes[i].ID == id {
			record := m.routes[i]
			return &record, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Close() {}
