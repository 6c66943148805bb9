package store

import (
	"sync"

	"mirajournal/pkg/domain"
)

// MemoryStore keeps all records in-process. It backs tests and local
// development without Postgres.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]domain.User // key: user ID
	email       map[string]string      // email -> user ID
	entries     map[string]domain.Entry
	entryOrder  []string // insertion order, oldest first
	replies     map[string][]domain.Reply // entry ID -> replies, oldest first
	insights    map[string][]domain.Insight
	advice      map[string][]domain.AdviceRequest
	adviceIndex map[string]string // advice ID -> owner ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]domain.User),
		email:       make(map[string]string),
		entries:     make(map[string]domain.Entry),
		replies:     make(map[string][]domain.Reply),
		insights:    make(map[string][]domain.Insight),
		advice:      make(map[string][]domain.AdviceRequest),
		adviceIndex: make(map[string]string),
	}
}

// SaveUser registers or updates a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// CreateEntry persists a new journal entry and tracks insertion order.
func (m *MemoryStore) CreateEntry(e domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[e.ID]; !exists {
		m.entryOrder = append(m.entryOrder, e.ID)
	}
	m.entries[e.ID] = e
	return nil
}

// UpdateEntry replaces an existing entry.
func (m *MemoryStore) UpdateEntry(e domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		return nil
	}
	m.entries[e.ID] = e
	return nil
}

// GetEntry retrieves an entry by ID.
func (m *MemoryStore) GetEntry(id string) (domain.Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e, ok, nil
}

// ListEntriesByOwner returns entries newest first. limit <= 0 means all.
func (m *MemoryStore) ListEntriesByOwner(ownerID string, limit int) ([]domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Entry, 0, len(m.entryOrder))
	for i := len(m.entryOrder) - 1; i >= 0; i-- {
		e, ok := m.entries[m.entryOrder[i]]
		if !ok || e.OwnerID != ownerID {
			continue
		}
		res = append(res, e)
		if limit > 0 && len(res) == limit {
			break
		}
	}
	return res, nil
}

// CreateReply appends an AI reply to an entry.
func (m *MemoryStore) CreateReply(r domain.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[r.EntryID] = append(m.replies[r.EntryID], r)
	return nil
}

// ListRepliesForEntry returns replies newest first.
func (m *MemoryStore) ListRepliesForEntry(entryID string) ([]domain.Reply, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.replies[entryID]
	res := make([]domain.Reply, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		res = append(res, stored[i])
	}
	return res, nil
}

// CountRepliesForEntry returns the number of replies on an entry.
func (m *MemoryStore) CountRepliesForEntry(entryID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.replies[entryID]), nil
}

// CreateInsight persists a generated insight.
func (m *MemoryStore) CreateInsight(i domain.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights[i.OwnerID] = append(m.insights[i.OwnerID], i)
	return nil
}

// ListInsightsByOwner returns insights newest first.
func (m *MemoryStore) ListInsightsByOwner(ownerID string) ([]domain.Insight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.insights[ownerID]
	res := make([]domain.Insight, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		res = append(res, stored[i])
	}
	return res, nil
}

// CreateAdviceRequest persists an advice request.
func (m *MemoryStore) CreateAdviceRequest(a domain.AdviceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advice[a.OwnerID] = append(m.advice[a.OwnerID], a)
	m.adviceIndex[a.ID] = a.OwnerID
	return nil
}

// UpdateAdviceResponse fills in the generated answer on an advice request.
func (m *MemoryStore) UpdateAdviceResponse(a domain.AdviceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ownerID, ok := m.adviceIndex[a.ID]
	if !ok {
		return nil
	}
	stored := m.advice[ownerID]
	for i := range stored {
		if stored[i].ID == a.ID {
			stored[i].Response = a.Response
			stored[i].Techniques = a.Techniques
			stored[i].Plan = a.Plan
			break
		}
	}
	return nil
}

// ListAdviceByOwner returns advice requests newest first.
func (m *MemoryStore) ListAdviceByOwner(ownerID string) ([]domain.AdviceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.advice[ownerID]
	res := make([]domain.AdviceRequest, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		res = append(res, stored[i])
	}
	return res, nil
}
