package store

import (
	"sort"
	"strconv"
	"sync"

	"skywardportal/pkg/domain"
)

// MemoryStore keeps all tables in-process. It implements the same Store
// contract as GormStore so workflow logic can be tested without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	emails   map[string]string // email -> user ID
	profiles map[string]domain.Profile
	roles    map[string]map[string]struct{} // userID -> roles
	leads    map[string]domain.Lead
	books    map[string]domain.Book
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		profiles: make(map[string]domain.Profile),
		roles:    make(map[string]map[string]struct{}),
		leads:    make(map[string]domain.Lead),
		books:    make(map[string]domain.Book),
	}
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.emails[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *MemoryStore) SaveProfile(p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

func (m *MemoryStore) GetProfile(userID string) (domain.Profile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	return p, ok, nil
}

func (m *MemoryStore) AddRole(userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[userID] == nil {
		m.roles[userID] = make(map[string]struct{})
	}
	m.roles[userID][role] = struct{}{}
	return nil
}

func (m *MemoryStore) HasRole(userID, role string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.roles[userID][role]
	return ok, nil
}

func (m *MemoryStore) SaveLead(l domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[l.ID] = l
	return nil
}

func (m *MemoryStore) GetLead(id string) (domain.Lead, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leads[id]
	return l, ok, nil
}

func (m *MemoryStore) ListLeads(status domain.LeadStatus) ([]domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		if status != "" && l.Status != status {
			continue
		}
		res = append(res, l)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) LatestLeadForUser(userID string) (domain.Lead, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var newest domain.Lead
	found := false
	for _, l := range m.leads {
		if l.UserID != userID || userID == "" {
			continue
		}
		if !found || l.CreatedAt.After(newest.CreatedAt) {
			newest = l
			found = true
		}
	}
	return newest, found, nil
}

func (m *MemoryStore) SaveBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ID] = b
	return nil
}

func (m *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

func (m *MemoryStore) ListBooks() ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.books))
	for _, b := range m.books {
		res = append(res, b)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].DisplayOrder < res[j].DisplayOrder
	})
	return res, nil
}

func (m *MemoryStore) BookCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books), nil
}

func (m *MemoryStore) GetPrimaryBook() (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.books {
		if b.IsPrimary {
			return b, true, nil
		}
	}
	return domain.Book{}, false, nil
}

func (m *MemoryStore) ClearPrimaryFlags() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.books {
		if b.IsPrimary {
			b.IsPrimary = false
			m.books[id] = b
		}
	}
	return nil
}

func (m *MemoryStore) DeleteBook(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	return nil
}

// MemorySessionStore maps opaque tokens to user IDs for tests.
type MemorySessionStore struct {
	mu   sync.Mutex
	sess map[string]string
	next int
}

// NewMemorySessionStore builds an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sess: make(map[string]string)}
}

func (s *MemorySessionStore) NewSession(userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	token := "sess-" + userID + "-" + strconv.Itoa(s.next)
	s.sess[token] = userID
	return token, nil
}

func (s *MemorySessionStore) GetUserIDByToken(token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sess[token]
	return id, ok, nil
}

func (s *MemorySessionStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sess, token)
	return nil
}
