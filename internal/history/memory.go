package history

import (
	"context"
	"sort"
	"sync"
)

type memoryUser struct {
	passwordHash string
	defaultCity  string
	// Oldest first; List reverses.
	cities []string
}

// MemoryStore is a concurrency-safe in-memory Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: username
	users map[string]*memoryUser

	// max entries kept per user (0 = unlimited)
	maxHistory int
}

// NewMemoryStore creates a new MemoryStore.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*memoryUser),
		maxHistory: maxHistory,
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}
	s.users[username] = &memoryUser{passwordHash: passwordHash}
	return nil
}

func (s *MemoryStore) PasswordHash(_ context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return "", ErrUserNotFound
	}
	return u.passwordHash, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, username)
	return nil
}

// Append adds a city and enforces retention.
func (s *MemoryStore) Append(_ context.Context, username, city string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}
	u.cities = append(u.cities, city)

	if s.maxHistory > 0 && len(u.cities) > s.maxHistory {
		over := len(u.cities) - s.maxHistory
		u.cities = u.cities[over:]
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, username string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := make([]Entry, 0, len(u.cities))
	for i := len(u.cities) - 1; i >= 0; i-- {
		out = append(out, Entry{City: u.cities[i]})
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}
	u.cities = nil
	return nil
}

// TopCities orders by search count, ties broken by city name.
func (s *MemoryStore) TopCities(_ context.Context, username string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}

	counts := make(map[string]int)
	for _, c := range u.cities {
		counts[c]++
	}
	cities := make([]string, 0, len(counts))
	for c := range counts {
		cities = append(cities, c)
	}
	sort.Slice(cities, func(i, j int) bool {
		if counts[cities[i]] != counts[cities[j]] {
			return counts[cities[i]] > counts[cities[j]]
		}
		return cities[i] < cities[j]
	})
	if limit > 0 && len(cities) > limit {
		cities = cities[:limit]
	}
	return cities, nil
}

func (s *MemoryStore) SetDefaultCity(_ context.Context, username, city string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return ErrUserNotFound
	}
	u.defaultCity = city
	return nil
}

func (s *MemoryStore) DefaultCity(_ context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return "", ErrUserNotFound
	}
	return u.defaultCity, nil
}

func (s *MemoryStore) Close() error { return nil }
