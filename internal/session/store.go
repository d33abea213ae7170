// Package session keeps one map view and one search coordinator per browser
// session and page variant.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-map/internal/mapview"
	"github.com/i474232898/weather-map/internal/search"
)

// Variant selects the page flavour.
type Variant string

const (
	VariantBasic     Variant = "basic"
	VariantDashboard Variant = "dashboard"
)

// Overlay opacities per variant.
const (
	BasicOpacity     = 1.0
	DashboardOpacity = 0.6
)

var ErrUnknownVariant = errors.New("unknown page variant")

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantBasic, VariantDashboard:
		return v, nil
	}
	return "", ErrUnknownVariant
}

// Session is the view state of one open page.
type Session struct {
	ID      string
	Variant Variant
	Map     *mapview.Controller
	Search  *search.Coordinator

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Deps are shared by every session the store creates.
type Deps struct {
	Weather   search.WeatherSource
	History   search.HistoryBackend
	Publisher search.Publisher
	Tiles     mapview.TileSource
	Markers   mapview.MarkerPolicy
	Logger    *slog.Logger
}

type key struct {
	id      string
	variant Variant
}

// Store is a concurrency-safe in-memory session registry.
type Store struct {
	mu       sync.Mutex
	sessions map[key]*Session
	deps     Deps
	now      func() time.Time
}

func NewStore(deps Deps) *Store {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Store{
		sessions: make(map[key]*Session),
		deps:     deps,
		now:      time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Get returns the session for (id, variant), creating it on first use.
func (s *Store) Get(id string, variant Variant) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	k := key{id: id, variant: variant}
	if sess, ok := s.sessions[k]; ok {
		sess.touch(now)
		return sess
	}

	sess := s.newSession(id, variant)
	sess.lastSeen = now
	s.sessions[k] = sess
	s.deps.Logger.Debug("session created", "sid", id, "variant", string(variant))
	return sess
}

func (s *Store) newSession(id string, variant Variant) *Session {
	opacity := BasicOpacity
	var hist search.HistoryBackend
	if variant == VariantDashboard {
		opacity = DashboardOpacity
		hist = s.deps.History
	}

	m := mapview.New(mapview.Options{
		Tiles:   s.deps.Tiles,
		Opacity: opacity,
		Markers: s.deps.Markers,
		Logger:  s.deps.Logger,
	})
	coord := search.NewCoordinator(search.Config{
		Weather:   s.deps.Weather,
		Map:       m,
		History:   hist,
		Publisher: s.deps.Publisher,
		Logger:    s.deps.Logger.With("sid", id, "variant", string(variant)),
	})
	return &Session{ID: id, Variant: variant, Map: m, Search: coord}
}

// Evict drops sessions idle for longer than maxIdle and returns how many
// were removed. maxIdle <= 0 disables eviction.
func (s *Store) Evict(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(s.sessions, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
