package usecase

import "sync"

// CountryGuard scopes the reset exclusivity per country: a reset holds the
// write side, ingestion and queries hold the read side. Work against other
// countries is unaffected.
type CountryGuard struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewCountryGuard creates an empty guard.
func NewCountryGuard() *CountryGuard {
	return &CountryGuard{locks: make(map[string]*sync.RWMutex)}
}

func (g *CountryGuard) lock(country string) *sync.RWMutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[country]
	if !ok {
		l = &sync.RWMutex{}
		g.locks[country] = l
	}
	return l
}

// Enter acquires shared access for an ingestion or query against country.
// The returned func releases it.
func (g *CountryGuard) Enter(country string) func() {
	l := g.lock(country)
	l.RLock()
	return l.RUnlock
}

// EnterExclusive acquires the exclusive reset section for country.
func (g *CountryGuard) EnterExclusive(country string) func() {
	l := g.lock(country)
	l.Lock()
	return l.Unlock
}
