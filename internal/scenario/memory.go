package scenario

import (
	"context"
	"fmt"
	"sync"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// MemoryLibrary keeps scenarios in process memory. It starts with Defaults.
type MemoryLibrary struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]models.Decision
}

// NewMemoryLibrary returns a library seeded with the default scenarios.
func NewMemoryLibrary() *MemoryLibrary {
	return NewMemoryLibraryWith(Defaults())
}

// NewMemoryLibraryWith returns a library holding exactly decisions. Later
// duplicates of an id are dropped.
func NewMemoryLibraryWith(decisions []models.Decision) *MemoryLibrary {
	l := &MemoryLibrary{byID: make(map[string]models.Decision, len(decisions))}
	for _, d := range decisions {
		if _, ok := l.byID[d.ID]; ok {
			continue
		}
		l.order = append(l.order, d.ID)
		l.byID[d.ID] = d.Clone()
	}
	return l
}

// All implements Library.
func (l *MemoryLibrary) All(ctx context.Context) ([]models.Decision, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allUnlocked(), nil
}

func (l *MemoryLibrary) allUnlocked() []models.Decision {
	out := make([]models.Decision, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id].Clone())
	}
	return out
}

// Get implements Library.
func (l *MemoryLibrary) Get(ctx context.Context, id string) (*models.Decision, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c := d.Clone()
	return &c, nil
}

// ForWeek implements Library.
func (l *MemoryLibrary) ForWeek(ctx context.Context, week int) ([]models.Decision, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return availableBy(l.allUnlocked(), week), nil
}

// Add implements Library.
func (l *MemoryLibrary) Add(ctx context.Context, d models.Decision) error {
	if err := d.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, d.ID)
	}
	l.order = append(l.order, d.ID)
	l.byID[d.ID] = d.Clone()
	return nil
}

// Close implements Library.
func (l *MemoryLibrary) Close() error {
	return nil
}
