package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

// ResultStore keeps saved scenarios. Saved scenarios are immutable apart from
// their name and tags.
type ResultStore interface {
	Save(ctx context.Context, s models.Scenario) error
	Get(ctx context.Context, id string) (models.Scenario, error)
	List(ctx context.Context) ([]models.Scenario, error)
	Rename(ctx context.Context, id, name string) (models.Scenario, error)
	Tag(ctx context.Context, id string, tags []string) (models.Scenario, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore holds the reference catalog and, unless a database is
// configured, the saved scenarios.
type MemoryStore struct {
	mu      sync.RWMutex
	catalog *models.Catalog
	results map[string]models.Scenario
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		catalog: &models.Catalog{},
		results: make(map[string]models.Scenario),
	}
}

// SetCatalog replaces the catalog wholesale.
func (s *MemoryStore) SetCatalog(c *models.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
}

// Catalog returns the current catalog. Callers must not modify it.
func (s *MemoryStore) Catalog() *models.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Curves returns the curves of the given models, or all of them.
func (s *MemoryStore) Curves(modelIDs ...int) []models.Curve {
	return s.Catalog().CurvesFor(modelIDs...)
}

func (s *MemoryStore) Save(_ context.Context, sc models.Scenario) error {
	if sc.ID == "" {
		return &models.ParamError{Param: "id", Value: sc.ID}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[sc.ID]; ok {
		return fmt.Errorf("result %s already saved: %w", sc.ID, models.ErrInvalidParameter)
	}
	s.results[sc.ID] = cloneScenario(sc)
	scenariosSaved.WithLabelValues(string(sc.Type)).Inc()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.results[id]
	if !ok {
		return models.Scenario{}, fmt.Errorf("result %s: %w", id, models.ErrNotFound)
	}
	return cloneScenario(sc), nil
}

// List returns saved scenarios, newest first.
func (s *MemoryStore) List(_ context.Context) ([]models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Scenario, 0, len(s.results))
	for _, sc := range s.results {
		out = append(out, cloneScenario(sc))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Rename(_ context.Context, id, name string) (models.Scenario, error) {
	if name == "" {
		return models.Scenario{}, &models.ParamError{Param: "name", Value: name}
	}
	return s.edit(id, func(sc *models.Scenario) { sc.Name = name })
}

func (s *MemoryStore) Tag(_ context.Context, id string, tags []string) (models.Scenario, error) {
	return s.edit(id, func(sc *models.Scenario) { sc.Tags = NormalizeTags(tags) })
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return fmt.Errorf("result %s: %w", id, models.ErrNotFound)
	}
	delete(s.results, id)
	return nil
}

func (s *MemoryStore) edit(id string, f func(*models.Scenario)) (models.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.results[id]
	if !ok {
		return models.Scenario{}, fmt.Errorf("result %s: %w", id, models.ErrNotFound)
	}
	sc = cloneScenario(sc)
	f(&sc)
	s.results[id] = sc
	return cloneScenario(sc), nil
}

// NormalizeTags drops blanks and duplicates and sorts.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func cloneScenario(sc models.Scenario) models.Scenario {
	sc.Tags = slices.Clone(sc.Tags)
	sc.Channels = slices.Clone(sc.Channels)
	return sc
}
