package service

import (
	"sync"

	"github.com/setforge/setforge/internal/domain"
)

// DefaultScenario is the scenario every flow starts in: live detection against
// the real provider. Any other value selects a registered canned fixture set,
// used for demos and offline development.
const DefaultScenario = "live"

// ScenarioDemo is the built-in canned scenario, always registered.
const ScenarioDemo = "demo"

// ScenarioConfig is the process-wide demo/scenario selection. It is injected
// into the detector rather than read from a package variable, so tests and
// demo tooling can swap it per instance. Selection persists for the lifetime
// of the config object.
type ScenarioConfig struct {
	mu       sync.RWMutex
	scenario string
	fixtures map[string][]domain.DetectedItem
}

// NewScenarioConfig starts at DefaultScenario. The built-in demo scenario is
// pre-registered so demos and offline development work out of the box.
func NewScenarioConfig() *ScenarioConfig {
	s := &ScenarioConfig{
		scenario: DefaultScenario,
		fixtures: make(map[string][]domain.DetectedItem),
	}
	s.Register(ScenarioDemo, demoFixtures())
	return s
}

// demoFixtures is the canned detection result set behind ScenarioDemo.
func demoFixtures() []domain.DetectedItem {
	return []domain.DetectedItem{
		{
			ParsedTitle: "Demo Full Body",
			Workout: &domain.WorkoutDocument{
				Title:  "Demo Full Body",
				Source: "demo",
				Blocks: []*domain.Block{
					{
						Label:     "Strength",
						Structure: domain.StructureSets,
						Exercises: []*domain.Exercise{
							{Name: "Back Squat", Sets: 5, Reps: 5, RestSec: 180},
							{Name: "Bench Press", Sets: 5, Reps: 5, RestSec: 180},
						},
					},
					{
						Label:      "Conditioning",
						Structure:  domain.StructureAMRAP,
						TimeCapSec: 600,
						Exercises: []*domain.Exercise{
							{Name: "Burpee", Reps: 10},
							{Name: "Kettlebell Swing", Reps: 15},
						},
					},
				},
			},
		},
		{
			ParsedTitle: "Demo Upper Pump",
			Workout: &domain.WorkoutDocument{
				Title:  "Demo Upper Pump",
				Source: "demo",
				Blocks: []*domain.Block{
					{
						Label: "Supersets",
						Supersets: []*domain.Superset{{
							Exercises: []*domain.Exercise{
								{Name: "Dumbbell Curl", Sets: 3, Reps: 12},
								{Name: "Tricep Pushdown", Sets: 3, Reps: 12},
							},
							RestBetweenSec: 60,
						}},
					},
				},
			},
		},
	}
}

// Get returns the active scenario name.
func (s *ScenarioConfig) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenario
}

// Set selects a scenario. Unknown names fall back to live detection.
func (s *ScenarioConfig) Set(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		name = DefaultScenario
	}
	s.scenario = name
}

// Register installs the canned detection results for a named scenario.
func (s *ScenarioConfig) Register(name string, items []domain.DetectedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures[name] = items
}

// Fixtures returns the canned results for the active scenario, if any.
func (s *ScenarioConfig) Fixtures() ([]domain.DetectedItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scenario == DefaultScenario {
		return nil, false
	}
	items, ok := s.fixtures[s.scenario]
	return items, ok
}
