package service

import (
	"sync"

	"github.com/setforge/setforge/internal/domain"
)

// FlowDeps are the shared collaborators every import flow is built from.
type FlowDeps struct {
	Detector     domain.DetectionService
	FileDetector domain.FileDetectionService
	Mapper       domain.MappingService
	History      domain.HistoryRepository
	Files        domain.FileRepository
	DeviceTag    string
}

// FlowManager hands out one live ImportFlow per user. Flows are in-memory and
// cooperative: one import pipeline per user at a time.
type FlowManager struct {
	deps  FlowDeps
	mu    sync.Mutex
	flows map[string]*ImportFlow
}

// NewFlowManager creates an empty manager.
func NewFlowManager(deps FlowDeps) *FlowManager {
	return &FlowManager{
		deps:  deps,
		flows: make(map[string]*ImportFlow),
	}
}

// Get returns the user's current flow, creating one in the input phase if
// none exists.
func (m *FlowManager) Get(userID string) *ImportFlow {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.flows[userID]; ok {
		return f
	}
	f := NewImportFlow(ImportFlowConfig{
		ProfileID:    userID,
		UserID:       userID,
		DeviceTag:    m.deps.DeviceTag,
		Detector:     m.deps.Detector,
		FileDetector: m.deps.FileDetector,
		Mapper:       m.deps.Mapper,
		History:      m.deps.History,
		Files:        m.deps.Files,
	})
	f.cfg.OnComplete = func() { m.Reset(userID) }
	m.flows[userID] = f
	return f
}

// Reset discards the user's flow so the next Get starts fresh.
func (m *FlowManager) Reset(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, userID)
}
