package importer

import (
	"sync"
)

// StagingManager holds rows staged one at a time (e.g. over MCP) until the
// session is committed as a single import batch.
type StagingManager struct {
	mu     sync.RWMutex
	staged map[string][]map[string]any
}

func NewStagingManager() *StagingManager {
	return &StagingManager{
		staged: make(map[string][]map[string]any),
	}
}

// Add stages a row and returns the session's row count.
func (sm *StagingManager) Add(sessionID string, row map[string]any) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.staged[sessionID] = append(sm.staged[sessionID], row)
	return len(sm.staged[sessionID])
}

func (sm *StagingManager) GetAndClear(sessionID string) []map[string]any {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	rows, ok := sm.staged[sessionID]
	if !ok {
		return []map[string]any{}
	}
	delete(sm.staged, sessionID)
	return rows
}

func (sm *StagingManager) Peek(sessionID string) []map[string]any {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	rows, ok := sm.staged[sessionID]
	if !ok {
		return []map[string]any{}
	}
	out := make([]map[string]any, len(rows))
	copy(out, rows)
	return out
}

func (sm *StagingManager) Discard(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.staged, sessionID)
}
