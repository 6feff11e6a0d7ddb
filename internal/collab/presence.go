package collab

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type PresenceManager struct {
	mu            sync.RWMutex
	collaborators map[string]Collaborator // actorID -> collaborator
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		collaborators: make(map[string]Collaborator),
	}
}

// Update inserts or refreshes the collaborator for a cursor record.
func (pm *PresenceManager) Update(rec CursorRecord) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	c := pm.collaborators[rec.ActorID]
	c.ID = rec.ActorID
	if rec.DisplayName != "" {
		c.DisplayName = rec.DisplayName
	} else if c.DisplayName == "" {
		c.DisplayName = rec.ActorID
	}
	c.Cursor = rec.Point()
	c.LastSeen = rec.UpdatedAt
	pm.collaborators[rec.ActorID] = c
}

func (pm *PresenceManager) Remove(actorID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.collaborators, actorID)
}

// All returns the collaborators ordered by id.
func (pm *PresenceManager) All() []Collaborator {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]Collaborator, 0, len(pm.collaborators))
	for _, c := range pm.collaborators {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Collaborator) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Prune removes collaborators not seen since cutoff and returns their ids.
func (pm *PresenceManager) Prune(cutoff time.Time) []string {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var removed []string
	for id, c := range pm.collaborators {
		if c.LastSeen.Before(cutoff) {
			delete(pm.collaborators, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}

// Records renders the collaborators back into cursor rows for documentID.
func (pm *PresenceManager) Records(documentID string) []CursorRecord {
	all := pm.All()
	out := make([]CursorRecord, len(all))
	for i, c := range all {
		out[i] = CursorRecord{
			DocumentID:  documentID,
			ActorID:     c.ID,
			DisplayName: c.DisplayName,
			CursorX:     c.Cursor.X,
			CursorY:     c.Cursor.Y,
			UpdatedAt:   c.LastSeen,
		}
	}
	return out
}
