package resources

import (
	"fmt"

	"github.com/HendryAvila/trae-mem/internal/memory"
)

// sessionDigest is one entry of the recent-sessions resource.
type sessionDigest struct {
	memory.Session
	Brief *string `json:"brief"`
}

func recentDigests(store SessionReader, limit int) ([]sessionDigest, error) {
	sessions, err := store.RecentSessions("", limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	out := make([]sessionDigest, 0, len(sessions))
	for _, s := range sessions {
		d := sessionDigest{Session: s}
		sum, err := store.LatestSummary(s.ID, memory.LevelBrief)
		if err != nil {
			return nil, fmt.Errorf("summary for %s: %w", s.ID, err)
		}
		if sum != nil {
			d.Brief = &sum.Content
		}
		out = append(out, d)
	}
	return out, nil
}
