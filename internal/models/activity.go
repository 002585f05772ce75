package models

import "time"

// ActivityType classifies an activity-log entry.
type ActivityType string

const (
	ActivityStatusChange ActivityType = "status_change"
	ActivityComment      ActivityType = "comment"
	ActivityRevision     ActivityType = "revision"
)

// ActivityEntry is one record in an entity's append-only activity log.
// Comment entries may reference a parent entry, forming a discussion thread.
type ActivityEntry struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	ActorID   string       `json:"actor_id"`
	ActorName string       `json:"actor_name,omitempty"`
	Message   string       `json:"message"`
	ParentID  *string      `json:"parent_id,omitempty"`
	Deleted   bool         `json:"deleted,omitempty"`
	EditedAt  *time.Time   `json:"edited_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// ActivityNode is a materialized thread node, built at the read boundary.
type ActivityNode struct {
	ActivityEntry
	Replies []*ActivityNode `json:"replies"`
}

// ThreadActivity materializes the flat activity log into a comment tree.
// Entries whose parent is missing (edited-away or out of order) are promoted
// to roots rather than dropped.
func ThreadActivity(entries []ActivityEntry) []*ActivityNode {
	nodes := make(map[string]*ActivityNode, len(entries))
	order := make([]*ActivityNode, 0, len(entries))
	for i := range entries {
		n := &ActivityNode{ActivityEntry: entries[i]}
		nodes[n.ID] = n
		order = append(order, n)
	}

	roots := make([]*ActivityNode, 0, len(order))
	for _, n := range order {
		if n.ParentID != nil {
			if parent, ok := nodes[*n.ParentID]; ok {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}
