package community

import "cpulse-tracker/internal/domain"

// Thread is a post's comments arranged for one level of nesting.
type Thread struct {
	TopLevel []domain.Comment
	// Replies is keyed by top-level comment id. Replies to replies are
	// flattened under their top-level ancestor.
	Replies map[string][]domain.Comment
}

// BuildThread partitions comments into top-level comments and replies,
// keeping input order within each group. A reply whose ancestry cannot be
// followed to a top-level comment is grouped under the last ancestor id that
// could be resolved, so it is never shown beneath a top-level comment.
func BuildThread(comments []domain.Comment) Thread {
	parents := make(map[string]string, len(comments))
	for _, c := range comments {
		parents[c.ID] = c.ParentID
	}

	thread := Thread{Replies: make(map[string][]domain.Comment)}
	for _, c := range comments {
		if c.ParentID == "" {
			thread.TopLevel = append(thread.TopLevel, c)
			continue
		}
		root := ancestor(parents, c.ParentID)
		thread.Replies[root] = append(thread.Replies[root], c)
	}
	return thread
}

func ancestor(parents map[string]string, id string) string {
	seen := map[string]bool{}
	for {
		parent, ok := parents[id]
		if !ok || parent == "" || seen[id] {
			return id
		}
		seen[id] = true
		id = parent
	}
}
