// Package chatsync reconciles a locally held conversation with messages that
// arrive from polling and from the realtime channel.
package chatsync

import (
	"sort"
	"time"

	"github.com/Misikirayu/mate-finder/internal/models"
)

type contentKey struct {
	senderID  int64
	content   string
	createdAt time.Time
}

func keyOf(m models.Message) contentKey {
	return contentKey{senderID: m.SenderID, content: m.Content, createdAt: m.CreatedAt.UTC()}
}

// Merge folds incoming messages into local without duplicates. A message is
// identified by id once it has one, otherwise by sender, content and
// timestamp. A later copy of the same message replaces the earlier one, so
// seen and reaction converge to the last applied value. The result is sorted
// by createdAt, then id.
func Merge(local []models.Message, incoming ...models.Message) []models.Message {
	merged := make([]models.Message, 0, len(local)+len(incoming))
	byID := make(map[int64]int, len(local)+len(incoming))
	byContent := make(map[contentKey]int, len(local)+len(incoming))

	apply := func(m models.Message) {
		if m.ID != 0 {
			if idx, ok := byID[m.ID]; ok {
				merged[idx] = m
				return
			}
		}
		key := keyOf(m)
		if idx, ok := byContent[key]; ok && (merged[idx].ID == 0 || m.ID == 0 || merged[idx].ID == m.ID) {
			if m.ID == 0 {
				// Keep the identified copy; only refresh mutable fields.
				merged[idx].Seen = merged[idx].Seen || m.Seen
				if m.Reaction != nil {
					merged[idx].Reaction = m.Reaction
				}
				return
			}
			merged[idx] = m
			byID[m.ID] = idx
			return
		}

		merged = append(merged, m)
		idx := len(merged) - 1
		if m.ID != 0 {
			byID[m.ID] = idx
		}
		if _, ok := byContent[key]; !ok {
			byContent[key] = idx
		}
	}

	for _, m := range local {
		apply(m)
	}
	for _, m := range incoming {
		apply(m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.Before(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}
