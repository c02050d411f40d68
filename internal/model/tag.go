package model

import (
	"sort"
	"strings"
	"time"
)

// Tag is a user-defined label. A tag can be attached to many links and a
// link can carry many tags; the association itself lives in storage.
//
// Names are compared case-insensitively: "Go" and "go" are the same tag.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	LinkCount int       `json:"linkCount"` // computed when listing tags
}

// NormalizeTagName trims surrounding whitespace and collapses inner runs of
// whitespace to a single space.
func NormalizeTagName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// SameTags reports whether two tag lists describe the same set of tags,
// ignoring order and duplicates. Tags are compared by ID.
func SameTags(a, b []Tag) bool {
	return sameStringSets(tagIDs(a), tagIDs(b))
}

// SortTags orders tags by name (case-insensitive), then by ID.
func SortTags(tags []Tag) {
	sort.SliceStable(tags, func(i, j int) bool {
		ni, nj := strings.ToLower(tags[i].Name), strings.ToLower(tags[j].Name)
		if ni != nj {
			return ni < nj
		}
		return tags[i].ID < tags[j].ID
	})
}

func tagIDs(tags []Tag) []string {
	ids := make([]string, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}

func sameStringSets(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	other := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
		other[s] = struct{}{}
	}
	return len(set) == len(other)
}
