package collection

import "github.com/binyominzeev/vidfaq/pkg/models"

// PublicView returns the entries eligible for public display in ascending position order.
// The input is not modified; an empty or nil input yields an empty slice.
func PublicView(entries []*models.VideoEntry) []*models.VideoEntry {
	visible := make([]*models.VideoEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil && e.IsActive {
			visible = append(visible, e)
		}
	}
	SortByPosition(visible)
	return visible
}
