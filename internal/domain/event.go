package domain

import (
	"time"

	"github.com/google/uuid"
)

// SelectionEvent records one rendered selection for the audit stream.
type SelectionEvent struct {
	ID               string    `json:"id"`
	Tribe            string    `json:"tribe"`
	Found            bool      `json:"found"`
	SecondaryMarkers int       `json:"secondary_markers"`
	Origins          []string  `json:"origins"`
	Overlays         []string  `json:"overlays"`
	SelectedAt       time.Time `json:"selected_at"`
}

// NewSelectionEvent summarizes a render as a SelectionEvent.
func NewSelectionEvent(r Render) SelectionEvent {
	overlays := make([]string, 0, len(r.Overlays))
	for _, o := range r.Overlays {
		overlays = append(overlays, o.Name)
	}
	return SelectionEvent{
		ID:               uuid.NewString(),
		Tribe:            r.Tribe,
		Found:            r.Found,
		SecondaryMarkers: len(r.Secondary),
		Origins:          r.Origins,
		Overlays:         overlays,
		SelectedAt:       clock.Now().UTC(),
	}
}
