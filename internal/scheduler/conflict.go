package scheduler

// ConflictType tells which window of an existing reservation a candidate collides with.
type ConflictType string

const (
	// ConflictTypeProjected means the candidate overlaps the projected window.
	ConflictTypeProjected ConflictType = "projected"
	// ConflictTypeRequested means the candidate overlaps the window the owner asked for.
	ConflictTypeRequested ConflictType = "requested"
)

// Conflict describes a collision between a candidate window and a live reservation.
type Conflict struct {
	ReservationID string
	Type          ConflictType
	Window        Window
}

// DetectConflicts reports every live reservation whose projected or requested window
// overlaps the candidate. Each reservation appears at most once, projected first.
func DetectConflicts(projections []Projection, candidate Window) []Conflict {
	var conflicts []Conflict
	for _, projection := range projections {
		if projection.Window.Overlaps(candidate) {
			conflicts = append(conflicts, Conflict{
				ReservationID: projection.Reservation.ID,
				Type:          ConflictTypeProjected,
				Window:        projection.Window,
			})
			continue
		}
		requested := Window{Start: projection.Reservation.Start, End: projection.Reservation.End}
		if requested.Overlaps(candidate) {
			conflicts = append(conflicts, Conflict{
				ReservationID: projection.Reservation.ID,
				Type:          ConflictTypeRequested,
				Window:        requested,
			})
		}
	}
	return conflicts
}
