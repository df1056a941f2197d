package event

import "slices"

// Change types reported by Diff.
const (
	ChangeNew         = "new"
	ChangeRotation    = "rotation"
	ChangeLocation    = "location"
	ChangeFrom        = "from"
	ChangeTo          = "to"
	ChangeItemAdded   = "item_added"
	ChangeItemRemoved = "item_removed"
)

// Change is one difference between two records.
type Change struct {
	ChangeType string `json:"change_type"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
}

// Diff compares the current record with the previously stored one. A nil
// previous record yields a single ChangeNew entry. Added items are reported
// in current order, removed items in previous order.
func Diff(previous, current *Record) []*Change {
	if current == nil {
		return nil
	}
	if previous == nil {
		return []*Change{{ChangeType: ChangeNew, NewValue: current.Event}}
	}

	var changes []*Change

	if previous.RotationKey() != current.RotationKey() {
		changes = append(changes, &Change{
			ChangeType: ChangeRotation,
			OldValue:   rotationLabel(previous),
			NewValue:   rotationLabel(current),
		})
	}

	fields := []struct {
		changeType string
		old, new   string
	}{
		{ChangeLocation, previous.Location, current.Location},
		{ChangeFrom, previous.From, current.From},
		{ChangeTo, previous.To, current.To},
	}
	for _, f := range fields {
		if f.old != f.new {
			changes = append(changes, &Change{ChangeType: f.changeType, OldValue: f.old, NewValue: f.new})
		}
	}

	for _, it := range current.Items {
		if !slices.Contains(previous.Items, it) {
			changes = append(changes, &Change{ChangeType: ChangeItemAdded, NewValue: it})
		}
	}
	for _, it := range previous.Items {
		if !slices.Contains(current.Items, it) {
			changes = append(changes, &Change{ChangeType: ChangeItemRemoved, OldValue: it})
		}
	}

	return changes
}

// NewRotation reports whether changes include a new event or rotation.
func NewRotation(changes []*Change) bool {
	for _, c := range changes {
		if c.ChangeType == ChangeNew || c.ChangeType == ChangeRotation {
			return true
		}
	}
	return false
}

func rotationLabel(r *Record) string {
	if l := r.ListText(); l != "" {
		return r.Event + " (list " + l + ")"
	}
	return r.Event
}
