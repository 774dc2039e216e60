package layer

import (
	"fmt"
	"slices"
)

// EventKind classifies a store event.
type EventKind uint8

const (
	// EventCreated reports a new layer.
	EventCreated EventKind = iota + 1

	// EventChanged reports a new active layer. Prev holds the previously
	// active layer.
	EventChanged

	// EventUploaded reports new pixels in a layer's buffer.
	EventUploaded
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventChanged:
		return "changed"
	case EventUploaded:
		return "uploaded"
	default:
		return fmt.Sprintf("EventKind(%d)", k)
	}
}

// Event is one change recorded by the store.
type Event struct {
	Kind  EventKind
	Layer ID
	Prev  ID
}

// Summary folds a batch of events into what the compositor has to redo.
type Summary struct {
	// Changed is set when the active layer moved. From is the layer that
	// was active before the first move and To the one active after the
	// last.
	Changed  bool
	From, To ID

	// Created counts new layers.
	Created int

	// Uploaded lists layers whose pixels were replaced, in event order
	// without duplicates.
	Uploaded []ID
}

// Summarize folds events into a Summary.
func Summarize(events []Event) Summary {
	var s Summary
	for _, e := range events {
		switch e.Kind {
		case EventChanged:
			if !s.Changed {
				s.Changed = true
				s.From = e.Prev
			}
			s.To = e.Layer
		case EventCreated:
			s.Created++
		case EventUploaded:
			if !slices.Contains(s.Uploaded, e.Layer) {
				s.Uploaded = append(s.Uploaded, e.Layer)
			}
		}
	}
	return s
}
