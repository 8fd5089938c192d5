package assoc

import (
	"time"

	"github.com/dmdmdm-nz/iwmon/internal/iwevent"
)

type AssociationEvent struct {
	ID   string            `json:"id"`
	Kind iwevent.EventKind `json:"kind"`
	Time time.Time         `json:"time"`
}

// Status is a point-in-time view of the association service.
type Status struct {
	State      string                    `json:"state"`
	Associated bool                      `json:"associated"`
	LastEvent  *AssociationEvent         `json:"lastEvent,omitempty"`
	Counts     map[iwevent.EventKind]int `json:"counts"`
}
