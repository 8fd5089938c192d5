package api

import "github.com/dmdmdm-nz/iwmon/internal/assoc"

// EventSource is the part of the association service the API depends on.
type EventSource interface {
	Subscribe() (<-chan assoc.AssociationEvent, func())
	Status() assoc.Status
	Running() bool
}

type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	Major     int64  `json:"major"`
	Minor     int64  `json:"minor"`
	Patch     int64  `json:"patch"`
}
