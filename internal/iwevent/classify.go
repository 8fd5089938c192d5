package iwevent

import "strings"

const (
	newAccessPointMarker = "new access point/cell"
	notAssociatedMarker  = "not-associated"
)

// Classify maps a single iwevent output line to an event kind.
// Lines that do not announce an access point change yield false.
func Classify(line string) (EventKind, bool) {
	line = strings.ToLower(line)
	if !strings.Contains(line, newAccessPointMarker) {
		return "", false
	}
	if strings.Contains(line, notAssociatedMarker) {
		return AssociationLost, true
	}
	return AssociationNew, true
}
