package iwevent

type EventKind string

const (
	AssociationNew  EventKind = "ASSOCIATION_NEW"
	AssociationLost EventKind = "ASSOCIATION_LOST"
)

// Callback is invoked, without arguments, once per matching event.
type Callback func()

// catalog lists every kind the monitor can emit, in declaration order.
var catalog = []EventKind{
	AssociationNew,
	AssociationLost,
}

var known = func() map[EventKind]struct{} {
	m := make(map[EventKind]struct{}, len(catalog))
	for _, k := range catalog {
		m[k] = struct{}{}
	}
	return m
}()

// IsKnown reports whether kind is part of the event catalog.
func IsKnown(kind EventKind) bool {
	_, ok := known[kind]
	return ok
}

// Kinds returns the event catalog.
func Kinds() []EventKind {
	out := make([]EventKind, len(catalog))
	copy(out, catalog)
	return out
}

func (k EventKind) String() string { return string(k) }
