package ident

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Issuer hands out identifiers for every body and controller of one
// simulation context. IDs are unique for the lifetime of the issuer and
// rendered as 8-digit zero-padded lowercase hex.
type Issuer struct {
	next atomic.Uint64

	mu        sync.Mutex
	sequences map[string]int
	origins   map[string]int
}

// Sequence kinds with their first value.
const (
	KindRobot    = "robot"
	KindLandmark = "landmark"
	KindWaypoint = "waypoint"
)

var defaultOrigins = map[string]int{
	KindRobot:    0,
	KindLandmark: 1,
	KindWaypoint: 1,
}

func NewIssuer() *Issuer {
	return &Issuer{
		sequences: make(map[string]int),
		origins:   defaultOrigins,
	}
}

// NewID returns the next identifier.
func (i *Issuer) NewID() string {
	return Format(i.next.Add(1))
}

// Issued reports how many IDs were handed out so far.
func (i *Issuer) Issued() uint64 { return i.next.Load() }

// Sequence returns the next display number for the given kind of entity.
// Unknown kinds start at 0.
func (i *Issuer) Sequence(kind string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n, ok := i.sequences[kind]
	if !ok {
		n = i.origins[kind]
	}
	i.sequences[kind] = n + 1
	return n
}

// Format renders a raw counter value the way NewID does.
func Format(n uint64) string { return fmt.Sprintf("%08x", n) }
