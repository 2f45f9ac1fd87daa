package types

import "github.com/m-mizutani/goerr/v2"

// EntityRef is a tagged reference to a domain entity owned by the host
// application. Only the kind and the opaque ID travel through this core;
// loading the entity itself is the host's concern.
type EntityRef struct {
	Kind EntityKind `json:"kind" firestore:"kind"`
	ID   string     `json:"id" firestore:"id"`
}

// Validate checks that the reference is well-formed
func (r EntityRef) Validate() error {
	if !r.Kind.IsValid() {
		return goerr.New("invalid entity kind", goerr.V("kind", r.Kind))
	}
	if r.ID == "" {
		return goerr.New("entity ID is required", goerr.V("kind", r.Kind))
	}
	return nil
}

// Key returns a stable composite key for the reference
func (r EntityRef) Key() string {
	return string(r.Kind) + "/" + r.ID
}

// Equal reports whether two references point at the same entity
func (r EntityRef) Equal(other EntityRef) bool {
	return r.Kind == other.Kind && r.ID == other.ID
}
