package sasign

import "fmt"

// MalformedStructureError is returned when an input is shaped like a
// signable structure but is missing a capability the signer needs: an
// unsupported object type, a storage-options block whose account or
// container cannot be determined, or an in-place request for an immutable
// value. It marks an unsupported schema variant, not a passthrough.
type MalformedStructureError struct {
	Reason string
}

func (e *MalformedStructureError) Error() string {
	return fmt.Sprintf("malformed structure: %s", e.Reason)
}
