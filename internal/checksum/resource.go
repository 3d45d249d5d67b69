package checksum

// Checksum document keys. A resource type declares which of these it
// carries via ChecksumKinds.
const (
	StandardKey = "standard"
	SmartKey    = "smart"
)

// Checksums is the persisted checksum document of a resource: at most one
// digest per kind.
type Checksums map[string]string

// Has reports whether a digest for the given kind is present.
func (c Checksums) Has(kind string) bool {
	_, ok := c[kind]
	return ok
}

// HasAll reports whether every listed kind is present.
func (c Checksums) HasAll(kinds []string) bool {
	for _, k := range kinds {
		if !c.Has(k) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy, never nil.
func (c Checksums) Clone() Checksums {
	out := make(Checksums, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Resource is the capability a value must expose to be checksummed.
type Resource interface {
	// ChecksumKinds lists the checksum kinds this resource type carries
	// (StandardKey, and optionally SmartKey).
	ChecksumKinds() []string

	// StandardChecksumFields returns the field mapping participating in the
	// standard checksum, before cleanup.
	StandardChecksumFields() map[string]any

	// SmartChecksumFields returns the field mapping participating in the
	// smart checksum, before cleanup. Types without a smart checksum return
	// nil and omit SmartKey from ChecksumKinds.
	SmartChecksumFields() map[string]any

	// StoredChecksums returns the currently persisted checksum document,
	// possibly nil or partial.
	StoredChecksums() Checksums
}

// PersistentResource is a Resource the calculator can recompute and store
// checksums for.
type PersistentResource interface {
	Resource

	// ResourceType names the concrete type for dispatching ("Concept",
	// "Mapping", "Source").
	ResourceType() string

	// RecordID is the database identifier used by the async dispatcher.
	RecordID() int64

	// SetStoredChecksums replaces the in-memory checksum document.
	SetStoredChecksums(Checksums)
}
