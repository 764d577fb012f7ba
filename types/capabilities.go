package types

// ------------------------
// Resolved addressing
// ------------------------

// IndexedPath is the compact, resolved address of a resource: which array
// and where in it.
type IndexedPath struct {
	Category Category
	Index    uint8
}

// ResourceID is the copyable capability handle returned by resolution.
// Two resolutions of the same locator against the same registry compare equal.
type ResourceID struct {
	Scheme Scheme
	Path   IndexedPath
	Mode   Mode
}
