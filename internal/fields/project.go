package fields

// Mode classifies the outcome of projecting a selector through a key
type Mode int

const (
	// Unrestricted means the next level receives no field restriction
	Unrestricted Mode = iota
	// SuppressAll means the key was not selected; only identity-level
	// information may surface below it
	SuppressAll
	// Restricted means the next level is restricted to a nested selector
	Restricted
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case Unrestricted:
		return "unrestricted"
	case SuppressAll:
		return "suppress-all"
	case Restricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// Projection is the selector to pass one level deeper below a key
type Projection struct {
	Mode Mode
	// Next is nil for Unrestricted, empty for SuppressAll
	Next *Selector
}

// Suppressed reports whether the key was not selected
func (p Projection) Suppressed() bool {
	return p.Mode == SuppressAll
}

// Project interprets one level of sel against key.
//
// Rules, in priority order:
//   - nil sel: Unrestricted
//   - no entry named key: SuppressAll
//   - key paired with a nested selector: Restricted to that selector
//   - bare key: Unrestricted
func Project(sel *Selector, key string) Projection {
	if sel == nil {
		return Projection{Mode: Unrestricted}
	}

	entry, ok := sel.Lookup(key)
	if !ok {
		return Projection{Mode: SuppressAll, Next: New()}
	}

	if entry.Nested != nil {
		return Projection{Mode: Restricted, Next: entry.Nested}
	}

	return Projection{Mode: Unrestricted}
}
