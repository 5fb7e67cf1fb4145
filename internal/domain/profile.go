package domain

// Profile is an opaque per-user preference bag (accessibility settings etc.).
type Profile map[string]any

// Merge returns a new profile holding p overlaid with partial. Keys absent
// from partial keep their previous values.
func (p Profile) Merge(partial Profile) Profile {
	out := make(Profile, len(p)+len(partial))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy that is never nil.
func (p Profile) Clone() Profile {
	return Profile(nil).Merge(p)
}
