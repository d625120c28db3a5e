package cookiedb

// Store is an immutable cookie-name to class lookup table.
//
// A Store is loaded once at process start and shared by reference afterwards;
// it is safe for concurrent readers because nothing mutates it after load.
type Store struct {
	// classes maps cookie names to their class.
	classes map[string]Class
}

// NewStore creates a Store from an explicit name to class mapping.
// The map is copied so later mutation by the caller cannot leak in.
func NewStore(classes map[string]Class) *Store {
	copied := make(map[string]Class, len(classes))
	for name, class := range classes {
		copied[name] = class
	}
	return &Store{classes: copied}
}

// Lookup returns the class of the given cookie name.
// Unknown names return Unclassified. Lookup never fails.
func (s *Store) Lookup(name string) Class {
	return s.classes[name]
}

// IsNecessary reports whether the cookie is Strictly Necessary.
func (s *Store) IsNecessary(name string) bool {
	return s.Lookup(name) == StrictlyNecessary
}

// Len returns the number of classified cookie names.
func (s *Store) Len() int {
	return len(s.classes)
}

// Merge combines several stores into one.
// On disagreement the store loaded last wins, so callers control precedence
// by argument order.
func Merge(stores ...*Store) *Store {
	merged := make(map[string]Class)
	for _, store := range stores {
		for name, class := range store.classes {
			merged[name] = class
		}
	}
	return &Store{classes: merged}
}
