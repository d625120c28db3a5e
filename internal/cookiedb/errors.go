package cookiedb

import "errors"

// Loader errors.
//
// Design decision: We use package-level sentinel errors rather than creating
// new error instances in each loader. This allows callers to use errors.Is()
// for programmatic handling while loaders wrap them with file and row context.
var (
	// ErrUnknownClass is returned when a data source names a cookie class
	// that does not map to any ICC category.
	ErrUnknownClass = errors.New("unknown cookie class")

	// ErrMalformedSource is returned when a data source row cannot be
	// parsed into a (name, class) pair.
	ErrMalformedSource = errors.New("malformed classification source")

	// ErrUnknownFormat is returned by Load when the file extension does
	// not match any supported classification database format.
	ErrUnknownFormat = errors.New("unknown classification database format")
)
