package cookiedb

import (
	"fmt"
	"strings"
)

// Class is the ICC category of a cookie.
//
// See https://www.cookielaw.org/wp-content/uploads/2019/12/icc_uk_cookiesguide_revnov.pdf
type Class int

// Cookie classes in the order they appear in the ICC guide.
// Unclassified is the zero value so that an absent lookup is automatically
// unclassified.
const (
	// Unclassified covers cookies with no known category, including names
	// absent from every loaded data source.
	Unclassified Class = iota

	// StrictlyNecessary cookies are required for the site to function.
	StrictlyNecessary

	// Performance cookies collect anonymous usage statistics.
	Performance

	// Functionality cookies remember user choices such as language.
	Functionality

	// Targeting cookies track users for advertising.
	Targeting
)

// classNames maps classes to their canonical display names.
var classNames = map[Class]string{
	Unclassified:      "Unclassified",
	StrictlyNecessary: "Strictly Necessary",
	Performance:       "Performance",
	Functionality:     "Functionality",
	Targeting:         "Targeting",
}

// String returns the canonical display name of the class.
func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// ParseClass converts a class name back to a Class. Matching ignores case
// and word separators, so "Strictly Necessary", "strictly_necessary", and
// "strictly-necessary" all parse to StrictlyNecessary. Unknown names are
// rejected so that loaders fail on malformed data sources instead of
// silently misclassifying.
func ParseClass(name string) (Class, error) {
	folded := foldClassName(name)
	for class, n := range classNames {
		if foldClassName(n) == folded {
			return class, nil
		}
	}
	return Unclassified, fmt.Errorf("%w: %q", ErrUnknownClass, name)
}

// foldClassName lowercases a class name and drops word separators.
func foldClassName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '_', '-':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
