package platforms

import "github.com/PuerkitoBio/goquery"

// Identity identifies one logical piece of content. Units rendered several
// times (re-render on scroll) share the same URL and thus the same identity.
type Identity struct {
	URL    string // canonical permalink, query stripped
	Handle string // author handle, lowercased
}

// Platform describes how content units look in a host feed, abstracting
// away the markup details of each social site.
type Platform interface {
	Name() string
	// UnitSelector matches the root element of one content unit.
	UnitSelector() string
	// Identify extracts the identity of a unit. ok is false when the unit has
	// no recognisable permalink or author handle.
	Identify(unit *goquery.Selection) (id Identity, ok bool)
	// Title returns a short plain-text summary of the unit, possibly empty.
	Title(unit *goquery.Selection) string
}
