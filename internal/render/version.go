package render

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Version identifies the raw content an entity was loaded with. It is taken
// when the entity is read and handed back on save; the zero Version stands
// for an entity that has never been persisted.
type Version struct {
	sum       uint64
	persisted bool
}

// VersionOf returns the version of persisted raw content.
func VersionOf(raw string) Version {
	return Version{sum: xxhash.Sum64String(raw), persisted: true}
}

// NeedsRender reports whether raw must be (re-)rendered on save.
func (v Version) NeedsRender(raw string) bool {
	return !v.persisted || v.sum != xxhash.Sum64String(raw)
}

// IsZero reports whether v belongs to an entity that was never saved.
func (v Version) IsZero() bool {
	return !v.persisted
}

// String returns the hex digest, or "none" for the zero Version.
func (v Version) String() string {
	if !v.persisted {
		return "none"
	}
	s := strconv.FormatUint(v.sum, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
