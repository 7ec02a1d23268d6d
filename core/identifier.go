package core

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Identifier is a node name that is valid in a .bsa file: it starts with a
// letter or underscore and contains only [0-9a-zA-Z_].
type Identifier string

func (id Identifier) String() string { return string(id) }

// Suffix appends a fixed suffix, as used for companion nodes (mesh, lens, sensor).
func (id Identifier) Suffix(s string) Identifier { return id + Identifier(s) }

// Resolve turns a node name into an Identifier. Only the last '/' separated
// element of localName is used. When pathSeed is non-empty the first eight
// hex characters of its SHA1 are appended so that equal names at different
// paths stay distinct.
func Resolve(localName, pathSeed string) Identifier {
	if i := strings.LastIndexByte(localName, '/'); i >= 0 {
		localName = localName[i+1:]
	}
	s := sanitize(localName)
	if pathSeed != "" {
		sum := sha1.Sum([]byte(pathSeed))
		s += "_" + hex.EncodeToString(sum[:])[:8]
	}
	return Identifier(s)
}

func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isIdentChar(c) {
			b.WriteByte(c)
		}
	}
	s := b.String()
	// leading digits are not allowed
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	})
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

// Collision describes two seeds that produced the same Identifier.
type Collision struct {
	ID    Identifier
	First string
	Other string
}

func (c Collision) Error() string {
	return fmt.Sprintf("identifier %s issued for both %q and %q", c.ID, c.First, c.Other)
}

// Registry resolves identifiers and remembers which seed produced each one.
// It never changes the identifier it returns; collisions are only recorded
// and logged at debug level.
type Registry struct {
	mu         sync.Mutex
	seeds      map[Identifier]string
	collisions []Collision
	logger     *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		seeds:  make(map[Identifier]string),
		logger: logger,
	}
}

// Resolve behaves like the package level Resolve.
func (r *Registry) Resolve(localName, pathSeed string) Identifier {
	id := Resolve(localName, pathSeed)
	if r == nil {
		return id
	}
	key := pathSeed
	if key == "" {
		key = localName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.seeds[id]
	switch {
	case !ok:
		r.seeds[id] = key
	case prev != key:
		c := Collision{ID: id, First: prev, Other: key}
		r.collisions = append(r.collisions, c)
		if r.logger != nil {
			r.logger.Debug("identifier collision",
				slog.String("id", string(id)),
				slog.String("first", prev),
				slog.String("other", key))
		}
	}
	return id
}

// Collisions returns every collision seen so far.
func (r *Registry) Collisions() []Collision {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Collision, len(r.collisions))
	copy(out, r.collisions)
	return out
}
