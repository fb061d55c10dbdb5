package packager

import (
	"context"
	"strings"

	"github.com/carrel-io/ferry/pkg/types"
)

// StatusProcessor interprets a target-native status document for a
// deposit and maps it onto a deposit status. Returning the zero status
// means the document used a term the mapping does not know.
type StatusProcessor interface {
	Process(ctx context.Context, d *types.Deposit, cfg *TargetConfig) (types.DepositStatus, error)
}

// Packager is everything needed to transfer custody to one target:
// an assembler, a transport, a status interpreter, and the target's
// configuration.
type Packager struct {
	Name      string
	Assembler Assembler
	Transport Transport
	Status    StatusProcessor
	Config    *TargetConfig
}

// Registry maps target repositories to their Packager. It is read-only
// after startup and safe for concurrent lookups.
type Registry struct {
	packagers map[string]*Packager
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{packagers: make(map[string]*Packager)}
}

// Register binds a packager to a target key
func (r *Registry) Register(key string, p *Packager) {
	r.packagers[key] = p
}

// Lookup resolves a packager for a repository key or identifier. Four
// key forms are recognized, tried in order:
//
//  1. the string as given (short key or full identifier)
//  2. the trailing path component
//  3. progressively shorter path suffixes ("a/b/c", "b/c", "c")
//
// A miss returns nil; callers treat a miss as a configuration error.
func (r *Registry) Lookup(key string) *Packager {
	if key == "" {
		return nil
	}
	if p, ok := r.packagers[key]; ok {
		return p
	}

	path := key
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
	}
	path = strings.Trim(path, "/")
	segments := strings.Split(path, "/")

	// Trailing path component
	if p, ok := r.packagers[segments[len(segments)-1]]; ok {
		return p
	}

	// Recursive suffix
	for i := 0; i < len(segments); i++ {
		if p, ok := r.packagers[strings.Join(segments[i:], "/")]; ok {
			return p
		}
	}
	return nil
}

// LookupRepository resolves a packager for a repository entity, trying
// its configured key first and falling back to its identifier
func (r *Registry) LookupRepository(repo *types.Repository) *Packager {
	if repo == nil {
		return nil
	}
	if p := r.Lookup(repo.Key); p != nil {
		return p
	}
	return r.Lookup(repo.ID)
}

// Keys returns the registered target keys
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.packagers))
	for k := range r.packagers {
		keys = append(keys, k)
	}
	return keys
}
