// Package registry implements the pluggable datasource registry and the
// named-query registry: copy-on-write snapshots of {id -> entry},
// digest-deduped hot reload, and reference-counted
// deferred close so an in-flight request never has its DataSource yanked out
// from under it.
package registry

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SRVLookup abstracts the DNS SRV lookup Resolver needs, so tests can stub
// it instead of hitting real DNS.
type SRVLookup interface {
	LookupSRV(ctx context.Context, name string) (host string, port uint16, err error)
}

// netSRVLookup is the production SRVLookup, backed by net.DefaultResolver.
type netSRVLookup struct{}

func (netSRVLookup) LookupSRV(ctx context.Context, name string) (string, uint16, error) {
	_, addrs, err := net.DefaultResolver.LookupSRV(ctx, "", "", name)
	if err != nil || len(addrs) == 0 {
		return "", 0, fmt.Errorf("registry: SRV lookup for %q failed: %w", name, err)
	}
	return strings.TrimSuffix(addrs[0].Target, "."), addrs[0].Port, nil
}

// Resolver substitutes "{{name}}" / "{{host:name}}" / "{{port:name}}"
// placeholders in a connection string. Unresolvable names
// are left untouched (literal "{{...}}" preserved) rather than erroring,
// since a partially-down DNS shouldn't prevent the bridge from starting.
type Resolver struct {
	lookup SRVLookup
}

// NewResolver returns a Resolver backed by real DNS.
func NewResolver() *Resolver {
	return &Resolver{lookup: netSRVLookup{}}
}

// NewResolverWithLookup returns a Resolver backed by a custom SRVLookup,
// for tests.
func NewResolverWithLookup(l SRVLookup) *Resolver {
	return &Resolver{lookup: l}
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*(host:|port:)?([^{}]*?)\s*\}\}`)

// Resolve substitutes every "{{...}}" placeholder in uri.
func (r *Resolver) Resolve(ctx context.Context, uri string) string {
	return placeholderPattern.ReplaceAllStringFunc(uri, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		kind, name := groups[1], groups[2]

		host, port, err := r.lookup.LookupSRV(ctx, name)
		if err != nil {
			return match // preserve literal "{{...}}"
		}

		switch kind {
		case "host:":
			return host
		case "port:":
			return strconv.Itoa(int(port))
		default:
			return host + ":" + strconv.Itoa(int(port))
		}
	})
}

// ResolveWithTimeout is a convenience wrapper used outside request paths
// (e.g. reload) where no request context is already in scope.
func (r *Resolver) ResolveWithTimeout(uri string, timeout time.Duration) string {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.Resolve(ctx, uri)
}
