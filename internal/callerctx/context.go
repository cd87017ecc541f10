// Package callerctx carries the request caller's identity: an authenticated
// account ID, anonymous device IDs, or both. A request may present several
// device identifiers (current plus previously stored ones) and every core
// operation must consider all of them.
package callerctx

import (
	"context"
	"strings"
)

// Identity is the request-scoped caller identity. It is never persisted.
type Identity struct {
	AccountID string
	DeviceIDs []string
	LastIP    string
}

// IsAnonymous reports whether the caller has no authenticated account.
func (id Identity) IsAnonymous() bool {
	return strings.TrimSpace(id.AccountID) == ""
}

// IsEmpty reports whether the caller presented no usable identifier at all.
func (id Identity) IsEmpty() bool {
	return id.IsAnonymous() && len(id.DeviceIDs) == 0
}

// OwnerRefs returns every identifier that could own a credit transaction:
// the account ID (if any) followed by all device IDs.
func (id Identity) OwnerRefs() []string {
	refs := make([]string, 0, len(id.DeviceIDs)+1)
	if !id.IsAnonymous() {
		refs = append(refs, id.AccountID)
	}
	refs = append(refs, id.DeviceIDs...)
	return refs
}

// Normalize trims identifiers and drops empties and duplicates.
func (id Identity) Normalize() Identity {
	out := Identity{
		AccountID: strings.TrimSpace(id.AccountID),
		LastIP:    strings.TrimSpace(id.LastIP),
	}
	seen := make(map[string]struct{}, len(id.DeviceIDs))
	for _, device := range id.DeviceIDs {
		device = strings.TrimSpace(device)
		if device == "" {
			continue
		}
		if _, ok := seen[device]; ok {
			continue
		}
		seen[device] = struct{}{}
		out.DeviceIDs = append(out.DeviceIDs, device)
	}
	return out
}

type identityKey struct{}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id.Normalize())
}

// FromContext returns the caller identity from context, if set.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
