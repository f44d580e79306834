package lifecycle

import "portaria/internal/domain"

// Op names the entry point that is allowed to walk an edge.
type Op string

const (
	OpTransition Op = "transition"
	OpRevoke     Op = "revoke"
)

// Edge is one declared status change.
type Edge struct {
	From domain.Status
	To   domain.Status
	Op   Op
}

// Edges is the complete status graph. Every caller (engine, HTTP menus, CLI)
// reads legality from here.
var Edges = []Edge{
	{From: domain.StatusDraft, To: domain.StatusAwaitingSignature, Op: OpTransition},
	{From: domain.StatusAwaitingSignature, To: domain.StatusSigned, Op: OpTransition},
	{From: domain.StatusSigned, To: domain.StatusAwaitingPublication, Op: OpTransition},
	{From: domain.StatusAwaitingPublication, To: domain.StatusPublished, Op: OpTransition},
	{From: domain.StatusPublished, To: domain.StatusInForce, Op: OpTransition},

	// Revoking an act still awaiting signature is kept permissive.
	{From: domain.StatusAwaitingSignature, To: domain.StatusRevoked, Op: OpRevoke},
	{From: domain.StatusSigned, To: domain.StatusRevoked, Op: OpRevoke},
	{From: domain.StatusAwaitingPublication, To: domain.StatusRevoked, Op: OpRevoke},
	{From: domain.StatusPublished, To: domain.StatusRevoked, Op: OpRevoke},
	{From: domain.StatusInForce, To: domain.StatusRevoked, Op: OpRevoke},
}

func lookup(from, to domain.Status) (Edge, bool) {
	for _, e := range Edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// CanTransition reports whether from -> to is a declared forward edge.
func CanTransition(from, to domain.Status) bool {
	e, ok := lookup(from, to)
	return ok && e.Op == OpTransition
}

// CanRevoke reports whether an act in status s may be revoked.
func CanRevoke(s domain.Status) bool {
	_, ok := lookup(s, domain.StatusRevoked)
	return ok
}

// CanRetify reports whether an act in status s may be corrected by a
// retification instrument.
func CanRetify(s domain.Status) bool {
	return s == domain.StatusPublished || s == domain.StatusInForce
}

// Next returns the single forward successor of s, if any.
func Next(s domain.Status) (domain.Status, bool) {
	for _, e := range Edges {
		if e.From == s && e.Op == OpTransition {
			return e.To, true
		}
	}
	return "", false
}

// Allowed lists the edges leaving s in table order.
func Allowed(s domain.Status) []Edge {
	var out []Edge
	for _, e := range Edges {
		if e.From == s {
			out = append(out, e)
		}
	}
	return out
}
