package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/resplan/internal/atom"
	"github.com/roach88/resplan/internal/ir"
)

// Rel builds a relation atom. Players are written "role:$var" or "$var".
func Rel(t testing.TB, typ string, players ...string) atom.Relation {
	t.Helper()
	return RelVar(t, "", typ, players...)
}

// RelVar builds a relation atom with a relation variable.
func RelVar(t testing.TB, v, typ string, players ...string) atom.Relation {
	t.Helper()
	rps := make([]atom.RolePlayer, len(players))
	for i, p := range players {
		role, player, found := strings.Cut(p, ":")
		if !found {
			role, player = "", p
		}
		rps[i] = atom.RolePlayer{Role: strings.TrimSpace(role), Player: player}
	}
	r, err := atom.NewRelation(v, typ, "", rps...)
	require.NoError(t, err)
	return r
}

// Has builds "$owner has typ $value"; an empty value leaves it absent.
func Has(t testing.TB, owner, typ, value string) atom.Attribute {
	t.Helper()
	a, err := atom.NewAttribute(owner, typ, value, nil)
	require.NoError(t, err)
	return a
}

// HasValue builds "$owner has typ 'value'".
func HasValue(t testing.TB, owner, typ, value string) atom.Attribute {
	t.Helper()
	a, err := atom.NewAttribute(owner, typ, "", ir.IRString(value))
	require.NoError(t, err)
	return a
}

// Isa builds "$v isa typ".
func Isa(t testing.TB, v, typ string) atom.Isa {
	t.Helper()
	i, err := atom.NewIsa(v, typ, "", false)
	require.NoError(t, err)
	return i
}

// IsaDirect builds "$v isa! typ".
func IsaDirect(t testing.TB, v, typ string) atom.Isa {
	t.Helper()
	i, err := atom.NewIsa(v, typ, "", true)
	require.NoError(t, err)
	return i
}

// IsaVar builds "$v isa $typeVar".
func IsaVar(t testing.TB, v, typeVar string, direct bool) atom.Isa {
	t.Helper()
	i, err := atom.NewIsa(v, "", typeVar, direct)
	require.NoError(t, err)
	return i
}

// ID builds "$v id id".
func ID(t testing.TB, v, id string) atom.IDPredicate {
	t.Helper()
	p, err := atom.NewIDPredicate(v, id)
	require.NoError(t, err)
	return p
}

// Eq builds "$v == 'value'".
func Eq(t testing.TB, v, value string) atom.Comparison {
	t.Helper()
	c, err := atom.NewComparison(atom.OpEq, v, "", ir.IRString(value))
	require.NoError(t, err)
	return c
}

// Neq builds "$left != $right".
func Neq(t testing.TB, left, right string) atom.Comparison {
	t.Helper()
	c, err := atom.NewComparison(atom.OpNeq, left, right, nil)
	require.NoError(t, err)
	return c
}
