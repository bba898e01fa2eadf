package roles

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalize_CanonicalRolesMapToThemselves(t *testing.T) {
	for _, r := range hierarchy {
		base, ok := Canonicalize(r)
		require.True(t, ok, "role %s should be recognized", r)
		require.Equal(t, r, base)
	}
}

func TestCanonicalize_Aliases(t *testing.T) {
	cases := map[Role]Role{
		RoleDeputyAXH:        RoleDeputy,
		RoleSysadmin:         RoleStaff,
		RoleFoodDispatcher:   RoleStaff,
		RoleLibrarian:        RoleStaff,
		RolePsychologist:     RoleTeacher,
		RoleEducationAdviser: RoleTeacherPlus,
	}

	for alias, want := range cases {
		base, ok := Canonicalize(alias)
		require.True(t, ok, "alias %s should be recognized", alias)
		require.Equal(t, want, base)
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	for _, r := range All() {
		base, ok := Canonicalize(r)
		require.True(t, ok)

		again, ok := Canonicalize(base)
		require.True(t, ok)
		require.Equal(t, base, again)
	}
}

func TestCanonicalize_Unknown(t *testing.T) {
	for _, r := range []Role{"", "principal", "DIRECTOR", "deputy "} {
		_, ok := Canonicalize(r)
		require.False(t, ok, "role %q should not be recognized", r)
	}
}

func TestPowerOf_StrictlyAscending(t *testing.T) {
	prev := 0
	for _, r := range hierarchy {
		p := PowerOf(r)
		require.Greater(t, p, prev, "power of %s should exceed its predecessor", r)
		prev = p
	}
}

func TestPowerOf_AliasMatchesBase(t *testing.T) {
	for alias, base := range aliases {
		require.Equal(t, PowerOf(base), PowerOf(alias))
	}
}

func TestPowerOf_UnknownIsZero(t *testing.T) {
	require.Equal(t, 0, PowerOf(""))
	require.Equal(t, 0, PowerOf("janitor"))
}

func TestFullAccessPower(t *testing.T) {
	require.Equal(t, PowerOf(RoleDeputyPlus), FullAccessPower)

	require.Less(t, PowerOf(RoleDeputy), FullAccessPower)
	require.Less(t, PowerOf(RoleDeputyAXH), FullAccessPower)
	require.GreaterOrEqual(t, PowerOf(RoleDirector), FullAccessPower)
}

func TestValid(t *testing.T) {
	require.True(t, Valid(RoleTeacher))
	require.True(t, Valid(RoleSysadmin))
	require.False(t, Valid("superuser"))
	require.False(t, Valid(""))
}
