package access

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanDefaultGrants(t *testing.T) {
	engine := NewEngine(DefaultGrants())

	t.Run("admin updates any user", func(t *testing.T) {
		v := engine.Can([]string{"admin"}, ActionUpdate, ResourceUser)
		require.True(t, v.Granted)
		require.Equal(t, PossessionAny, v.Possession)
	})

	t.Run("author updates only own user", func(t *testing.T) {
		v := engine.Can([]string{"author"}, ActionUpdate, ResourceUser)
		require.True(t, v.Granted)
		require.Equal(t, PossessionOwn, v.Possession)
	})

	t.Run("author cannot create users", func(t *testing.T) {
		v := engine.Can([]string{"author"}, ActionCreate, ResourceUser)
		require.False(t, v.Granted)
		require.Equal(t, PossessionNone, v.Possession)
	})

	t.Run("unknown role gets nothing", func(t *testing.T) {
		v := engine.Can([]string{"ghost"}, ActionRead, ResourceUser)
		require.False(t, v.Granted)
	})

	t.Run("empty role set gets nothing", func(t *testing.T) {
		v := engine.Can(nil, ActionRead, ResourceUser)
		require.False(t, v.Granted)
	})
}

func TestCanMostPermissiveWins(t *testing.T) {
	engine := NewEngine(DefaultGrants())

	// A caller holding both roles must get the admin's "any", regardless of
	// role order.
	for _, roles := range [][]string{
		{"author", "admin"},
		{"admin", "author"},
	} {
		v := engine.Can(roles, ActionUpdate, ResourceUser)
		require.True(t, v.Granted)
		require.Equal(t, PossessionAny, v.Possession, "roles=%v", roles)
	}
}

func TestNewEngineDeduplicatesGrants(t *testing.T) {
	// Duplicate grants for the same tuple keep the widest possession.
	engine := NewEngine([]Grant{
		{Role: "editor", Resource: ResourceUser, Action: ActionUpdate, Possession: PossessionAny},
		{Role: "editor", Resource: ResourceUser, Action: ActionUpdate, Possession: PossessionOwn},
	})

	v := engine.Can([]string{"editor"}, ActionUpdate, ResourceUser)
	require.Equal(t, PossessionAny, v.Possession)
}

func TestPossessionString(t *testing.T) {
	require.Equal(t, "none", PossessionNone.String())
	require.Equal(t, "own", PossessionOwn.String())
	require.Equal(t, "any", PossessionAny.String())
}
