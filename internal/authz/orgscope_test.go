package authz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrgTree map[uint64]struct {
	path     string
	unitType string
}

func (f fakeOrgTree) FindPathAndType(_ context.Context, id uint64) (string, string, error) {
	u, ok := f[id]
	if !ok {
		return "", "", fmt.Errorf("подразделение %d не найдено", id)
	}
	return u.path, u.unitType, nil
}

// дерево: министерство(1) -> регион(2) -> школа(3), школа(4) в другом регионе(5)
func testTree() fakeOrgTree {
	return fakeOrgTree{
		1: {path: "/00000001", unitType: "ministry"},
		2: {path: "/00000001/00000002", unitType: "region"},
		3: {path: "/00000001/00000002/00000003", unitType: "school"},
		4: {path: "/00000001/00000005/00000004", unitType: "school"},
		5: {path: "/00000001/00000005", unitType: "region"},
	}
}

func TestInScope_Self(t *testing.T) {
	scope := NewOrgScope(testTree())

	ok, err := scope.InScope(context.Background(), 3, ScopeSelf, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = scope.InScope(context.Background(), 3, ScopeSelf, 4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInScope_RegionCoversOwnSchools(t *testing.T) {
	scope := NewOrgScope(testTree())

	// наблюдатель из школы 3 с региональной областью видит свою школу
	ok, err := scope.InScope(context.Background(), 3, ScopeRegion, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// но не школу из чужого региона
	ok, err = scope.InScope(context.Background(), 3, ScopeRegion, 4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInScope_MinistryCoversAll(t *testing.T) {
	scope := NewOrgScope(testTree())

	for _, target := range []uint64{1, 2, 3, 4, 5} {
		ok, err := scope.InScope(context.Background(), 3, ScopeMinistry, target)
		require.NoError(t, err)
		assert.True(t, ok, "цель %d должна входить в министерскую область", target)
	}
}

func TestInScope_ZeroIDsDenied(t *testing.T) {
	scope := NewOrgScope(testTree())

	ok, err := scope.InScope(context.Background(), 0, ScopeMinistry, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = scope.InScope(context.Background(), 3, ScopeMinistry, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInScope_UnknownLevelFallsBackToSelf(t *testing.T) {
	scope := NewOrgScope(testTree())

	ok, err := scope.InScope(context.Background(), 2, "GALAXY", 3)
	require.NoError(t, err)
	assert.True(t, ok, "неизвестный уровень сводится к собственному пути наблюдателя")
}

func TestAncestorIDs(t *testing.T) {
	assert.Equal(t, []uint64{1, 2}, ancestorIDs("/00000001/00000002/00000003"))
	assert.Empty(t, ancestorIDs("/00000001"))
	assert.Empty(t, ancestorIDs(""))
}
