package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nconklindev/treegrid/internal/types"
)

func resolve(t *testing.T, grid types.Grid) (*Columns, error) {
	t.Helper()
	rows, err := Classify(grid, DefaultTokens())
	require.NoError(t, err)
	return ResolveHeaders(rows, DefaultTokens())
}

func TestResolveHeaders(t *testing.T) {
	tests := []struct {
		name     string
		grid     types.Grid
		expected []string
	}{
		{
			name: "Merged parent with inherit marker",
			grid: types.Grid{
				{"HEAD", "", "title", "users[]", "<", "<"},
				{"HEAD", "", "", "name", "?email", "tags[]"},
			},
			expected: []string{"title", "users[].name", "users[].?email", "users[].tags[]"},
		},
		{
			name: "Blank parent cells pad from the left",
			grid: types.Grid{
				{"HEAD", "", "colors[]", ""},
				{"HEAD", "", "name", "code"},
			},
			expected: []string{"colors[].name", "colors[].code"},
		},
		{
			name: "Shallow column after deep ones",
			grid: types.Grid{
				{"HEAD", "", "a", "<", "b"},
				{"HEAD", "", "x", "y", ""},
			},
			expected: []string{"a.x", "a.y", "b"},
		},
		{
			name: "Key prefix and array prefix",
			grid: types.Grid{
				{"LAYOUT", "", "#rules", "<"},
				{"LAYOUT", "", "[]rule", "#?note"},
			},
			expected: []string{"rules.rule[]", "rules.?note"},
		},
		{
			name: "Empty columns are skipped",
			grid: types.Grid{
				{"HEAD", "", "a", "", "b"},
			},
			expected: []string{"a", "b"},
		},
		{
			name: "Three levels",
			grid: types.Grid{
				{"HEAD", "", "mailServers[]", "<"},
				{"HEAD", "", "serverName", "auth"},
				{"HEAD", "", "", "user"},
			},
			expected: []string{"mailServers[].serverName", "mailServers[].auth.user"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := resolve(t, tt.grid)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cols.Paths(DefaultTokens()))
		})
	}
}

func TestResolveHeadersTrie(t *testing.T) {
	cols, err := resolve(t, types.Grid{
		{"HEAD", "", "users[]", "<", "<"},
		{"HEAD", "", "name", "roles[]", "<"},
		{"HEAD", "", "", "id", "?level"},
	})
	require.NoError(t, err)

	require.Len(t, cols.Root.Children, 1)
	users := cols.Root.Child("users")
	require.NotNil(t, users)
	assert.True(t, users.IsArray)
	assert.False(t, users.IsLeaf())

	roles := users.Child("roles")
	require.NotNil(t, roles)
	level := roles.Child("level")
	require.NotNil(t, level)
	assert.True(t, level.IsOptional)
	assert.Equal(t, 3, level.Depth)
	assert.Same(t, roles, level.Owner())
	assert.Same(t, users, users.Child("name").Owner())
	assert.Equal(t, "users[].roles[].?level", level.Format(DefaultTokens()))

	assert.Equal(t, 2, cols.Columns[2].Index)
	assert.Same(t, level, cols.Columns[2].Leaf)
	assert.Equal(t, 3, cols.HeaderRows)
	assert.False(t, cols.RootArray)
}

func TestResolveHeadersRootArray(t *testing.T) {
	cols, err := resolve(t, types.Grid{
		{"HEAD", "", "ROOT[]", "<"},
		{"HEAD", "", "id", "name"},
	})
	require.NoError(t, err)
	assert.True(t, cols.RootArray)
}

func TestResolveHeadersErrors(t *testing.T) {
	tests := []struct {
		name     string
		grid     types.Grid
		expected error
		cell     string
	}{
		{
			name:     "No header rows",
			grid:     types.Grid{{"DATA", "", "1"}},
			expected: ErrMissingHeader,
		},
		{
			name: "Duplicate path",
			grid: types.Grid{
				{"HEAD", "", "a", "a"},
			},
			expected: ErrDuplicateColumnPath,
			cell:     "D1",
		},
		{
			name: "Duplicate path through merge",
			grid: types.Grid{
				{"HEAD", "", "users[]", "<"},
				{"HEAD", "", "name", "<"},
			},
			expected: ErrDuplicateColumnPath,
			cell:     "D2",
		},
		{
			name: "Array and object at the same segment",
			grid: types.Grid{
				{"HEAD", "", "users[]", "users"},
				{"HEAD", "", "name", "id"},
			},
			expected: ErrInconsistentColumnDepth,
			cell:     "D2",
		},
		{
			name: "Leaf and parent",
			grid: types.Grid{
				{"HEAD", "", "a", "a"},
				{"HEAD", "", "", "b"},
			},
			expected: ErrInconsistentColumnDepth,
			cell:     "D2",
		},
		{
			name: "Gap with nothing to inherit",
			grid: types.Grid{
				{"HEAD", "", "", "a"},
				{"HEAD", "", "x", "y"},
			},
			expected: ErrInconsistentColumnDepth,
			cell:     "C1",
		},
		{
			name: "Inherit in the first column",
			grid: types.Grid{
				{"HEAD", "", "<"},
			},
			expected: ErrInconsistentColumnDepth,
			cell:     "C1",
		},
		{
			name: "Segment without a name",
			grid: types.Grid{
				{"HEAD", "", "[]"},
			},
			expected: ErrInvalidSegment,
			cell:     "C1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(t, tt.grid)
			require.ErrorIs(t, err, tt.expected)

			if tt.cell != "" {
				var pe *PositionError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.cell, pe.Cell())
			}
		})
	}
}
