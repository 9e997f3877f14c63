package postgres

import (
	"testing"
	"time"

	"github.com/phrazzld/taskr-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListQuery(t *testing.T) {
	t.Parallel()

	before := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	after := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    store.TaskFilter
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "no filter orders by id",
			filter:    store.TaskFilter{},
			wantQuery: "SELECT " + taskColumns + " FROM tasks ORDER BY id ASC",
			wantArgs:  nil,
		},
		{
			name:   "statuses are lower-cased into an IN list",
			filter: store.TaskFilter{Statuses: []string{"pending", "In Progress"}},
			wantQuery: "SELECT " + taskColumns +
				" FROM tasks WHERE lower(status) IN ($1, $2) ORDER BY id ASC",
			wantArgs: []any{"pending", "in progress"},
		},
		{
			name:   "title matches case-insensitively",
			filter: store.TaskFilter{Title: "Write Report"},
			wantQuery: "SELECT " + taskColumns +
				" FROM tasks WHERE lower(title) = lower($1) ORDER BY id ASC",
			wantArgs: []any{"Write Report"},
		},
		{
			name: "all filters combine with AND and sort desc",
			filter: store.TaskFilter{
				Statuses:  []string{"done"},
				Title:     "x",
				DueBefore: &before,
				DueAfter:  &after,
				Sort:      store.SortDesc,
			},
			wantQuery: "SELECT " + taskColumns +
				" FROM tasks WHERE lower(status) IN ($1) AND lower(title) = lower($2)" +
				" AND due_date < $3 AND due_date > $4 ORDER BY due_date DESC, id ASC",
			wantArgs: []any{"done", "x", before, after},
		},
		{
			name:   "sort asc",
			filter: store.TaskFilter{Sort: store.SortAsc},
			wantQuery: "SELECT " + taskColumns +
				" FROM tasks ORDER BY due_date ASC, id ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := buildListQuery(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	t.Run("unknown sort is rejected", func(t *testing.T) {
		t.Parallel()
		_, _, err := buildListQuery(store.TaskFilter{Sort: store.SortDirection("sideways")})
		assert.ErrorIs(t, err, store.ErrInvalidFilter)
	})
}
