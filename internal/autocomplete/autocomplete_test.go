package autocomplete

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/restadmin/internal/record"
	"github.com/koustreak/restadmin/internal/schema"
	"github.com/koustreak/restadmin/internal/value"
)

const usersDoc = `{
	"definitions": {
		"users": {
			"required": [],
			"properties": {
				"id": {"type": "integer", "description": "Primary Key"},
				"name": {"type": "string"}
			}
		}
	}
}`

var userParams = value.ForeignKeyParams{
	Table: "users", PrimaryKeyName: "id", LabelColumn: "name",
}

func userRows(t *testing.T, pairs ...any) []*record.Record {
	t.Helper()
	s, err := schema.Decode([]byte(usersDoc), schema.Overrides{})
	require.NoError(t, err)
	def, _ := s.Table("users")

	var rows []*record.Record
	for i := 0; i < len(pairs); i += 2 {
		row := fmt.Sprintf(`{"id": %d, "name": %q}`, pairs[i], pairs[i+1])
		r, err := record.Decode(def, json.RawMessage(row))
		require.NoError(t, err)
		rows = append(rows, r)
	}
	return rows
}

func TestMatchDisplay(t *testing.T) {
	m := Match{Key: value.PKFromInt(7), Label: "Ada"}
	assert.Equal(t, "7 - Ada", m.Display())

	m = Match{Key: value.PKFromInt(7)}
	assert.Equal(t, "7", m.Display())
}

func TestBegin_EmptyInputNeverQueries(t *testing.T) {
	s := NewSession("owner_id", userParams)
	match, _, query := s.Begin("")
	assert.Nil(t, match)
	assert.False(t, query)
}

func TestBegin_ResolvesLocallyFirst(t *testing.T) {
	s := NewSession("owner_id", userParams)
	match, tag, query := s.Begin("ad")
	require.Nil(t, match)
	require.True(t, query)
	require.True(t, s.Apply(tag, userRows(t, 7, "Ada", 8, "Grace")))

	// A label match against the cached candidates skips the query.
	match, _, query = s.Begin("ada")
	require.NotNil(t, match)
	assert.False(t, query)
	assert.Equal(t, value.PKFromInt(7), match.Key)

	// The composed display string resolves too.
	match, _, query = s.Begin("7 - Ada")
	require.NotNil(t, match)
	assert.False(t, query)

	// Unresolvable input falls through to a fresh query.
	match, tag, query = s.Begin("gr")
	assert.Nil(t, match)
	assert.True(t, query)
	assert.Equal(t, Tag{Column: "owner_id", Input: "gr"}, tag)
}

func TestBlockedStateSuppressesRefinements(t *testing.T) {
	s := NewSession("owner_id", userParams)

	// A query for "zz" comes back empty: the session blocks.
	_, tag, query := s.Begin("zz")
	require.True(t, query)
	require.True(t, s.Apply(tag, nil))
	assert.True(t, s.Blocked())

	// Typing more characters refines a filter that already matched nothing;
	// no query is issued.
	match, _, query := s.Begin("zzz")
	assert.Nil(t, match)
	assert.False(t, query)
	assert.True(t, s.Blocked())

	// Same length, different text: still suppressed.
	_, _, query = s.Begin("zzy")
	assert.False(t, query)

	// Deleting below the failed length unblocks and re-queries.
	_, tag, query = s.Begin("z")
	require.True(t, query)
	assert.False(t, s.Blocked())

	// A non-empty result set clears the block for good.
	require.True(t, s.Apply(tag, userRows(t, 7, "Zoe")))
	assert.False(t, s.Blocked())
	_, _, query = s.Begin("zo")
	assert.True(t, query)
}

func TestApply_StaleResponseDiscarded(t *testing.T) {
	s := NewSession("owner_id", userParams)

	_, slowTag, _ := s.Begin("a")
	_, fastTag, _ := s.Begin("ad")

	// The later query's results land first.
	require.True(t, s.Apply(fastTag, userRows(t, 7, "Ada")))

	// The earlier, now-stale response must not overwrite them.
	assert.False(t, s.Apply(slowTag, userRows(t, 1, "Aaron", 2, "Abel")))

	candidates := s.Candidates()
	require.Len(t, candidates, 1)
	assert.Equal(t, "7 - Ada", candidates[0].Display())
}

func TestApply_ColumnMismatchDiscarded(t *testing.T) {
	s := NewSession("owner_id", userParams)
	_, _, _ = s.Begin("ad")
	assert.False(t, s.Apply(Tag{Column: "other", Input: "ad"}, userRows(t, 7, "Ada")))
}

func TestCandidates_Snapshot(t *testing.T) {
	s := NewSession("owner_id", userParams)
	_, tag, _ := s.Begin("a")
	require.True(t, s.Apply(tag, userRows(t, 7, "Ada", 8, "Alan")))

	candidates := s.Candidates()
	require.Len(t, candidates, 2)
	assert.Equal(t, "7 - Ada", candidates[0].Display())
	assert.Equal(t, "8 - Alan", candidates[1].Display())
}
