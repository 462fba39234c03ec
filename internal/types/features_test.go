package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatures_PreservesOrder(t *testing.T) {
	src := `{"rookie":true,"autograph":{"signer":"Jeter","on_card":true},"serial":"12/99","grade":9.5}`

	var f Features
	require.NoError(t, json.Unmarshal([]byte(src), &f))

	assert.Equal(t, []string{"rookie", "autograph", "serial", "grade"}, f.Keys())
	grade, ok := f.Get("grade")
	require.True(t, ok)
	assert.Equal(t, 9.5, grade)

	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"rookie":true,"autograph":{"on_card":true,"signer":"Jeter"},"serial":"12/99","grade":9.5}`, string(out))
}

func TestFeatures_EmptyAndNull(t *testing.T) {
	var zero Features
	out, err := json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))

	var fromNull Features
	fromNull.Set("stale", 1)
	require.NoError(t, json.Unmarshal([]byte(`null`), &fromNull))
	assert.Equal(t, 0, fromNull.Len())

	var fromEmpty Features
	require.NoError(t, json.Unmarshal([]byte(`{}`), &fromEmpty))
	assert.Equal(t, Features{}, fromEmpty)
}

func TestFeatures_RejectsNonObject(t *testing.T) {
	var f Features
	assert.Error(t, json.Unmarshal([]byte(`["a","b"]`), &f))
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &f))
}

func TestFeatures_SetReplaceDelete(t *testing.T) {
	f, err := NewFeatures("a", 1, "b", 2, "c", 3)
	require.NoError(t, err)

	f.Set("a", 10)
	assert.Equal(t, []string{"a", "b", "c"}, f.Keys())

	f.Delete("b")
	assert.Equal(t, []string{"a", "c"}, f.Keys())

	f.Delete("a")
	f.Delete("c")
	assert.Equal(t, Features{}, f)

	_, err = NewFeatures("dangling")
	assert.Error(t, err)
	_, err = NewFeatures(1, "x")
	assert.Error(t, err)
}

func TestFeatures_InsideCard(t *testing.T) {
	body := `{"user_id":1,"playerName":"Mays","year":1952,"brand":"Topps","setName":"Base","sport":"Baseball","cardNumber":"261","condition":"VG","features":{"z":1,"a":2}}`

	var req CardRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	fields, err := req.Fields()
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, fields.Features.Keys())
	assert.False(t, fields.Sold)
	assert.Nil(t, fields.FrontImageURL)
}
