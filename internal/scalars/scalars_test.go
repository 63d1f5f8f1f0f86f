package scalars

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigIntScalar(t *testing.T) {
	scalar := BigInt()

	assert.Equal(t, "9223372036854775807", scalar.Serialize(int64(math.MaxInt64)))
	assert.Equal(t, "-1", scalar.Serialize(-1))
	assert.Nil(t, scalar.Serialize(1.5))
	assert.Nil(t, scalar.Serialize(float64(math.MaxInt64)*2))

	parsed := scalar.ParseValue("42")
	require.IsType(t, int64(0), parsed)
	assert.Equal(t, int64(42), parsed)
	assert.Nil(t, scalar.ParseValue("not-a-number"))

	assert.Equal(t, int64(7), scalar.ParseLiteral(&ast.IntValue{Value: "7"}))
	assert.Equal(t, int64(8), scalar.ParseLiteral(&ast.StringValue{Value: "8"}))
	assert.Nil(t, scalar.ParseLiteral(&ast.BooleanValue{Value: true}))
}

func TestNonNegativeIntScalar(t *testing.T) {
	scalar := NonNegativeInt()

	assert.Equal(t, 3, scalar.Serialize(3))
	assert.Nil(t, scalar.Serialize(-1))
	assert.Equal(t, 4, scalar.ParseValue("4"))
	assert.Nil(t, scalar.ParseValue("-2"))
	assert.Nil(t, scalar.ParseValue(int64(math.MaxInt32)+1))
	assert.Equal(t, 7, scalar.ParseLiteral(&ast.IntValue{Value: "7"}))
	assert.Nil(t, scalar.ParseLiteral(&ast.StringValue{Value: "7"}))
}

func TestJSONScalar(t *testing.T) {
	scalar := JSON()

	serialized := scalar.Serialize([]any{"BE", 12.5, nil})
	assert.Equal(t, `["BE",12.5,null]`, serialized)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(scalar.Serialize(map[string]any{"ok": true}).(string)), &decoded))
	assert.Equal(t, true, decoded["ok"])

	assert.Equal(t, `{"ok":true}`, scalar.ParseValue(`{"ok":true}`))
	assert.Nil(t, scalar.ParseValue(`{broken`))
	assert.Nil(t, scalar.Serialize(nil))
}
