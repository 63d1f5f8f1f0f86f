// Package scalars defines the custom GraphQL scalars used by the joinpath API.
package scalars

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// NonNegativeInt is an Int that rejects negative values.
func NonNegativeInt() *graphql.Scalar {
	coerce := func(value interface{}) interface{} {
		n, ok := toInt64(value)
		if !ok || n < 0 || n > math.MaxInt32 {
			return nil
		}
		return int(n)
	}
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "NonNegativeInt",
		Description: "An integer greater than or equal to zero.",
		Serialize:   coerce,
		ParseValue:  coerce,
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if v, ok := valueAST.(*ast.IntValue); ok {
				return coerce(v.Value)
			}
			return nil
		},
	})
}

// BigInt carries 64-bit integers such as table sizes and path scores. It is
// serialized as a decimal string.
func BigInt() *graphql.Scalar {
	parse := func(value interface{}) interface{} {
		if n, ok := toInt64(value); ok {
			return n
		}
		return nil
	}
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "BigInt",
		Description: "64-bit integer value serialized as a string.",
		Serialize: func(value interface{}) interface{} {
			if n, ok := toInt64(value); ok {
				return strconv.FormatInt(n, 10)
			}
			return nil
		},
		ParseValue: parse,
		ParseLiteral: func(valueAST ast.Value) interface{} {
			switch v := valueAST.(type) {
			case *ast.IntValue:
				return parse(v.Value)
			case *ast.StringValue:
				return parse(v.Value)
			default:
				return nil
			}
		},
	})
}

// JSON serializes any value as a JSON document string.
func JSON() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "JSON",
		Description: "Arbitrary JSON value serialized as a string.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case nil:
				return nil
			case string:
				return v
			case []byte:
				return string(v)
			default:
				serialized, err := json.Marshal(v)
				if err != nil {
					slog.Default().Warn("failed to serialize JSON scalar", slog.String("error", err.Error()))
					return nil
				}
				return string(serialized)
			}
		},
		ParseValue: func(value interface{}) interface{} {
			if s, ok := value.(string); ok && json.Valid([]byte(s)) {
				return s
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok && json.Valid([]byte(sv.Value)) {
				return sv.Value
			}
			return nil
		},
	})
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
