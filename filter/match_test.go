package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabeth/concretens/models"
)

func mustValidate(t *testing.T, raw string) Policy {
	t.Helper()
	p, err := Validate(raw)
	require.NoError(t, err)
	return p
}

func stringAttr(v string) models.MessageAttributeValue {
	return models.MessageAttributeValue{DataType: "String", StringValue: v}
}

func numberAttr(v string) models.MessageAttributeValue {
	return models.MessageAttributeValue{DataType: "Number", StringValue: v}
}

func arrayAttr(v string) models.MessageAttributeValue {
	return models.MessageAttributeValue{DataType: "String.Array", StringValue: v}
}

func TestMatchesEmptyPolicy(t *testing.T) {
	attrs := map[string]models.MessageAttributeValue{"store": stringAttr("example_corp")}

	var nilPolicy Policy
	assert.True(t, nilPolicy.Matches(attrs))
	assert.True(t, mustValidate(t, `{}`).Matches(attrs))
}

func TestMatchesStringLiterals(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		attrs  map[string]models.MessageAttributeValue
		want   bool
	}{
		{
			"exact match",
			`{"store": ["example_corp"]}`,
			map[string]models.MessageAttributeValue{"store": stringAttr("example_corp")},
			true,
		},
		{
			"no match",
			`{"store": ["example_corp"]}`,
			map[string]models.MessageAttributeValue{"store": stringAttr("other_corp")},
			false,
		},
		{
			"or across rule list",
			`{"store": ["example_corp", "other_corp"]}`,
			map[string]models.MessageAttributeValue{"store": stringAttr("other_corp")},
			true,
		},
		{
			"and across fields",
			`{"store": ["example_corp"], "event": ["order_placed"]}`,
			map[string]models.MessageAttributeValue{
				"store": stringAttr("example_corp"),
				"event": stringAttr("order_cancelled"),
			},
			false,
		},
		{
			"missing attribute",
			`{"store": ["example_corp"]}`,
			map[string]models.MessageAttributeValue{},
			false,
		},
		{
			"string array element",
			`{"store": ["example_corp"]}`,
			map[string]models.MessageAttributeValue{"store": arrayAttr(`["example_corp", "other_corp"]`)},
			true,
		},
		{
			"string array without element",
			`{"store": ["example_corp"]}`,
			map[string]models.MessageAttributeValue{"store": arrayAttr(`["other_corp"]`)},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustValidate(t, tt.policy).Matches(tt.attrs))
		})
	}
}

func TestMatchesNumberLiterals(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		attrs  map[string]models.MessageAttributeValue
		want   bool
	}{
		{
			"exact match",
			`{"price": [100]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("100")},
			true,
		},
		{
			"within six-decimal precision",
			`{"price": [1.0000001]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("1.0000005")},
			true,
		},
		{
			"beyond six-decimal precision",
			`{"price": [1.00001]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("1.00002")},
			false,
		},
		{
			"number in string array",
			`{"price": [100]}`,
			map[string]models.MessageAttributeValue{"price": arrayAttr(`[100, 200]`)},
			true,
		},
		{
			"bare number in string array",
			`{"price": [5]}`,
			map[string]models.MessageAttributeValue{"price": arrayAttr(`5`)},
			true,
		},
		{
			"unparseable string array",
			`{"price": [5]}`,
			map[string]models.MessageAttributeValue{"price": arrayAttr(`not json`)},
			false,
		},
		{
			"string attribute never matches",
			`{"price": [100]}`,
			map[string]models.MessageAttributeValue{"price": stringAttr("100")},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustValidate(t, tt.policy).Matches(tt.attrs))
		})
	}
}

func TestMatchesExists(t *testing.T) {
	present := map[string]models.MessageAttributeValue{"store": stringAttr("example_corp")}
	absent := map[string]models.MessageAttributeValue{}

	assert.True(t, mustValidate(t, `{"store": [{"exists": true}]}`).Matches(present))
	assert.False(t, mustValidate(t, `{"store": [{"exists": true}]}`).Matches(absent))
	assert.True(t, mustValidate(t, `{"store": [{"exists": false}]}`).Matches(absent))
	assert.False(t, mustValidate(t, `{"store": [{"exists": false}]}`).Matches(present))
}

func TestMatchesPrefix(t *testing.T) {
	policy := mustValidate(t, `{"store": [{"prefix": "example"}]}`)

	assert.True(t, policy.Matches(map[string]models.MessageAttributeValue{"store": stringAttr("example_corp")}))
	assert.False(t, policy.Matches(map[string]models.MessageAttributeValue{"store": stringAttr("other_corp")}))
	assert.False(t, policy.Matches(map[string]models.MessageAttributeValue{"store": numberAttr("100")}))
	assert.False(t, policy.Matches(map[string]models.MessageAttributeValue{}))
}

func TestMatchesAnythingBut(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		attrs  map[string]models.MessageAttributeValue
		want   bool
	}{
		{
			"excluded string",
			`{"store": [{"anything-but": "example_corp"}]}`,
			map[string]models.MessageAttributeValue{"store": stringAttr("example_corp")},
			false,
		},
		{
			"other string",
			`{"store": [{"anything-but": "example_corp"}]}`,
			map[string]models.MessageAttributeValue{"store": stringAttr("other_corp")},
			true,
		},
		{
			"excluded element in list",
			`{"store": [{"anything-but": ["a", "b"]}]}`,
			map[string]models.MessageAttributeValue{"store": stringAttr("b")},
			false,
		},
		{
			"excluded number",
			`{"price": [{"anything-but": 100}]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("100")},
			false,
		},
		{
			"other number",
			`{"price": [{"anything-but": 100}]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("50")},
			true,
		},
		{
			"excluded prefix",
			`{"store": [{"anything-but": {"prefix": "example"}}]}`,
			map[string]models.MessageAttributeValue{"store": stringAttr("example_corp")},
			false,
		},
		{
			"other prefix",
			`{"store": [{"anything-but": {"prefix": "example"}}]}`,
			map[string]models.MessageAttributeValue{"store": stringAttr("other_corp")},
			true,
		},
		{
			"array containing excluded element",
			`{"store": [{"anything-but": "a"}]}`,
			map[string]models.MessageAttributeValue{"store": arrayAttr(`["a", "b"]`)},
			false,
		},
		{
			"missing attribute",
			`{"store": [{"anything-but": "a"}]}`,
			map[string]models.MessageAttributeValue{},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustValidate(t, tt.policy).Matches(tt.attrs))
		})
	}
}

func TestMatchesNumericRanges(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		attrs  map[string]models.MessageAttributeValue
		want   bool
	}{
		{
			"within range",
			`{"price": [{"numeric": [">", 0, "<", 10]}]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("5")},
			true,
		},
		{
			"at exclusive bound",
			`{"price": [{"numeric": [">", 0, "<", 10]}]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("10")},
			false,
		},
		{
			"at inclusive bound",
			`{"price": [{"numeric": [">=", 0, "<=", 10]}]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("10")},
			true,
		},
		{
			"equality",
			`{"price": [{"numeric": ["=", 100]}]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("100")},
			true,
		},
		{
			"string attribute never matches",
			`{"price": [{"numeric": [">", 0]}]}`,
			map[string]models.MessageAttributeValue{"price": stringAttr("5")},
			false,
		},
		{
			"failed range falls through to next rule",
			`{"price": [{"numeric": [">", 100]}, 5]}`,
			map[string]models.MessageAttributeValue{"price": numberAttr("5")},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustValidate(t, tt.policy).Matches(tt.attrs))
		})
	}
}

func TestMatchesBooleanAndNullNeverMatch(t *testing.T) {
	attrs := map[string]models.MessageAttributeValue{"active": stringAttr("true")}

	assert.False(t, mustValidate(t, `{"active": [true]}`).Matches(attrs))
	assert.False(t, mustValidate(t, `{"active": [null]}`).Matches(attrs))
}
