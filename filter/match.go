package filter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tabeth/concretens/models"
)

// Matches reports whether a message's attribute set satisfies the policy.
// A nil or empty policy matches everything. Otherwise every field in the
// policy must have at least one satisfied rule: AND across fields, OR across
// a field's rule list.
func (p Policy) Matches(attrs map[string]models.MessageAttributeValue) bool {
	for field, rules := range p {
		if !fieldMatch(field, rules, attrs) {
			return false
		}
	}
	return true
}

func fieldMatch(field string, rules []Rule, attrs map[string]models.MessageAttributeValue) bool {
	for _, rule := range rules {
		if ruleMatch(field, rule, attrs) {
			return true
		}
	}
	return false
}

func ruleMatch(field string, rule Rule, attrs map[string]models.MessageAttributeValue) bool {
	attr, present := attrs[field]

	switch {
	case rule.Str != nil:
		if !present {
			return false
		}
		if attr.StringValue == *rule.Str {
			return true
		}
		// Fallback: the value may be a JSON array of strings, as used by
		// String.Array attributes.
		for _, v := range jsonStringElements(attr.StringValue) {
			if v == *rule.Str {
				return true
			}
		}
		return false

	case rule.Num != nil:
		if !present {
			return false
		}
		for _, v := range numericValues(attr) {
			if numericEqual(v, *rule.Num) {
				return true
			}
		}
		return false

	case rule.Exists != nil:
		return *rule.Exists == present

	case rule.Prefix != nil:
		return present && attr.DataType == "String" && strings.HasPrefix(attr.StringValue, *rule.Prefix)

	case rule.AnythingBut != nil:
		if !present {
			return false
		}
		return anythingButMatch(attr, rule.AnythingBut)

	case rule.Numeric != nil:
		if !present || attr.DataType != "Number" {
			return false
		}
		v, err := strconv.ParseFloat(attr.StringValue, 64)
		if err != nil {
			return false
		}
		for _, cond := range rule.Numeric {
			if !compare(v, cond.Operator, cond.Bound) {
				return false
			}
		}
		return true
	}

	// Literal booleans and nulls validate but never match; the upstream
	// behavior for them is unknown.
	return false
}

func anythingButMatch(attr models.MessageAttributeValue, ab *AnythingBut) bool {
	values := stringValues(attr)

	if ab.Prefix != nil {
		for _, v := range values {
			if strings.HasPrefix(v, *ab.Prefix) {
				return false
			}
		}
		return true
	}

	if attr.DataType == "Number" {
		v, err := strconv.ParseFloat(attr.StringValue, 64)
		if err != nil {
			return false
		}
		for _, excluded := range ab.Numbers {
			if v == excluded {
				return false
			}
		}
		return true
	}

	for _, v := range values {
		for _, excluded := range ab.Strings {
			if v == excluded {
				return false
			}
		}
	}
	return true
}

// stringValues flattens an attribute into its string values: one element for
// String and Number, the parsed elements for String.Array.
func stringValues(attr models.MessageAttributeValue) []string {
	if attr.DataType == "String.Array" {
		if elems := jsonStringElements(attr.StringValue); elems != nil {
			return elems
		}
	}
	return []string{attr.StringValue}
}

// numericValues yields the values a literal-number rule is compared against:
// the attribute value itself for Number, every element for String.Array, and
// nothing for other types. A String.Array holding a single bare JSON value
// is treated as a one-element list.
func numericValues(attr models.MessageAttributeValue) []float64 {
	var raw []string
	switch attr.DataType {
	case "Number":
		raw = []string{attr.StringValue}
	case "String.Array":
		var parsed interface{}
		if err := json.Unmarshal([]byte(attr.StringValue), &parsed); err != nil {
			return nil
		}
		elems, ok := parsed.([]interface{})
		if !ok {
			elems = []interface{}{parsed}
		}
		for _, e := range elems {
			switch v := e.(type) {
			case float64:
				raw = append(raw, strconv.FormatFloat(v, 'f', -1, 64))
			case string:
				raw = append(raw, v)
			}
		}
	default:
		return nil
	}

	values := make([]float64, 0, len(raw))
	for _, s := range raw {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			values = append(values, f)
		}
	}
	return values
}

func jsonStringElements(s string) []string {
	var elems []interface{}
	if err := json.Unmarshal([]byte(s), &elems); err != nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if v, ok := e.(string); ok {
			out = append(out, v)
		}
	}
	return out
}

// numericEqual compares two numbers at 6-decimal-digit precision. The
// documented precision is 5 digits, the real service uses 6.
func numericEqual(a, b float64) bool {
	return int64(math.Trunc(a*1e6)) == int64(math.Trunc(b*1e6))
}

func compare(v float64, op string, bound float64) bool {
	switch op {
	case "<":
		return v < bound
	case "<=":
		return v <= bound
	case "=":
		return v == bound
	case ">":
		return v > bound
	case ">=":
		return v >= bound
	}
	return false
}
