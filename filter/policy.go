// Package filter implements the subscription filter policy language: a
// declarative AND-of-ORs rule set over message attributes. Validate compiles
// a raw policy document into a Policy, and Policy.Matches evaluates it
// against one message's attribute set. Both are pure and safe for
// concurrent use.
package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// maxRuleCombinations caps the product of rule-list lengths across all
// fields. The official documentation states 100, in reality it is 150.
const maxRuleCombinations = 150

// maxNumericMagnitude bounds the absolute value of numeric literals in a
// policy. Values at or beyond it fail with an opaque internal error,
// matching the upstream behavior.
const maxNumericMagnitude = 1e9

// InvalidPolicyError reports a malformed filter policy document.
type InvalidPolicyError struct {
	Message string
}

func (e *InvalidPolicyError) Error() string { return e.Message }

// TooComplexError reports a policy whose rule combination count exceeds
// maxRuleCombinations.
type TooComplexError struct {
	Message string
}

func (e *TooComplexError) Error() string { return e.Message }

// InternalError reports a policy the upstream API rejects without a
// descriptive reason, such as numeric literals of excessive magnitude.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string { return e.Message }

// Policy is a compiled filter policy: a mapping from attribute field name to
// the ordered list of rule variants that can satisfy it. A nil Policy
// matches every message.
type Policy map[string][]Rule

// Rule is one compiled rule variant. Exactly one of its branches is set.
type Rule struct {
	// Str is a literal string rule.
	Str *string
	// Num is a literal number rule, compared at 6-decimal-digit precision.
	Num *float64
	// Bool is a literal boolean rule. Boolean matching is not supported by
	// the upstream API; the rule validates but never matches.
	Bool *bool
	// Null is a literal null rule. Like Bool, it validates but never matches.
	Null bool
	// Exists requires the field to be present (true) or absent (false).
	Exists *bool
	// Prefix requires a String attribute starting with the given prefix.
	Prefix *string
	// AnythingBut excludes literals or a prefix.
	AnythingBut *AnythingBut
	// Numeric is a conjunction of one or two range bounds over a Number
	// attribute.
	Numeric []NumericCondition
}

// AnythingBut is the compiled form of an "anything-but" rule: either a
// prefix exclusion or a set of excluded literals.
type AnythingBut struct {
	Prefix  *string
	Strings []string
	Numbers []float64
}

// NumericCondition is a single (operator, bound) comparison of a "numeric"
// rule.
type NumericCondition struct {
	Operator string
	Bound    float64
}

// Validate compiles a raw filter policy document into a Policy. It rejects
// overly combinatorial policies, unrecognized operator keys, and rules of
// any unsupported shape, with error text reproducing the upstream API.
// Validation is a pure compile with no side effects.
func Validate(raw string) (Policy, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var doc map[string][]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, &InvalidPolicyError{
			Message: "Invalid parameter: FilterPolicy: Match value must be String, number, true, false, or null",
		}
	}

	combinations := 1
	for _, rules := range doc {
		combinations *= len(rules)
	}
	if combinations > maxRuleCombinations {
		return nil, &TooComplexError{
			Message: "Invalid parameter: FilterPolicy: Filter policy is too complex",
		}
	}

	policy := make(Policy, len(doc))
	for field, rules := range doc {
		compiled := make([]Rule, 0, len(rules))
		for _, rule := range rules {
			r, err := compileRule(rule)
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, r)
		}
		policy[field] = compiled
	}
	return policy, nil
}

func compileRule(rule interface{}) (Rule, error) {
	switch v := rule.(type) {
	case nil:
		return Rule{Null: true}, nil
	case string:
		return Rule{Str: &v}, nil
	case bool:
		return Rule{Bool: &v}, nil
	case json.Number:
		f, err := parseNumber(v)
		if err != nil {
			return Rule{}, err
		}
		return Rule{Num: &f}, nil
	case map[string]interface{}:
		return compileOperator(v)
	}
	return Rule{}, &InvalidPolicyError{
		Message: "Invalid parameter: FilterPolicy: Match value must be String, number, true, false, or null",
	}
}

func parseNumber(n json.Number) (float64, error) {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, &InvalidPolicyError{
			Message: "Invalid parameter: FilterPolicy: Match value must be String, number, true, false, or null",
		}
	}
	if f <= -maxNumericMagnitude || f >= maxNumericMagnitude {
		return 0, &InternalError{Message: "Unknown"}
	}
	return f, nil
}

func compileOperator(rule map[string]interface{}) (Rule, error) {
	if len(rule) != 1 {
		return Rule{}, &InvalidPolicyError{
			Message: "Invalid parameter: FilterPolicy: Match value must be String, number, true, false, or null",
		}
	}

	var keyword string
	var value interface{}
	for k, v := range rule {
		keyword, value = k, v
	}

	switch keyword {
	case "exists":
		b, ok := value.(bool)
		if !ok {
			return Rule{}, &InvalidPolicyError{
				Message: "Invalid parameter: FilterPolicy: exists match pattern must be either true or false.",
			}
		}
		return Rule{Exists: &b}, nil

	case "prefix":
		s, ok := value.(string)
		if !ok {
			return Rule{}, &InvalidPolicyError{
				Message: "Invalid parameter: FilterPolicy: prefix match pattern must be a string",
			}
		}
		return Rule{Prefix: &s}, nil

	case "anything-but":
		ab, err := compileAnythingBut(value)
		if err != nil {
			return Rule{}, err
		}
		return Rule{AnythingBut: ab}, nil

	case "numeric":
		list, ok := value.([]interface{})
		if !ok {
			return Rule{}, &InvalidPolicyError{
				Message: "Invalid parameter: Attributes Reason: FilterPolicy: Invalid member in numeric match: ]\n at ...",
			}
		}
		conds, err := compileNumericRange(list)
		if err != nil {
			return Rule{}, err
		}
		return Rule{Numeric: conds}, nil
	}

	return Rule{}, &InvalidPolicyError{
		Message: fmt.Sprintf("Invalid parameter: FilterPolicy: Unrecognized match type %s", keyword),
	}
}

// compileAnythingBut accepts a literal, a list of literals, or a nested
// {"prefix": string} object. Any other nesting is rejected.
func compileAnythingBut(value interface{}) (*AnythingBut, error) {
	switch v := value.(type) {
	case string:
		return &AnythingBut{Strings: []string{v}}, nil
	case json.Number:
		f, err := parseNumber(v)
		if err != nil {
			return nil, err
		}
		return &AnythingBut{Numbers: []float64{f}}, nil
	case []interface{}:
		ab := &AnythingBut{}
		for _, item := range v {
			switch lit := item.(type) {
			case string:
				ab.Strings = append(ab.Strings, lit)
			case json.Number:
				f, err := parseNumber(lit)
				if err != nil {
					return nil, err
				}
				ab.Numbers = append(ab.Numbers, f)
			default:
				return nil, &InvalidPolicyError{
					Message: "Invalid parameter: FilterPolicy: anything-but match pattern must be a string, a number, a list of strings and numbers, or a prefix match",
				}
			}
		}
		return ab, nil
	case map[string]interface{}:
		if len(v) == 1 {
			if p, ok := v["prefix"]; ok {
				if s, ok := p.(string); ok {
					return &AnythingBut{Prefix: &s}, nil
				}
			}
		}
		return nil, &InvalidPolicyError{
			Message: "Invalid parameter: FilterPolicy: anything-but match pattern must be a string, a number, a list of strings and numbers, or a prefix match",
		}
	}
	return nil, &InvalidPolicyError{
		Message: "Invalid parameter: FilterPolicy: anything-but match pattern must be a string, a number, a list of strings and numbers, or a prefix match",
	}
}

// compileNumericRange consumes the flat token list of a "numeric" rule
// pairwise as (operator, bound). A second pair, if present, must form a
// lower/upper range in that order.
func compileNumericRange(tokens []interface{}) ([]NumericCondition, error) {
	if len(tokens) == 0 {
		return nil, &InvalidPolicyError{
			Message: "Invalid parameter: Attributes Reason: FilterPolicy: Invalid member in numeric match: ]\n at ...",
		}
	}

	rest := tokens
	op, ok := rest[0].(string)
	if !ok {
		return nil, &InvalidPolicyError{
			Message: fmt.Sprintf("Invalid parameter: Attributes Reason: FilterPolicy: Invalid member in numeric match: %v\n at ...", rest[0]),
		}
	}
	rest = rest[1:]

	switch op {
	case "<", "<=", "=", ">", ">=":
	default:
		return nil, &InvalidPolicyError{
			Message: fmt.Sprintf("Invalid parameter: Attributes Reason: FilterPolicy: Unrecognized numeric range operator: %v\n at ...", op),
		}
	}

	bound, rest, err := takeNumericBound(op, rest)
	if err != nil {
		return nil, err
	}
	conds := []NumericCondition{{Operator: op, Bound: bound}}

	if len(rest) == 0 {
		return conds, nil
	}

	if op != ">" && op != ">=" {
		return nil, &InvalidPolicyError{
			Message: "Invalid parameter: Attributes Reason: FilterPolicy: Too many elements in numeric expression\n at ...",
		}
	}

	secondOp, ok := rest[0].(string)
	if !ok || (secondOp != "<" && secondOp != "<=") {
		return nil, &InvalidPolicyError{
			Message: fmt.Sprintf("Invalid parameter: Attributes Reason: FilterPolicy: Bad numeric range operator: %v\n at ...", rest[0]),
		}
	}
	rest = rest[1:]

	secondBound, rest, err := takeNumericBound(secondOp, rest)
	if err != nil {
		return nil, err
	}
	if secondBound <= bound {
		return nil, &InvalidPolicyError{
			Message: "Invalid parameter: Attributes Reason: FilterPolicy: Bottom must be less than top\n at ...",
		}
	}
	conds = append(conds, NumericCondition{Operator: secondOp, Bound: secondBound})

	if len(rest) > 0 {
		return nil, &InvalidPolicyError{
			Message: "Invalid parameter: Attributes Reason: FilterPolicy: Too many elements in numeric expression\n at ...",
		}
	}
	return conds, nil
}

func takeNumericBound(op string, rest []interface{}) (float64, []interface{}, error) {
	if len(rest) == 0 {
		return 0, nil, &InvalidPolicyError{
			Message: fmt.Sprintf("Invalid parameter: Attributes Reason: FilterPolicy: Value of %s must be numeric\n at ...", op),
		}
	}
	n, ok := rest[0].(json.Number)
	if !ok {
		return 0, nil, &InvalidPolicyError{
			Message: fmt.Sprintf("Invalid parameter: Attributes Reason: FilterPolicy: Value of %s must be numeric\n at ...", op),
		}
	}
	f, err := parseNumber(n)
	if err != nil {
		return 0, nil, err
	}
	return f, rest[1:], nil
}
