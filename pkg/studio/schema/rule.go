package schema

// Rule is a chain of save-time predicates attached to a field. The zero value
// imposes no constraint. Builder methods return a new Rule and never modify
// the receiver.
//
// Min and Max apply to the numeric value of number fields, to the rune count
// of string and text fields, and to the item count of arrays.
type Rule struct {
	required bool
	unique   bool
	min      *float64
	max      *float64
}

// NewRule returns an empty rule, the start of a chain.
func NewRule() Rule {
	return Rule{}
}

// Required rejects absent and empty values.
func (r Rule) Required() Rule {
	r.required = true
	return r
}

// Min sets a lower bound.
func (r Rule) Min(n float64) Rule {
	r.min = &n
	return r
}

// Max sets an upper bound.
func (r Rule) Max(n float64) Rule {
	r.max = &n
	return r
}

// Unique requires array items to be pairwise distinct.
func (r Rule) Unique() Rule {
	r.unique = true
	return r
}

// clone returns a rule that shares no bounds with r.
func (r Rule) clone() Rule {
	if r.min != nil {
		r = r.Min(*r.min)
	}
	if r.max != nil {
		r = r.Max(*r.max)
	}
	return r
}

// IsRequired reports whether the rule demands presence.
func (r Rule) IsRequired() bool { return r.required }

// IsUnique reports whether the rule demands distinct array items.
func (r Rule) IsUnique() bool { return r.unique }

// Bounds returns the configured minimum and maximum, if any.
func (r Rule) Bounds() (min *float64, max *float64) {
	return r.min, r.max
}

// IsZero reports whether the rule imposes nothing.
func (r Rule) IsZero() bool {
	return !r.required && !r.unique && r.min == nil && r.max == nil
}

// RuleSpec is the serializable form of one predicate in a chain.
type RuleSpec struct {
	Flag       string `json:"flag" yaml:"flag"`
	Constraint any    `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

// Specs lists the predicates of the chain in a stable order.
func (r Rule) Specs() []RuleSpec {
	var specs []RuleSpec
	if r.required {
		specs = append(specs, RuleSpec{Flag: "presence", Constraint: "required"})
	}
	if r.min != nil {
		specs = append(specs, RuleSpec{Flag: "min", Constraint: *r.min})
	}
	if r.max != nil {
		specs = append(specs, RuleSpec{Flag: "max", Constraint: *r.max})
	}
	if r.unique {
		specs = append(specs, RuleSpec{Flag: "unique"})
	}
	return specs
}
