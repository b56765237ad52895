package condition

// Ternary is the result of evaluating a condition against a possibly
// incomplete attribute map.
type Ternary int8

const (
	// Unknown means the inputs were insufficient to decide.
	Unknown Ternary = iota
	// False means the condition definitely does not hold.
	False
	// True means the condition definitely holds.
	True
)

// FromBool converts a definite boolean into a Ternary.
func FromBool(b bool) Ternary {
	if b {
		return True
	}
	return False
}

// Not swaps True and False; Unknown stays Unknown.
func (t Ternary) Not() Ternary {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// Passes reports whether t is exactly True. Unknown does not pass.
func (t Ternary) Passes() bool {
	return t == True
}

// String returns the lowercase name of the value.
func (t Ternary) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// And combines children lazily. A False child short-circuits; otherwise any
// Unknown child makes the result Unknown.
func And(children ...func() Ternary) Ternary {
	sawUnknown := false
	for _, child := range children {
		switch child() {
		case False:
			return False
		case Unknown:
			sawUnknown = true
		case True:
		}
	}
	if sawUnknown {
		return Unknown
	}
	return True
}

// Or combines children lazily. A True child short-circuits; otherwise any
// Unknown child makes the result Unknown.
func Or(children ...func() Ternary) Ternary {
	sawUnknown := false
	for _, child := range children {
		switch child() {
		case True:
			return True
		case Unknown:
			sawUnknown = true
		case False:
		}
	}
	if sawUnknown {
		return Unknown
	}
	return False
}
