package bandit

// AttributeTypeCustom is the only attribute type the prediction API accepts.
const AttributeTypeCustom = "custom_attribute"

// Request asks for a prediction for one user on one bandit rule.
type Request struct {
	RuleID     string
	UserID     string
	RequestID  string
	Attributes []Attribute

	// IgnoreCache bypasses a Cache in front of the fetcher.
	IgnoreCache bool
	// ResetCache drops every cached prediction before fetching.
	ResetCache bool
	// InvalidateUser drops the cached prediction for this user and rule.
	InvalidateUser bool
}

// Attribute is a user attribute forwarded to the prediction API.
type Attribute struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
	Type  string `json:"type"`
}
