package event

// Batch is the JSON body delivered to the event endpoint.
type Batch struct {
	AccountID       string    `json:"account_id"`
	ProjectID       string    `json:"project_id"`
	Revision        string    `json:"revision"`
	ClientName      string    `json:"client_name"`
	ClientVersion   string    `json:"client_version"`
	AnonymizeIP     bool      `json:"anonymize_ip"`
	EnrichDecisions bool      `json:"enrich_decisions"`
	Visitors        []Visitor `json:"visitors"`
}

// Visitor groups the snapshots of one user.
type Visitor struct {
	VisitorID  string      `json:"visitor_id"`
	Attributes []Attribute `json:"attributes"`
	Snapshots  []Snapshot  `json:"snapshots"`
}

// AttributeTypeCustom tags every forwarded user attribute.
const AttributeTypeCustom = "custom"

// Attribute is a forwarded user attribute. EntityID is the declared
// attribute id, or the key itself for reserved attributes.
type Attribute struct {
	EntityID string `json:"entity_id"`
	Key      string `json:"key"`
	Type     string `json:"type"`
	Value    any    `json:"value"`
}

// Snapshot pairs experiment decisions with the events they explain.
type Snapshot struct {
	Decisions []Decision      `json:"decisions,omitempty"`
	Events    []SnapshotEvent `json:"events"`
}

// Decision names the variation a visitor holds in one experiment.
type Decision struct {
	CampaignID         string           `json:"campaign_id"`
	ExperimentID       string           `json:"experiment_id"`
	VariationID        string           `json:"variation_id"`
	IsCampaignHoldback bool             `json:"is_campaign_holdback"`
	Metadata           DecisionMetadata `json:"metadata"`
}

// DecisionMetadata ties a decision back to its flag and rule.
type DecisionMetadata struct {
	FlagKey      string `json:"flag_key"`
	RuleKey      string `json:"rule_key"`
	RuleType     string `json:"rule_type"`
	VariationKey string `json:"variation_key"`
	Enabled      bool   `json:"enabled"`
}

// SnapshotEvent is an impression or a conversion. Timestamp is in
// milliseconds since the Unix epoch.
type SnapshotEvent struct {
	EntityID  string         `json:"entity_id"`
	Key       string         `json:"key"`
	Timestamp int64          `json:"timestamp"`
	UUID      string         `json:"uuid"`
	Tags      map[string]any `json:"tags,omitempty"`
	Revenue   *int64         `json:"revenue,omitempty"`
	Value     *float64       `json:"value,omitempty"`
}

// LogEvent is what dispatchers receive.
type LogEvent struct {
	EndpointURL string
	HTTPVerb    string
	Payload     Batch
}

// CanMerge reports whether the visitors of o may be appended to b without
// changing the meaning of either batch.
func (b Batch) CanMerge(o Batch) bool {
	return b.AccountID == o.AccountID &&
		b.ProjectID == o.ProjectID &&
		b.Revision == o.Revision &&
		b.ClientName == o.ClientName &&
		b.ClientVersion == o.ClientVersion &&
		b.AnonymizeIP == o.AnonymizeIP &&
		b.EnrichDecisions == o.EnrichDecisions
}
