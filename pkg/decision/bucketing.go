package decision

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/flagkit/pkg/bucketer"
	"github.com/dmitrymomot/flagkit/pkg/project"
)

func bucketExperiment(ev *evaluation) (*project.Variation, bucketer.Outcome) {
	return bucketer.Experiment(ev.cfg, ev.exp, ev.bucketingID)
}

// inBanditTraffic reports whether the user falls into the share of the
// rule's traffic that is routed to the bandit.
func inBanditTraffic(ev *evaluation) bool {
	return bucketer.BucketValue(ev.bucketingID+ev.exp.ID) < ev.exp.Bandit.TrafficAllocation
}

func newRequestID() string {
	return uuid.NewString()
}
