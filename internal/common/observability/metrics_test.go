package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObservability_ZeroValueIsSafe(t *testing.T) {
	var nilObs *Observability
	assert.NotPanics(t, func() {
		nilObs.RecordCaseProcessed(context.Background(), "ordinary", "DEFERRED")
		nilObs.RecordCaseDuration(context.Background(), time.Second, "ordinary")
		nilObs.Shutdown()
	})

	empty := &Observability{}
	assert.NotPanics(t, func() {
		empty.RecordCaseProcessed(context.Background(), "ordinary", "DENIED")
		empty.RecordCaseDuration(context.Background(), time.Millisecond, "provisional")
		empty.Shutdown()
	})
}
