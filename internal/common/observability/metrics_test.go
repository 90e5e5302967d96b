package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueIsNoop(t *testing.T) {
	var o Observability
	assert.NotPanics(t, func() {
		o.RecordJobProcessed(context.Background(), "match-buyers")
		o.RecordJobDuration(context.Background(), "match-buyers", time.Second)
	})
	assert.NoError(t, o.Shutdown(context.Background()))
}
