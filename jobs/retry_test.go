package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryPolicySchedule(t *testing.T) {
	p := DefaultRetryPolicy

	d, ok := p.NextDelay(1)
	assert.True(t, ok)
	assert.Equal(t, 10*time.Second, d)

	d, ok = p.NextDelay(2)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, d)

	_, ok = p.NextDelay(3)
	assert.False(t, ok, "no fourth attempt")
}

func TestRetryPolicyReusesLastBackoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, Backoff: []time.Duration{time.Second, 2 * time.Second}}
	d, ok := p.NextDelay(4)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)
}
