package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("posts.cardDetails", "200"))

	RecordAPIRequest("posts.cardDetails", "200", 0.05)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("posts.cardDetails", "200"))
	assert.Equal(t, before+1, after)
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(BreakerState))

	SetBreakerState(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(BreakerState))
}

func TestRecordToggleAndSession(t *testing.T) {
	before := testutil.ToFloat64(TogglesTotal.WithLabelValues("like", "rolled_back"))
	RecordToggle("like", "rolled_back")
	assert.Equal(t, before+1, testutil.ToFloat64(TogglesTotal.WithLabelValues("like", "rolled_back")))

	beforeLogout := testutil.ToFloat64(SessionEventsTotal.WithLabelValues("logout"))
	RecordSessionEvent("logout")
	assert.Equal(t, beforeLogout+1, testutil.ToFloat64(SessionEventsTotal.WithLabelValues("logout")))
}

func TestRecordFeed(t *testing.T) {
	before := testutil.ToFloat64(FeedExhaustedTotal.WithLabelValues("home"))

	RecordFeedPage("home", 3)
	RecordFeedExhausted("home")

	assert.Equal(t, before+1, testutil.ToFloat64(FeedExhaustedTotal.WithLabelValues("home")))
}
