package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.AuthFailure()
	m.AuthFailure()
	m.AuthLockout()
	m.AssetIngested("ready")
	m.CMSRequest("get_entry", "ok")
	m.PostsIndexed(12)
	m.FeedbackDelivered("smtp", "ok")

	require.InDelta(t, 2, testutil.ToFloat64(m.authFailures), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.assetsIngested.WithLabelValues("ready")), 0)
	require.InDelta(t, 12, testutil.ToFloat64(m.postsIndexed), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.feedback.WithLabelValues("smtp", "ok")), 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "crispin_auth_lockouts_total 1"), body)
	require.True(t, strings.Contains(body, `crispin_cms_requests_total{op="get_entry",outcome="ok"} 1`))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.AuthFailure()
	m.AssetIngested("ready")
	m.PollAttempts(3)
	m.FeedbackDelivered("resend", "error")
	require.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
