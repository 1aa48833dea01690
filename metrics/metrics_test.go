package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Independent(t *testing.T) {
	m1 := New()
	m2 := New()

	m1.RequestsTotal.WithLabelValues("200").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m1.RequestsTotal.WithLabelValues("200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.RequestsTotal.WithLabelValues("200")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.IndexKeys.Set(3)
	m.LookupMatches.Observe(2)

	req := httptest.NewRequest("GET", "http://example.com/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "raptor_index_keys 3")
	assert.Contains(t, w.Body.String(), "raptor_lookup_matches_count 1")
}
