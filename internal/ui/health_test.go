package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRenderer_Render_ShowsAllComponents(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewHealthRenderer(buf, true)

	err := r.Render(HealthInfo{
		Components: []ComponentStatus{
			{Name: "lexical", Status: "ok", Latency: "4ms"},
			{Name: "vector", Status: "fail", Detail: "dial tcp: connection refused"},
			{Name: "bus", Status: "warn"},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "lexical")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "vector")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "bus")
	assert.Contains(t, out, "WARN")
}

func TestHealthRenderer_RenderJSON_IsValidJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewHealthRenderer(buf, true)

	err := r.RenderJSON(HealthInfo{
		Components: []ComponentStatus{{Name: "lexical", Status: "ok"}},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"name": "lexical"`)
}

func TestHealthInfo_AnyFailed(t *testing.T) {
	ok := HealthInfo{Components: []ComponentStatus{{Status: "ok"}, {Status: "warn"}}}
	assert.False(t, ok.AnyFailed())

	bad := HealthInfo{Components: []ComponentStatus{{Status: "ok"}, {Status: "fail"}}}
	assert.True(t, bad.AnyFailed())
}
