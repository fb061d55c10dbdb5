package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrel-io/ferry/pkg/packager"
	"github.com/carrel-io/ferry/pkg/types"
)

func TestMap(t *testing.T) {
	mapping := map[string]string{
		"archived":                 "accepted",
		"withdrawn":                "rejected",
		packager.DefaultMappingKey: "submitted",
	}

	tests := []struct {
		term string
		want types.DepositStatus
	}{
		{"archived", types.DepositStatusAccepted},
		{"ARCHIVED", types.DepositStatusAccepted},
		{"  withdrawn  ", types.DepositStatusRejected},
		{"in-review", types.DepositStatusSubmitted}, // default-mapping
		{"", types.DepositStatusSubmitted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Map(tt.term, mapping), "term %q", tt.term)
	}

	// Without a default, unknown terms map to nothing.
	assert.Equal(t, types.DepositStatus(""), Map("in-review", map[string]string{"archived": "accepted"}))

	// A mapping to a non-status value is ignored rather than trusted.
	assert.Equal(t, types.DepositStatus(""), Map("odd", map[string]string{"odd": "exploded"}))
}

func targetConfig(mapping map[string]string) *packager.TargetConfig {
	return &packager.TargetConfig{
		DepositConfig: packager.DepositConfig{Mapping: mapping},
	}
}

func TestProcessJSONDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"archived"}`))
	}))
	defer srv.Close()

	p := NewMappingProcessor(nil)
	d := &types.Deposit{ID: "mem://deposits/1", StatusRef: srv.URL}

	got, err := p.Process(context.Background(), d, targetConfig(map[string]string{"archived": "accepted"}))
	require.NoError(t, err)
	assert.Equal(t, types.DepositStatusAccepted, got)
}

func TestProcessBareTermDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("withdrawn\n"))
	}))
	defer srv.Close()

	p := NewMappingProcessor(nil)
	d := &types.Deposit{ID: "mem://deposits/1", StatusRef: srv.URL}

	got, err := p.Process(context.Background(), d, targetConfig(map[string]string{"withdrawn": "rejected"}))
	require.NoError(t, err)
	assert.Equal(t, types.DepositStatusRejected, got)
}

func TestProcessSendsRealmCredentials(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		_, _ = w.Write([]byte(`{"status":"archived"}`))
	}))
	defer srv.Close()

	cfg := targetConfig(map[string]string{"archived": "accepted"})
	cfg.TransportConfig.AuthRealms = []packager.AuthRealm{
		{Mech: "basic", Username: "depositor", Password: "s3cret", BaseURL: srv.URL},
	}

	p := NewMappingProcessor(nil)
	d := &types.Deposit{ID: "mem://deposits/1", StatusRef: srv.URL}

	_, err := p.Process(context.Background(), d, cfg)
	require.NoError(t, err)
	assert.Equal(t, "depositor", gotUser)
	assert.Equal(t, "s3cret", gotPass)
}

func TestProcessMissingStatusRef(t *testing.T) {
	p := NewMappingProcessor(nil)
	_, err := p.Process(context.Background(), &types.Deposit{ID: "mem://deposits/1"}, targetConfig(nil))
	assert.Error(t, err)
}

func TestProcessUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewMappingProcessor(nil)
	d := &types.Deposit{ID: "mem://deposits/1", StatusRef: srv.URL}

	_, err := p.Process(context.Background(), d, targetConfig(nil))
	assert.Error(t, err)
}
