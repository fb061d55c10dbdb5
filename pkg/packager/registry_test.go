package packager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrel-io/ferry/pkg/types"
)

func TestRegistryLookupKeyForms(t *testing.T) {
	reg := NewRegistry()
	jscholarship := &Packager{Name: "JScholarship"}
	dash := &Packager{Name: "Dash"}
	reg.Register("JScholarship", jscholarship)
	reg.Register("dash/archive", dash)

	tests := []struct {
		name string
		key  string
		want *Packager
	}{
		{"exact short key", "JScholarship", jscholarship},
		{"trailing path component", "http://upstream/repositories/JScholarship", jscholarship},
		{"trailing component with trailing slash", "http://upstream/repositories/JScholarship/", jscholarship},
		{"recursive suffix", "http://hosts.example/dash/archive", dash},
		{"unregistered key", "http://upstream/repositories/nowhere", nil},
		{"empty key", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reg.Lookup(tt.key)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Same(t, tt.want, got)
		})
	}
}

func TestRegistryLookupRepository(t *testing.T) {
	reg := NewRegistry()
	p := &Packager{Name: "JScholarship"}
	reg.Register("JScholarship", p)

	byKey := &types.Repository{ID: "http://upstream/repositories/42", Key: "JScholarship"}
	assert.Same(t, p, reg.LookupRepository(byKey))

	byID := &types.Repository{ID: "http://upstream/repositories/JScholarship"}
	assert.Same(t, p, reg.LookupRepository(byID))

	miss := &types.Repository{ID: "http://upstream/repositories/42", Key: "nowhere"}
	assert.Nil(t, reg.LookupRepository(miss))
	assert.Nil(t, reg.LookupRepository(nil))
}

func TestRegistryKeys(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", &Packager{})
	reg.Register("b", &Packager{})
	require.ElementsMatch(t, []string{"a", "b"}, reg.Keys())
}
