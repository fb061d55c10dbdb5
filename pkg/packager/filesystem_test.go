package packager

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type literalStream struct {
	name string
	body string
}

func (s literalStream) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func (s literalStream) Metadata() PackageMetadata {
	return PackageMetadata{Name: s.name, SizeBytes: int64(len(s.body))}
}

func TestFilesystemTransportSend(t *testing.T) {
	dir := t.TempDir()
	transport := NewFilesystemTransport()

	session, err := transport.Open(context.Background(), map[string]string{
		ParamDefaultDirectory: dir,
	})
	require.NoError(t, err)
	defer session.Close()

	resp, err := session.Send(context.Background(), literalStream{name: "pkg.zip", body: "bytes"}, nil)
	require.NoError(t, err)
	require.True(t, resp.Success)

	require.NotNil(t, resp.Receipt)
	assert.Equal(t, "file://"+filepath.Join(dir, "pkg.zip"), resp.Receipt.ItemURL)
	assert.Empty(t, resp.Receipt.StatusRef, "filesystem deposits resolve synchronously")

	written, err := os.ReadFile(filepath.Join(dir, "pkg.zip"))
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(written))
}

func TestFilesystemTransportRequiresDirectory(t *testing.T) {
	_, err := NewFilesystemTransport().Open(context.Background(), map[string]string{})
	assert.Error(t, err)
}

func TestFilesystemSessionClosed(t *testing.T) {
	session, err := NewFilesystemTransport().Open(context.Background(), map[string]string{
		ParamDefaultDirectory: t.TempDir(),
	})
	require.NoError(t, err)
	require.NoError(t, session.Close())

	_, err = session.Send(context.Background(), literalStream{name: "pkg.zip"}, nil)
	assert.Error(t, err)
}
