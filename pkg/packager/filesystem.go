package packager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FilesystemTransport drops assembled packages into a base directory.
// It is the one driver that ships in-tree: it lets the engine run end
// to end without network transports and serves local archives mounted
// over NFS. The receipt carries a file:// item URL and no asynchronous
// status reference, so deposits through it resolve synchronously.
type FilesystemTransport struct{}

// NewFilesystemTransport creates the filesystem transport driver
func NewFilesystemTransport() *FilesystemTransport {
	return &FilesystemTransport{}
}

// Open implements Transport
func (t *FilesystemTransport) Open(ctx context.Context, params map[string]string) (Session, error) {
	dir := params[ParamDefaultDirectory]
	if dir == "" {
		return nil, fmt.Errorf("packager: filesystem transport requires %s", ParamDefaultDirectory)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("packager: creating %s: %w", dir, err)
	}
	return &fsSession{dir: dir}, nil
}

type fsSession struct {
	dir    string
	closed bool
}

// Send implements Session
func (s *fsSession) Send(ctx context.Context, stream PackageStream, params map[string]string) (Response, error) {
	if s.closed {
		return Response{}, fmt.Errorf("packager: send on closed session")
	}

	meta := stream.Metadata()
	name := meta.Name
	if name == "" {
		name = "package"
	}
	target := filepath.Join(s.dir, name)

	src, err := stream.Open()
	if err != nil {
		return Response{Cause: err}, nil
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return Response{Cause: err}, nil
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return Response{Cause: fmt.Errorf("writing %s: %w", target, err)}, nil
	}
	if err := dst.Close(); err != nil {
		return Response{Cause: fmt.Errorf("closing %s: %w", target, err)}, nil
	}

	return Response{
		Success: true,
		Receipt: &Receipt{ItemURL: "file://" + target},
	}, nil
}

// Close implements Session
func (s *fsSession) Close() error {
	s.closed = true
	return nil
}
