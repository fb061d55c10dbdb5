package packager

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/carrel-io/ferry/pkg/types"
)

// ZipAssembler produces a simple ZIP package: the manifest files at the
// archive root plus a metadata.json entry carrying the descriptive
// metadata. Bytes are produced lazily as the stream is read; file
// content is fetched from each manifest entry's location at read time.
type ZipAssembler struct {
	http *http.Client
}

// NewZipAssembler creates a ZIP assembler
func NewZipAssembler(client *http.Client) *ZipAssembler {
	if client == nil {
		client = http.DefaultClient
	}
	return &ZipAssembler{http: client}
}

// Assemble implements Assembler
func (a *ZipAssembler) Assemble(ctx context.Context, ds *types.DepositSubmission, opts Options) (PackageStream, error) {
	if ds == nil || len(ds.Files) == 0 {
		return nil, fmt.Errorf("packager: nothing to assemble")
	}
	for _, f := range ds.Files {
		if f.Location == "" {
			return nil, fmt.Errorf("packager: file %q has no retrievable location", f.Name)
		}
	}
	name := path.Base(ds.ID)
	if name == "" || name == "." || name == "/" {
		name = "submission"
	}
	return &zipStream{
		assembler: a,
		ctx:       ctx,
		ds:        ds,
		opts:      opts,
		name:      name + ".zip",
	}, nil
}

type zipStream struct {
	assembler *ZipAssembler
	ctx       context.Context
	ds        *types.DepositSubmission
	opts      Options
	name      string
}

// Metadata implements PackageStream
func (z *zipStream) Metadata() PackageMetadata {
	return PackageMetadata{
		Name:        z.name,
		SizeBytes:   -1, // streamed, unknown up front
		MimeType:    "application/zip",
		Archive:     ArchiveZip,
		Compression: CompressionZip,
		Spec:        z.opts.Spec,
	}
}

// Open implements PackageStream. The returned reader drives a zip
// writer through a pipe; closing it early aborts assembly.
func (z *zipStream) Open() (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(z.write(pw))
	}()
	return pr, nil
}

func (z *zipStream) write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, f := range z.ds.Files {
		entry, err := zw.Create(f.Name)
		if err != nil {
			return err
		}
		src, err := z.open(f.Location)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", f.Location, err)
		}
		_, err = io.Copy(entry, src)
		src.Close()
		if err != nil {
			return fmt.Errorf("copying %s: %w", f.Name, err)
		}
	}
	if z.ds.Metadata != "" {
		entry, err := zw.Create("metadata.json")
		if err != nil {
			return err
		}
		if _, err := io.WriteString(entry, z.ds.Metadata); err != nil {
			return err
		}
	}
	return zw.Close()
}

func (z *zipStream) open(location string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		req, err := http.NewRequestWithContext(z.ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		resp, err := z.assembler.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return resp.Body, nil
	case strings.HasPrefix(location, "file://"):
		return os.Open(strings.TrimPrefix(location, "file://"))
	default:
		return os.Open(location)
	}
}
