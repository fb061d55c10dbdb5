package packager

import (
	"context"
	"io"

	"github.com/carrel-io/ferry/pkg/types"
)

// Archive is the archival layout of a package
type Archive string

const (
	ArchiveNone Archive = "NONE"
	ArchiveTar  Archive = "TAR"
	ArchiveZip  Archive = "ZIP"
)

// Compression is the compression applied to a package
type Compression string

const (
	CompressionNone  Compression = "NONE"
	CompressionGzip  Compression = "GZIP"
	CompressionBzip2 Compression = "BZIP2"
	CompressionZip   Compression = "ZIP"
)

// Options direct an assembler run
type Options struct {
	Archive     Archive
	Compression Compression
	Checksums   []string // checksum algorithm names
	Spec        string   // packaging specification identifier
}

// PackageMetadata describes an assembled package
type PackageMetadata struct {
	Name        string
	SizeBytes   int64 // -1 when unknown before streaming
	MimeType    string
	Archive     Archive
	Compression Compression
	Checksums   map[string]string
	Spec        string
}

// PackageStream is a lazily assembled package. Bytes are produced as
// the reader is consumed; Open may be called once per stream.
type PackageStream interface {
	Open() (io.ReadCloser, error)
	Metadata() PackageMetadata
}

// Assembler produces a PackageStream for one deposit submission
// according to a packaging specification
type Assembler interface {
	Assemble(ctx context.Context, ds *types.DepositSubmission, opts Options) (PackageStream, error)
}
