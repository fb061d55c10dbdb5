package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/carrel-io/ferry/pkg/repository"
	"github.com/carrel-io/ferry/pkg/types"
)

var (
	// ErrEmptyManifest indicates the submission carries no files
	ErrEmptyManifest = errors.New("builder: submission has no files")

	// ErrNoLocation indicates a manifest file lacks a retrievable
	// byte location
	ErrNoLocation = errors.New("builder: file has no retrievable location")
)

// Builder constructs the in-memory DepositSubmission view from a
// persisted Submission by following its incoming links to File
// entities.
type Builder struct {
	client repository.Client
}

// New creates a builder over the given repository client
func New(client repository.Client) *Builder {
	return &Builder{client: client}
}

// Build normalizes a submission for packaging. It fails when the file
// manifest is empty or any file lacks a retrievable location; a
// failure here fails the submission, not any single deposit.
func (b *Builder) Build(ctx context.Context, s *types.Submission) (*types.DepositSubmission, error) {
	incoming, err := b.client.Incoming(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("builder: resolving links of %s: %w", s.ID, err)
	}

	var files []types.DepositFile
	for _, id := range incoming["submission"] {
		entity, err := b.client.Read(ctx, id, types.EntityTypeFile)
		if err != nil {
			// The "submission" relation also carries Deposits and
			// other non-File entities; skip anything that does not
			// read as a File.
			continue
		}
		f, ok := entity.(*types.File)
		if !ok || f.Name == "" && f.URI == "" {
			continue
		}
		if f.URI == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoLocation, f.ID)
		}
		files = append(files, types.DepositFile{
			Name:     f.Name,
			Location: f.URI,
			MimeType: f.MimeType,
		})
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyManifest, s.ID)
	}

	return &types.DepositSubmission{
		ID:       s.ID,
		Metadata: s.Metadata,
		Files:    files,
		Targets:  append([]string(nil), s.Repositories...),
	}, nil
}
