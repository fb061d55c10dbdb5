package types

import (
	"time"
)

// EntityType identifies the kind of a persistent entity
type EntityType string

const (
	EntityTypeSubmission     EntityType = "Submission"
	EntityTypeDeposit        EntityType = "Deposit"
	EntityTypeRepositoryCopy EntityType = "RepositoryCopy"
	EntityTypeRepository     EntityType = "Repository"
	EntityTypeFile           EntityType = "File"
)

// Source identifies the actor that created a submission
type Source string

const (
	SourceUser  Source = "pass"  // user-driven submission
	SourceOther Source = "other" // harvested or mediated submission
)

// AggregatedStatus is the overall outcome of a submission across all targets
type AggregatedStatus string

const (
	// AggregatedStatusNone is the zero value carried by a submission no
	// actor has touched; externally created submissions arrive this way
	// and it reads the same as not-started.
	AggregatedStatusNone       AggregatedStatus = ""
	AggregatedStatusNotStarted AggregatedStatus = "not-started"
	AggregatedStatusInProgress AggregatedStatus = "in-progress"
	AggregatedStatusFailed     AggregatedStatus = "failed"
	AggregatedStatusAccepted   AggregatedStatus = "accepted"
	AggregatedStatusRejected   AggregatedStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s
func (s AggregatedStatus) Terminal() bool {
	return s == AggregatedStatusAccepted || s == AggregatedStatusRejected
}

// DepositStatus is the state of one transfer attempt to one target.
// The zero value ("") is the dirty state of a freshly created deposit
// and counts as intermediate.
type DepositStatus string

const (
	DepositStatusDirty     DepositStatus = ""
	DepositStatusSubmitted DepositStatus = "submitted"
	DepositStatusAccepted  DepositStatus = "accepted"
	DepositStatusRejected  DepositStatus = "rejected"
	DepositStatusFailed    DepositStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s
func (s DepositStatus) Terminal() bool {
	return s == DepositStatusAccepted || s == DepositStatusRejected
}

// CopyStatus is the state of the package inside the target repository
type CopyStatus string

const (
	CopyStatusInProgress CopyStatus = "in-progress"
	CopyStatusComplete   CopyStatus = "complete"
	CopyStatusRejected   CopyStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s
func (s CopyStatus) Terminal() bool {
	return s == CopyStatusComplete || s == CopyStatusRejected
}

// Entity is the capability set shared by all persistent entities
type Entity interface {
	EntityID() string
	EntityType() EntityType

	// Tag returns the optimistic-concurrency token (HTTP ETag) observed
	// when the entity was last read. Empty for entities never persisted.
	Tag() string
	SetTag(tag string)
}

// Submission is the persistent root of a custody transfer request.
// Created by an external actor; the engine only ever writes
// AggregatedStatus.
type Submission struct {
	ID               string           `json:"@id"`
	Submitted        bool             `json:"submitted"`
	Source           Source           `json:"source"`
	Repositories     []string         `json:"repositories"`
	AggregatedStatus AggregatedStatus `json:"aggregatedDepositStatus"`
	Metadata         string           `json:"metadata,omitempty"`
	SubmittedDate    time.Time        `json:"submittedDate,omitzero"`

	ETag string `json:"-"`
}

func (s *Submission) EntityID() string       { return s.ID }
func (s *Submission) EntityType() EntityType { return EntityTypeSubmission }
func (s *Submission) Tag() string            { return s.ETag }
func (s *Submission) SetTag(tag string)      { s.ETag = tag }

// Terminal reports whether the submission forbids further mutation
func (s *Submission) Terminal() bool { return s.AggregatedStatus.Terminal() }

// MarkFailed moves the submission to its failed variant
func (s *Submission) MarkFailed() { s.AggregatedStatus = AggregatedStatusFailed }

// Deposit is the persistent record of one transfer attempt to one target
type Deposit struct {
	ID             string        `json:"@id"`
	Submission     string        `json:"submission"`
	Repository     string        `json:"repository"`
	Status         DepositStatus `json:"depositStatus,omitempty"`
	StatusRef      string        `json:"depositStatusRef,omitempty"`
	RepositoryCopy string        `json:"repositoryCopy,omitempty"`

	ETag string `json:"-"`
}

func (d *Deposit) EntityID() string       { return d.ID }
func (d *Deposit) EntityType() EntityType { return EntityTypeDeposit }
func (d *Deposit) Tag() string            { return d.ETag }
func (d *Deposit) SetTag(tag string)      { d.ETag = tag }

// Terminal reports whether the deposit forbids further mutation
func (d *Deposit) Terminal() bool { return d.Status.Terminal() }

// MarkFailed moves the deposit to its failed variant
func (d *Deposit) MarkFailed() { d.Status = DepositStatusFailed }

// RepositoryCopy is an opaque handle to where the package lives in the
// target repository
type RepositoryCopy struct {
	ID          string     `json:"@id"`
	CopyStatus  CopyStatus `json:"copyStatus"`
	ExternalIDs []string   `json:"externalIds,omitempty"`
	AccessURL   string     `json:"accessUrl,omitempty"`

	ETag string `json:"-"`
}

func (rc *RepositoryCopy) EntityID() string       { return rc.ID }
func (rc *RepositoryCopy) EntityType() EntityType { return EntityTypeRepositoryCopy }
func (rc *RepositoryCopy) Tag() string            { return rc.ETag }
func (rc *RepositoryCopy) SetTag(tag string)      { rc.ETag = tag }

// Repository is a downstream archival target
type Repository struct {
	ID   string `json:"@id"`
	Name string `json:"name,omitempty"`
	Key  string `json:"repositoryKey,omitempty"`
	URL  string `json:"url,omitempty"`

	ETag string `json:"-"`
}

func (r *Repository) EntityID() string       { return r.ID }
func (r *Repository) EntityType() EntityType { return EntityTypeRepository }
func (r *Repository) Tag() string            { return r.ETag }
func (r *Repository) SetTag(tag string)      { r.ETag = tag }

// File is one member of a submission's manifest
type File struct {
	ID         string `json:"@id"`
	Submission string `json:"submission"`
	Name       string `json:"name"`
	URI        string `json:"uri"` // retrievable byte location
	MimeType   string `json:"mimeType,omitempty"`

	ETag string `json:"-"`
}

func (f *File) EntityID() string       { return f.ID }
func (f *File) EntityType() EntityType { return EntityTypeFile }
func (f *File) Tag() string            { return f.ETag }
func (f *File) SetTag(tag string)      { f.ETag = tag }

// DepositFile is one entry in the in-memory manifest of a DepositSubmission
type DepositFile struct {
	Name     string
	Location string // retrievable byte location
	MimeType string
}

// DepositSubmission is the normalized in-memory view of a Submission,
// built on demand from persistent state. It is never persisted.
type DepositSubmission struct {
	ID       string
	Metadata string
	Files    []DepositFile
	Targets  []string // repository URIs, in submission order
}
