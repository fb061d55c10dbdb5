package journal

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketDispatches = []byte("dispatches")

// Journal records deposit fan-out fingerprints in a local BoltDB file.
// The critical-section claim already makes fan-out at-most-once within
// one process generation; the journal extends that across restarts by
// remembering which (submission, repository) pairs have been
// dispatched.
type Journal struct {
	db *bolt.DB
}

// Record is what the journal remembers about one dispatch
type Record struct {
	Submission string    `json:"submission"`
	Repository string    `json:"repository"`
	Deposit    string    `json:"deposit"`
	Dispatched time.Time `json:"dispatched"`
}

// Open opens (creating if necessary) the journal in dataDir
func Open(dataDir string) (*Journal, error) {
	dbPath := filepath.Join(dataDir, "ferry.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("journal: opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDispatches)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: creating bucket: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal
func (j *Journal) Close() error {
	return j.db.Close()
}

// Fingerprint is the stable key for one (submission, repository) pair
func Fingerprint(submission, repository string) string {
	return submission + "\x00" + repository
}

// MarkDispatched records that a deposit was created for the pair
func (j *Journal) MarkDispatched(submission, repository, depositID string) error {
	rec := Record{
		Submission: submission,
		Repository: repository,
		Deposit:    depositID,
		Dispatched: time.Now(),
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDispatches)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(Fingerprint(submission, repository)), data)
	})
}

// Dispatched returns the recorded deposit for the pair, if any
func (j *Journal) Dispatched(submission, repository string) (*Record, error) {
	var rec *Record
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDispatches)
		data := b.Get([]byte(Fingerprint(submission, repository)))
		if data == nil {
			return nil
		}
		rec = &Record{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("journal: reading dispatch record: %w", err)
	}
	return rec, nil
}

// Forget removes the record for the pair. Used by the retry driver so
// a failed deposit can be re-enqueued.
func (j *Journal) Forget(submission, repository string) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDispatches).Delete([]byte(Fingerprint(submission, repository)))
	})
}
