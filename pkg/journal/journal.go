// Package journal records the batches a driver receives, in a bbolt database.
//
// Each driver session gets its own bucket, named by a random UUID, inside the
// top-level sessions bucket. Entries are keyed by a big-endian sequence number
// and stored as JSON.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"src.vbridge.sh/pkg/logutil"
	"src.vbridge.sh/pkg/reconcile"
	"src.vbridge.sh/pkg/vdom"
)

var logger = logutil.GetLogger("[journal] ")

const bucketSessions = "sessions"

// Errors returned when looking up sessions.
var (
	ErrNoSession        = errors.New("no such session")
	ErrAmbiguousSession = errors.New("ambiguous session prefix")
)

// Kinds of entries.
const (
	KindInitial = "initial"
	KindEvent   = "event"
)

// Entry is one batch received by a driver.
type Entry struct {
	Seq       uint64     `json:"-"`
	Time      time.Time  `json:"time"`
	Kind      string     `json:"kind"`
	Event     string     `json:"event,omitempty"`
	ID        vdom.ID    `json:"id,omitempty"`
	Templates []string   `json:"templates,omitempty"`
	Edits     vdom.Edits `json:"instructions"`
	Error     string     `json:"error,omitempty"`
}

// Session summarizes a session.
type Session struct {
	ID      string
	Started time.Time
	Entries int
	Failed  int
}

// Journal is an open journal database.
type Journal struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates a journal database.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSessions))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db, time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

// NewSession creates a session and returns its ID.
func (j *Journal) NewSession() (string, error) {
	id := uuid.NewString()
	err := j.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.Bucket([]byte(bucketSessions)).CreateBucket([]byte(id))
		return err
	})
	return id, err
}

// Append adds an entry to a session, and returns its sequence number. Entries
// with a zero time are stamped with the current time.
func (j *Journal) Append(session string, e Entry) (uint64, error) {
	if e.Time.IsZero() {
		e.Time = j.now()
	}
	var seq uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions)).Bucket([]byte(session))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrNoSession, session)
		}
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), data)
	})
	return seq, err
}

// Entries returns all entries of a session in order.
func (j *Journal) Entries(session string) ([]Entry, error) {
	var entries []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions)).Bucket([]byte(session))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrNoSession, session)
		}
		return b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("entry %d: %w", unmarshalSeq(k), err)
			}
			e.Seq = unmarshalSeq(k)
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

// Sessions returns all sessions, oldest first. Sessions without entries are
// listed last.
func (j *Journal) Sessions() ([]Session, error) {
	var sessions []Session
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).ForEach(func(k, _ []byte) error {
			s := Session{ID: string(k)}
			b := tx.Bucket([]byte(bucketSessions)).Bucket(k)
			err := b.ForEach(func(_, v []byte) error {
				var e Entry
				if err := json.Unmarshal(v, &e); err != nil {
					return err
				}
				if s.Entries == 0 {
					s.Started = e.Time
				}
				s.Entries++
				if e.Error != "" {
					s.Failed++
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("session %s: %w", s.ID, err)
			}
			sessions = append(sessions, s)
			return nil
		})
	})
	sort.SliceStable(sessions, func(i, k int) bool {
		a, b := sessions[i], sessions[k]
		if a.Started.IsZero() != b.Started.IsZero() {
			return !a.Started.IsZero()
		}
		return a.Started.Before(b.Started)
	})
	return sessions, err
}

// Find resolves a unique prefix of a session ID.
func (j *Journal) Find(prefix string) (string, error) {
	var found []string
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketSessions)).Cursor()
		for k, _ := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			found = append(found, string(k))
		}
		return nil
	})
	switch {
	case err != nil:
		return "", err
	case len(found) == 0:
		return "", fmt.Errorf("%w: %s", ErrNoSession, prefix)
	case len(found) > 1 && found[0] != prefix:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousSession, prefix)
	}
	return found[0], nil
}

// Observer returns a reconcile.Observer that appends every outcome to a
// session. Failures to write are logged.
func (j *Journal) Observer(session string) reconcile.Observer {
	return func(o reconcile.Outcome) {
		if _, err := j.Append(session, FromOutcome(o)); err != nil {
			logutil.Log(logger, "append failed", logutil.Fields{"session": session, "err": err})
		}
	}
}

// FromOutcome converts a batch outcome to an entry.
func FromOutcome(o reconcile.Outcome) Entry {
	e := Entry{Kind: KindInitial, Edits: o.Mutations.Edits}
	if o.Event != nil {
		e.Kind, e.Event, e.ID = KindEvent, o.Event.Name, o.Event.ID
	}
	for _, t := range o.Mutations.Templates {
		e.Templates = append(e.Templates, t.Name)
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
