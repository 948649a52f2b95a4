// Package store is the persistence collaborator: the durable blacklist, the
// oracle state blob and the accepted-track log, kept in a local Badger
// database.
package store

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/bonfito/billie/pkg/feature"
)

// Key layout. Blacklist entries never expire; history keys are ordered by
// acceptance time so replays iterate chronologically.
const (
	prefixBlacklist = "blacklist/"
	prefixHistory   = "history/"
	keyOracleState  = "oracle/state"
)

// AcceptedTrack is one positive feedback event, durably logged so future
// sessions can warm-start and retrain.
type AcceptedTrack struct {
	TrackID    string         `json:"track_id"`
	Features   feature.Vector `json:"features"`
	AcceptedAt time.Time      `json:"accepted_at"`
}

// Store wraps a Badger database. Safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// OpenInMemory opens an ephemeral store, used by tests and the simulator.
func OpenInMemory(logger *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddToBlacklist durably records a disliked track id.
func (s *Store) AddToBlacklist(trackID string) error {
	if trackID == "" {
		return errors.New("blacklist: empty track id")
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixBlacklist+trackID), []byte{1})
	})
	if err != nil {
		return fmt.Errorf("blacklist %s: %w", trackID, err)
	}
	return nil
}

// Blacklist returns every blacklisted track id.
func (s *Store) Blacklist() (map[string]bool, error) {
	out := make(map[string]bool)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixBlacklist)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			out[string(key[len(prefixBlacklist):])] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read blacklist: %w", err)
	}
	return out, nil
}

// SaveOracleState atomically replaces the persisted oracle blob. Badger
// transactions give the write-fully-or-not-at-all behavior the loading side
// depends on.
func (s *Store) SaveOracleState(blob []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyOracleState), blob)
	})
	if err != nil {
		return fmt.Errorf("save oracle state: %w", err)
	}
	return nil
}

// LoadOracleState returns the persisted blob, or nil when no state has been
// saved yet.
func (s *Store) LoadOracleState() ([]byte, error) {
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyOracleState))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load oracle state: %w", err)
	}
	return blob, nil
}

// AppendAccepted logs a positive feedback event.
func (s *Store) AppendAccepted(rec AcceptedTrack) error {
	if rec.AcceptedAt.IsZero() {
		rec.AcceptedAt = time.Now().UTC()
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode accepted track: %w", err)
	}
	key := fmt.Sprintf("%s%020d/%s", prefixHistory, rec.AcceptedAt.UnixNano(), rec.TrackID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("append accepted %s: %w", rec.TrackID, err)
	}
	return nil
}

// Accepted returns the accepted-track log in chronological order.
func (s *Store) Accepted() ([]AcceptedTrack, error) {
	var out []AcceptedTrack
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixHistory)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var rec AcceptedTrack
				if err := json.Unmarshal(value, &rec); err != nil {
					// A corrupt row loses one event, not the log.
					s.logger.Warn("skipping corrupt history record", zap.Error(err))
					return nil
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read accepted log: %w", err)
	}
	return out, nil
}
