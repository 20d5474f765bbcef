package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
)

// Bucket names.
var (
	bucketLog     = []byte("log")           // ID -> LogEntry
	bucketStaging = []byte("staging")       // Sequence -> StagingEntry
	bucketRoots   = []byte("watched_roots") // Path -> WatchedRoot
)

// boltStore implements Store using BoltDB.
type boltStore struct {
	db     *bolt.DB
	logger logger.Logger
	closed atomic.Bool
}

// Open opens (or creates) the event database.
//
// Parameters:
//   - cfg: Store configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Store
//   - Error if the database cannot be opened
func Open(cfg Config, log logger.Logger) (Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := expandHome(cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrUnavailable, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketLog, bucketStaging, bucketRoots} {
			if _, createErr := tx.CreateBucketIfNotExists(name); createErr != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, createErr)
			}
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Info("event store opened", "db_path", dbPath)

	return &boltStore{
		db:     db,
		logger: log,
	}, nil
}

// Stage implements Store.Stage.
func (s *boltStore) Stage(evt fsevent.Event) error {
	if err := validateEvent(evt); err != nil {
		return err
	}

	data, err := json.Marshal(StagingEntry{Event: evt})
	if err != nil {
		return fmt.Errorf("failed to marshal staging entry: %w", err)
	}

	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStaging)

		seq, seqErr := b.NextSequence()
		if seqErr != nil {
			return fmt.Errorf("failed to allocate staging sequence: %w", seqErr)
		}

		if putErr := b.Put(itob(seq), data); putErr != nil {
			return fmt.Errorf("failed to stage event: %w", putErr)
		}
		return nil
	})
}

// Staged implements Store.Staged.
func (s *boltStore) Staged() ([]StagingEntry, error) {
	entries := make([]StagingEntry, 0, 16)

	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStaging).ForEach(func(k, v []byte) error {
			var entry StagingEntry
			if unmarshalErr := json.Unmarshal(v, &entry); unmarshalErr != nil {
				s.logger.Warn("failed to unmarshal staging entry",
					"key", binary.BigEndian.Uint64(k),
					"error", unmarshalErr)
				return nil // Skip invalid entries.
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list staged events: %w", err)
	}

	return entries, nil
}

// Commit implements Store.Commit.
func (s *boltStore) Commit() (int, error) {
	promoted := 0

	err := s.update(func(tx *bolt.Tx) error {
		staging := tx.Bucket(bucketStaging)
		logBucket := tx.Bucket(bucketLog)

		if err := staging.ForEach(func(_, v []byte) error {
			var entry StagingEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal staging entry: %w", err)
			}

			id, err := logBucket.NextSequence()
			if err != nil {
				return fmt.Errorf("failed to allocate log id: %w", err)
			}

			data, err := json.Marshal(LogEntry{ID: id, Event: entry.Event})
			if err != nil {
				return fmt.Errorf("failed to marshal log entry: %w", err)
			}

			if err := logBucket.Put(itob(id), data); err != nil {
				return fmt.Errorf("failed to append log entry: %w", err)
			}

			promoted++
			return nil
		}); err != nil {
			return err
		}

		return recreateBucket(tx, bucketStaging)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("staged events committed", "count", promoted)
	return promoted, nil
}

// Discard implements Store.Discard.
func (s *boltStore) Discard() error {
	if err := s.update(func(tx *bolt.Tx) error {
		return recreateBucket(tx, bucketStaging)
	}); err != nil {
		return err
	}

	s.logger.Info("staged events discarded")
	return nil
}

// Log implements Store.Log.
func (s *boltStore) Log(limit int) ([]LogEntry, error) {
	entries := make([]LogEntry, 0, 16)

	err := s.view(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLog).Cursor()

		// Walk backwards so a limit only touches the newest rows.
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}

			var entry LogEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				s.logger.Warn("failed to unmarshal log entry",
					"id", binary.BigEndian.Uint64(k),
					"error", err)
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list log: %w", err)
	}

	// Restore id order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// ResetSession implements Store.ResetSession.
func (s *boltStore) ResetSession() error {
	return s.update(func(tx *bolt.Tx) error {
		if err := recreateBucket(tx, bucketStaging); err != nil {
			return err
		}
		return recreateBucket(tx, bucketRoots)
	})
}

// PutWatchedRoot implements Store.PutWatchedRoot.
func (s *boltStore) PutWatchedRoot(root WatchedRoot) error {
	if root.Path == "" {
		return ErrInvalidPath
	}

	data, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to marshal watched root: %w", err)
	}

	return s.update(func(tx *bolt.Tx) error {
		if putErr := tx.Bucket(bucketRoots).Put([]byte(root.Path), data); putErr != nil {
			return fmt.Errorf("failed to store watched root: %w", putErr)
		}
		return nil
	})
}

// DeleteWatchedRoot implements Store.DeleteWatchedRoot.
func (s *boltStore) DeleteWatchedRoot(path string) error {
	if path == "" {
		return ErrInvalidPath
	}

	return s.update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoots).Delete([]byte(path))
	})
}

// WatchedRoots implements Store.WatchedRoots.
func (s *boltStore) WatchedRoots() ([]WatchedRoot, error) {
	roots := make([]WatchedRoot, 0, 4)

	err := s.view(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRoots).ForEach(func(k, v []byte) error {
			var root WatchedRoot
			if err := json.Unmarshal(v, &root); err != nil {
				s.logger.Warn("failed to unmarshal watched root",
					"path", string(k),
					"error", err)
				return nil
			}
			roots = append(roots, root)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list watched roots: %w", err)
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].Path < roots[j].Path })
	return roots, nil
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.logger.Info("event store closed")
	return nil
}

// update runs fn in a read-write transaction, mapping a closed database to ErrUnavailable.
func (s *boltStore) update(fn func(tx *bolt.Tx) error) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	return unavailable(s.db.Update(fn))
}

// view runs fn in a read-only transaction, mapping a closed database to ErrUnavailable.
func (s *boltStore) view(fn func(tx *bolt.Tx) error) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	return unavailable(s.db.View(fn))
}

func unavailable(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// recreateBucket empties a bucket by dropping and recreating it.
//
// Bucket sequences restart, which is fine for staging and roots but must
// never be applied to the log bucket.
func recreateBucket(tx *bolt.Tx, name []byte) error {
	if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return fmt.Errorf("failed to clear %s bucket: %w", name, err)
	}
	if _, err := tx.CreateBucket(name); err != nil {
		return fmt.Errorf("failed to recreate %s bucket: %w", name, err)
	}
	return nil
}

// itob encodes a sequence number as a sortable key.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
