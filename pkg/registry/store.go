package registry

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"go-sqladvisor/pkg/analyzer"
)

var (
	tablesBucket  = []byte("tables")
	historyBucket = []byte("history")
)

// HistoryRecord summarizes one completed analysis
type HistoryRecord struct {
	ID              string    `json:"id"`
	Fingerprint     string    `json:"fingerprint"`
	SQL             string    `json:"sql"`
	CreatedAt       time.Time `json:"created_at"`
	TotalCost       int       `json:"total_cost"`
	Warnings        int       `json:"warnings"`
	Recommendations int       `json:"recommendations"`
}

// Store persists the workspace and analysis history in a bolt file.
// The file is opened per operation so several processes can share it.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore expands a leading ~ in path
func NewStore(path string, logger zerolog.Logger) *Store {
	if strings.HasPrefix(path, "~") {
		if h, err := os.UserHomeDir(); err == nil {
			path = strings.Replace(path, "~", h, 1)
		}
	}
	return &Store{path: path, logger: logger}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", s.path, err)
	}
	return db, nil
}

// SaveWorkspace replaces the stored cards with the given ones, keeping order
func (s *Store) SaveWorkspace(cards []analyzer.IndexEntry) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(tablesBucket) != nil {
			if err := tx.DeleteBucket(tablesBucket); err != nil {
				return err
			}
		}
		bkt, err := tx.CreateBucket(tablesBucket)
		if err != nil {
			return err
		}
		for i, c := range cards {
			v, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := bkt.Put(itob(uint64(i)), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}

	s.logger.Info().Int("tables", len(cards)).Str("path", s.path).Msg("workspace saved")
	return nil
}

// LoadWorkspace returns the stored cards, or none if nothing was saved yet
func (s *Store) LoadWorkspace() ([]analyzer.IndexEntry, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var cards []analyzer.IndexEntry
	err = db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(tablesBucket)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(_, v []byte) error {
			var c analyzer.IndexEntry
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			cards = append(cards, c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	return cards, nil
}

// NewHistoryRecord summarizes a bundle for the history bucket
func NewHistoryRecord(sql string, reg analyzer.Registry, bundle *analyzer.Bundle) HistoryRecord {
	return HistoryRecord{
		ID:              uuid.NewString(),
		Fingerprint:     Fingerprint(sql, reg),
		SQL:             sql,
		CreatedAt:       time.Now().UTC(),
		TotalCost:       bundle.Plan.TotalCost,
		Warnings:        len(bundle.Plan.Warnings),
		Recommendations: len(bundle.Recommendations),
	}
}

// Fingerprint hashes the query together with the registry it was analyzed against
func Fingerprint(sql string, reg analyzer.Registry) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(sql)))
	for _, e := range reg.Entries() {
		h.Write([]byte("\n"))
		h.Write([]byte(e.Table))
		h.Write([]byte("\n"))
		h.Write([]byte(e.Definition))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AppendHistory stores a record under the next bucket sequence
func (s *Store) AppendHistory(rec HistoryRecord) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	v, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode history record: %w", err)
	}
	return db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(historyBucket)
		if err != nil {
			return err
		}
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		return bkt.Put(itob(seq), v)
	})
}

// History returns up to limit records, newest first. limit <= 0 means all.
func (s *Store) History(limit int) ([]HistoryRecord, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var records []HistoryRecord
	err = db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(historyBucket)
		if bkt == nil {
			return nil
		}
		c := bkt.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec HistoryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return records, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
