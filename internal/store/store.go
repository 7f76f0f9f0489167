// Package store persists component diff caches between sessions.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/rig"
	"github.com/zeusync/rigsmith/internal/core/widget"
)

const bucketAssemblies = "assemblies"

var ErrNotFound = errors.New("no stored diffs")

// Store keeps one bucket per assembly holding the diff pair of each
// component. Values are an 8 byte fingerprint followed by YAML.
type Store struct {
	db     *bolt.DB
	logger log.Log
}

type Option func(*Store)

func WithLogger(l log.Log) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open diff store %s: %w", path, err)
	}
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrNop(s.logger).Named("store")
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketAssemblies))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init diff store: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.db.Path() }

func fingerprint(p widget.DiffPair) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], p.Layout.Fingerprint())
	binary.BigEndian.PutUint64(buf[8:], p.Rig.Fingerprint())
	return xxhash.Sum64(buf[:])
}

func encode(p widget.DiffPair) ([]byte, error) {
	body, err := yaml.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint64(out, fingerprint(p))
	return append(out, body...), nil
}

func decode(v []byte) (widget.DiffPair, error) {
	var p widget.DiffPair
	if len(v) < 8 {
		return p, errors.New("truncated diff record")
	}
	if err := yaml.Unmarshal(v[8:], &p); err != nil {
		return p, err
	}
	return p, nil
}

func assemblyBucket(tx *bolt.Tx, assembly string, create bool) (*bolt.Bucket, error) {
	root := tx.Bucket([]byte(bucketAssemblies))
	if create {
		return root.CreateBucketIfNotExists([]byte(assembly))
	}
	b := root.Bucket([]byte(assembly))
	if b == nil {
		return nil, fmt.Errorf("%w: assembly %s", ErrNotFound, assembly)
	}
	return b, nil
}

// Put stores the diff pair of one component. It reports false when the
// stored pair already had the same fingerprint and nothing was written.
func (s *Store) Put(assembly, id string, p widget.DiffPair) (bool, error) {
	value, err := encode(p)
	if err != nil {
		return false, fmt.Errorf("encode diffs of %s: %w", id, err)
	}
	written := false
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := assemblyBucket(tx, assembly, true)
		if err != nil {
			return err
		}
		if old := b.Get([]byte(id)); len(old) >= 8 && binary.BigEndian.Uint64(old) == binary.BigEndian.Uint64(value) {
			return nil
		}
		written = true
		return b.Put([]byte(id), value)
	})
	if err != nil {
		return false, err
	}
	s.logger.Debug("diffs stored",
		log.String("assembly", assembly),
		log.String("component", id),
		log.Bool("written", written))
	return written, nil
}

func (s *Store) Get(assembly, id string) (widget.DiffPair, error) {
	var p widget.DiffPair
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := assemblyBucket(tx, assembly, false)
		if err != nil {
			return err
		}
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, assembly, id)
		}
		p, err = decode(v)
		return err
	})
	return p, err
}

// Delete removes the diffs of one component. Deleting a missing entry is
// not an error.
func (s *Store) Delete(assembly, id string) error {
	_, err := s.remove(assembly, id)
	return err
}

func (s *Store) remove(assembly, id string) (bool, error) {
	removed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := assemblyBucket(tx, assembly, false)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if b.Get([]byte(id)) == nil {
			return nil
		}
		removed = true
		return b.Delete([]byte(id))
	})
	return removed, err
}

// List returns the component identities stored for assembly, sorted.
func (s *Store) List(assembly string) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := assemblyBucket(tx, assembly, false)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return ids, err
}

// Assemblies returns the names of every assembly with stored diffs.
func (s *Store) Assemblies() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketAssemblies)).ForEach(func(k, v []byte) error {
			if v == nil {
				names = append(names, string(k))
			}
			return nil
		})
	})
	return names, err
}

// All returns every stored diff pair of assembly by component identity.
func (s *Store) All(assembly string) (map[string]widget.DiffPair, error) {
	out := make(map[string]widget.DiffPair)
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := assemblyBucket(tx, assembly, false)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			p, err := decode(v)
			if err != nil {
				return fmt.Errorf("decode diffs of %s: %w", k, err)
			}
			out[string(k)] = p
			return nil
		})
	})
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	return out, err
}

// SaveAssembly stores the cached diffs of every component of a and returns
// how many entries changed. Components whose cache is empty lose their
// stored entry.
func (s *Store) SaveAssembly(a *rig.Assembly) (int, error) {
	changed := 0
	for _, w := range a.Components() {
		var (
			written bool
			err     error
		)
		if p := w.CachedDiffs(); p.Empty() {
			written, err = s.remove(a.Name(), w.ID())
		} else {
			written, err = s.Put(a.Name(), w.ID(), p)
		}
		if err != nil {
			return changed, err
		}
		if written {
			changed++
		}
	}
	s.logger.Info("assembly diffs saved", log.String("assembly", a.Name()), log.Int("changed", changed))
	return changed, nil
}

// LoadAssembly seeds the diff caches of a from the store and returns how
// many components received diffs.
func (s *Store) LoadAssembly(a *rig.Assembly) (int, error) {
	diffs, err := s.All(a.Name())
	if err != nil {
		return 0, err
	}
	unknown := a.ImportDiffs(diffs)
	loaded := len(diffs) - len(unknown)
	s.logger.Info("assembly diffs loaded",
		log.String("assembly", a.Name()),
		log.Int("loaded", loaded),
		log.Strings("unknown", unknown))
	return loaded, nil
}
