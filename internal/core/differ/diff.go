package differ

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/rigsmith/internal/core/scene"
)

// Record is the flat attribute state of one entity.
type Record map[string]scene.Value

// Snapshot maps entity names to their captured records.
type Snapshot map[string]Record

// Diff maps entity names to the sparse set of attributes that changed since
// a Snapshot. Entities without changes are absent.
type Diff map[string]Record

func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the attribute names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for name, rec := range s {
		out[name] = rec.Clone()
	}
	return out
}

func (d Diff) Empty() bool { return len(d) == 0 }

// Entities returns the entity names in sorted order.
func (d Diff) Entities() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d Diff) Clone() Diff {
	if d == nil {
		return nil
	}
	out := make(Diff, len(d))
	for name, rec := range d {
		out[name] = rec.Clone()
	}
	return out
}

// Merge returns a new diff holding d overlaid with other; other wins on
// conflicting keys.
func (d Diff) Merge(other Diff) Diff {
	out := d.Clone()
	if out == nil {
		out = make(Diff, len(other))
	}
	for name, rec := range other {
		dst, ok := out[name]
		if !ok {
			dst = make(Record, len(rec))
			out[name] = dst
		}
		for k, v := range rec {
			dst[k] = v
		}
	}
	return out
}

// Equal reports whether both diffs hold the same entities, keys and values.
func (d Diff) Equal(other Diff, tol float64) bool {
	if len(d) != len(other) {
		return false
	}
	for name, rec := range d {
		orec, ok := other[name]
		if !ok || len(orec) != len(rec) {
			return false
		}
		for k, v := range rec {
			ov, ok := orec[k]
			if !ok || !v.Equal(ov, tol) {
				return false
			}
		}
	}
	return true
}

// Fingerprint hashes the canonical form of the diff. Equal diffs hash equal
// regardless of map iteration order.
func (d Diff) Fingerprint() uint64 {
	h := xxhash.New()
	for _, name := range d.Entities() {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
		rec := d[name]
		for _, k := range rec.Keys() {
			_, _ = h.WriteString(k)
			_, _ = h.Write([]byte{'='})
			_, _ = h.WriteString(rec[k].Type().String())
			_, _ = h.WriteString(rec[k].String())
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{1})
	}
	return h.Sum64()
}

// Encode writes the diff as YAML: entity name, attribute name, value.
func (d Diff) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]Record(d)); err != nil {
		return nil, fmt.Errorf("encode diff: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode diff: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses YAML produced by Encode.
func Decode(data []byte) (Diff, error) {
	var raw map[string]Record
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDiff, err)
	}
	d := make(Diff, len(raw))
	for name, rec := range raw {
		if len(rec) == 0 {
			continue
		}
		d[name] = rec
	}
	return d, nil
}
