// Package diff classifies terminology resources across two snapshots using
// their persisted checksums as the equality notion, and composes nested
// changelogs tying mapping changes to their owning concepts.
package diff

import (
	"fmt"
	"sort"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/common"
)

// Resource is what the differ needs from a snapshot member: a stable
// identity key, its lifecycle state, and the already-persisted checksum
// document. The differ never computes checksums itself.
type Resource interface {
	IdentityValue(field string) string
	IsRetired() bool
	RecordID() int64
	StoredChecksums() checksum.Checksums
}

// DefaultIdentity is the identity-key field used when the caller does not
// choose one.
const DefaultIdentity = "mnemonic"

// Result category names. These key names are part of the output contract.
const (
	CategoryNew          = "new"
	CategoryRemoved      = "removed"
	CategoryRetired      = "retired"
	CategoryChanged      = "changed"
	CategorySmartChanged = "smart_changed"
	CategorySame         = "same"
	CategorySmartSame    = "smart_same"
)

// Categories in output order. The changelog composer walks them in this
// order too, so reporting is deterministic.
var categoryOrder = []string{
	CategoryNew, CategoryRemoved, CategoryRetired,
	CategoryChanged, CategorySmartChanged,
}

// Result maps a category name to either a bare count (int) or, at verbosity
// 2 for non-empty categories, a map with "total" and the identity-key field
// holding the sorted key list.
type Result map[string]any

type mapEntry struct {
	checksums checksum.Checksums
	id        int64
}

// Differ partitions two resource snapshots into new / removed / retired /
// changed / smart_changed (and, verbosely, same / smart_same) sets. Side 1
// is the newer snapshot, side 2 the comparison baseline.
type Differ struct {
	side1     []Resource
	side2     []Resource
	identity  string
	verbosity int

	computed    bool
	map1        map[string]mapEntry
	map1Retired map[string]mapEntry
	map2        map[string]mapEntry
	map2Retired map[string]mapEntry

	newSet          map[string]mapEntry
	deleted         map[string]mapEntry
	retired         map[string]mapEntry
	changedStandard map[string]mapEntry
	changedSmart    map[string]mapEntry
	same            map[string]mapEntry
	sameSmart       map[string]mapEntry

	result Result
}

// NewDiffer builds a differ over two snapshots. identity selects the
// identity-key field (DefaultIdentity when empty); verbosity is 0, 1 or 2.
func NewDiffer(side1, side2 []Resource, identity string, verbosity int) *Differ {
	if identity == "" {
		identity = DefaultIdentity
	}
	return &Differ{
		side1:     side1,
		side2:     side2,
		identity:  identity,
		verbosity: verbosity,
	}
}

// Identity returns the identity-key field this differ correlates on.
func (d *Differ) Identity() string { return d.identity }

// Verbosity returns the verbosity level the differ was built with.
func (d *Differ) Verbosity() int { return d.verbosity }

func (d *Differ) isVerbose() bool     { return d.verbosity >= 1 }
func (d *Differ) isVeryVerbose() bool { return d.verbosity == 2 }

// snapshotMaps builds the active and retired maps for one side. The retired
// map filters resources with the retired flag set; active everything else.
func (d *Differ) snapshotMaps(resources []Resource) (active, retired map[string]mapEntry) {
	active = make(map[string]mapEntry, len(resources))
	retired = make(map[string]mapEntry)
	for _, r := range resources {
		e := mapEntry{checksums: r.StoredChecksums(), id: r.RecordID()}
		if r.IsRetired() {
			retired[r.IdentityValue(d.identity)] = e
		} else {
			active[r.IdentityValue(d.identity)] = e
		}
	}
	return active, retired
}

func (d *Differ) ensureMaps() {
	if d.map1 != nil {
		return
	}
	d.map1, d.map1Retired = d.snapshotMaps(d.side1)
	d.map2, d.map2Retired = d.snapshotMaps(d.side2)
}

// Process computes (or returns the memoized) result. With refresh, the
// cached result is discarded and recomputed. It fails with
// common.ErrChecksumNotReady when a common resource is missing a required
// checksum key.
func (d *Differ) Process(refresh bool) (Result, error) {
	if refresh {
		d.computed = false
		d.result = nil
	}
	if d.computed {
		return d.result, nil
	}

	d.ensureMaps()
	d.classify()
	if err := d.classifyCommon(); err != nil {
		return nil, err
	}
	d.prepare()
	d.computed = true
	return d.result, nil
}

// classify fills the pure set-algebra categories.
func (d *Differ) classify() {
	d.newSet = make(map[string]mapEntry)
	for key, e := range d.map1 {
		if _, ok := d.map2[key]; !ok {
			d.newSet[key] = e
		}
	}

	d.retired = make(map[string]mapEntry)
	for key, e := range d.map2Retired {
		if _, ok := d.map1Retired[key]; !ok {
			d.retired[key] = e
		}
	}

	// A key absent from side 1 counts as removed only when it was not
	// already accounted for as newly retired.
	d.deleted = make(map[string]mapEntry)
	for key, e := range d.map2 {
		if _, ok := d.map1[key]; ok {
			continue
		}
		if _, ok := d.retired[key]; ok {
			continue
		}
		d.deleted[key] = e
	}
}

// classifyCommon compares standard and smart checksums independently for
// every key present on both active sides.
func (d *Differ) classifyCommon() error {
	d.changedStandard = make(map[string]mapEntry)
	d.changedSmart = make(map[string]mapEntry)
	d.same = make(map[string]mapEntry)
	d.sameSmart = make(map[string]mapEntry)

	for key, info := range d.map1 {
		other, ok := d.map2[key]
		if !ok {
			continue
		}
		std1, ok1 := info.checksums[checksum.StandardKey]
		std2, ok2 := other.checksums[checksum.StandardKey]
		if !ok1 || !ok2 {
			return fmt.Errorf("%w: %s %q has no standard checksum", common.ErrChecksumNotReady, d.identity, key)
		}
		if std1 != std2 {
			d.changedStandard[key] = info
		} else if d.isVerbose() {
			d.same[key] = info
		}

		// Types without a smart checksum have the key absent on both
		// sides; that counts as equal.
		if info.checksums[checksum.SmartKey] != other.checksums[checksum.SmartKey] {
			d.changedSmart[key] = info
		} else if d.isVerbose() {
			d.sameSmart[key] = info
		}
	}
	return nil
}

// structFor shapes one category per the verbosity contract: a bare count,
// or at verbosity 2 a map with the total and the sorted identity-key list
// when non-empty.
func (d *Differ) structFor(values map[string]mapEntry) any {
	total := len(values)
	if d.isVeryVerbose() && total > 0 {
		keys := make([]string, 0, total)
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return map[string]any{"total": total, d.identity: keys}
	}
	return total
}

func (d *Differ) prepare() {
	d.result = Result{
		CategoryNew:          d.structFor(d.newSet),
		CategoryRemoved:      d.structFor(d.deleted),
		CategoryRetired:      d.structFor(d.retired),
		CategoryChanged:      d.structFor(d.changedStandard),
		CategorySmartChanged: d.structFor(d.changedSmart),
	}
	if d.isVerbose() {
		d.result[CategorySame] = d.structFor(d.same)
		d.result[CategorySmartSame] = d.structFor(d.sameSmart)
	}
}

// DBIDFor resolves an identity key of a given result category back to its
// record id, preferring side 1. Retired keys resolve through the retired
// maps.
func (d *Differ) DBIDFor(category, key string) (int64, bool) {
	d.ensureMaps()
	if category == CategoryRetired {
		if e, ok := d.map1Retired[key]; ok {
			return e.id, true
		}
		if e, ok := d.map2Retired[key]; ok {
			return e.id, true
		}
		return 0, false
	}
	if e, ok := d.map1[key]; ok {
		return e.id, true
	}
	if e, ok := d.map2[key]; ok {
		return e.id, true
	}
	return 0, false
}

// Keys returns the sorted identity keys of a category in the processed
// result, or nil when the category is a bare count.
func (r Result) Keys(category, identity string) []string {
	verbose, ok := r[category].(map[string]any)
	if !ok {
		return nil
	}
	keys, _ := verbose[identity].([]string)
	return keys
}
