package core

import "sync"

// Asset is an emitted non-code output file. The Asset
// Registry (internal/assets) owns the transition from "pending" (no
// FileName) to "finalized" (FileName set).
type Asset struct {
	ID        string
	Name      string
	Source    []byte
	HasSource bool
	FileName  string
	HasName   bool

	// Seq is the emission counter value behind ID, kept as a number so the
	// registry can finalize assets in emission order rather than map order.
	Seq int64

	// PerGenerate marks an asset emitted during a generateBundle pass. Such
	// assets belong to that generate call's bundle alone and are skipped
	// when a later call re-populates its fresh bundle from the registry.
	PerGenerate bool
}

// OutputChunk is a rendered chunk placed into an OutputBundle.
type OutputChunk struct {
	FileName     string
	Code         string
	Map          *SourceMap
	IsEntry      bool
	Facade       bool
	Imports      []string
	Exports      []string
	ModuleIDs    []string
	EntryModule  string
}

// OutputAsset is a raw, non-code output file placed into an OutputBundle.
type OutputAsset struct {
	FileName string
	Source   []byte
}

// BundleEntryKind distinguishes a chunk entry from an asset entry.
type BundleEntryKind uint8

const (
	BundleChunk BundleEntryKind = iota
	BundleAsset
)

// BundleEntry is one (filename -> chunk|asset) mapping in an OutputBundle.
type BundleEntry struct {
	FileName string
	Kind     BundleEntryKind
	Chunk    *OutputChunk
	Asset    *OutputAsset
}

// OutputBundle is the ordered mapping from final filename to either an
// OutputChunk or an OutputAsset. It is created fresh per generate/write
// call and is never shared across calls.
type OutputBundle struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*BundleEntry
}

// NewOutputBundle returns an empty bundle.
func NewOutputBundle() *OutputBundle {
	return &OutputBundle{entries: make(map[string]*BundleEntry)}
}

// Put inserts or replaces the entry for fileName, preserving first-insertion
// order for entries not previously present.
func (b *OutputBundle) Put(entry *BundleEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.entries[entry.FileName]; !exists {
		b.order = append(b.order, entry.FileName)
	}
	b.entries[entry.FileName] = entry
}

// Get looks up an entry by filename.
func (b *OutputBundle) Get(fileName string) (*BundleEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[fileName]
	return e, ok
}

// Has reports whether fileName is already present, which is how filename
// collision disambiguation checks uniqueness.
func (b *OutputBundle) Has(fileName string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[fileName]
	return ok
}

// Entries returns every entry in stable insertion order.
func (b *OutputBundle) Entries() []*BundleEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*BundleEntry, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.entries[name])
	}
	return out
}

// GenerateResult is the return value of Build.generate/write: entry chunks
// first (in emission order), then shared chunks, then assets, each category
// internally stable.
type GenerateResult struct {
	Output []*BundleEntry
}

// SortForOutput imposes a stable total order on the bundle: entry chunks
// first in emission order, then shared chunks, then assets.
func SortForOutput(bundle *OutputBundle) *GenerateResult {
	entries := bundle.Entries()

	var entryChunks, sharedChunks, assets []*BundleEntry
	for _, e := range entries {
		switch {
		case e.Kind == BundleChunk && e.Chunk.IsEntry:
			entryChunks = append(entryChunks, e)
		case e.Kind == BundleChunk:
			sharedChunks = append(sharedChunks, e)
		default:
			assets = append(assets, e)
		}
	}

	out := make([]*BundleEntry, 0, len(entries))
	out = append(out, entryChunks...)
	out = append(out, sharedChunks...)
	out = append(out, assets...)
	return &GenerateResult{Output: out}
}
