// Package assets implements the Asset Registry: the map of emitted asset
// ids to pending-or-finalized assets, with name-template expansion and
// deterministic filename assignment.
package assets

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/errcode"
	"github.com/vellumjs/vellum/internal/pathtmpl"
)

// Registry is the Asset Registry. Ids are deterministic: derived from an
// incrementing counter seeded at build start.
type Registry struct {
	mu      sync.Mutex
	counter int64
	byID    map[string]*core.Asset
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[string]*core.Asset)}
}

// Emit allocates a fresh asset id.
func (r *Registry) Emit(name string, source []byte, hasSource bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := atomic.AddInt64(&r.counter, 1)
	id := "asset_" + strconv.FormatInt(seq, 10)
	asset := &core.Asset{ID: id, Name: name, Seq: seq}
	if hasSource {
		asset.Source = source
		asset.HasSource = true
	}
	r.byID[id] = asset
	return id, nil
}

// MarkPerGenerate scopes an asset to the generate call that emitted it, so
// FinalizeAll will not carry it into a later call's bundle.
func (r *Registry) MarkPerGenerate(assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.byID[assetID]
	if !ok {
		return errcode.New(errcode.UnknownAsset, "no asset with id %q was emitted", assetID)
	}
	asset.PerGenerate = true
	return nil
}

// SetSource late-binds a source onto a previously emitted asset.
func (r *Registry) SetSource(assetID string, source []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.byID[assetID]
	if !ok {
		return errcode.New(errcode.UnknownAsset, "no asset with id %q was emitted", assetID)
	}
	if asset.HasName {
		return errcode.New(errcode.AssetFinalized, "asset %q already has a filename assigned", assetID)
	}
	asset.Source = source
	asset.HasSource = true
	return nil
}

// FileName retrieves the final filename for an asset; fails if it has not
// been assigned yet.
func (r *Registry) FileName(assetID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.byID[assetID]
	if !ok {
		return "", errcode.New(errcode.UnknownAsset, "no asset with id %q was emitted", assetID)
	}
	if !asset.HasName {
		return "", errcode.New(errcode.UnknownAsset, "asset %q has no filename yet", assetID)
	}
	return asset.FileName, nil
}

// Get returns the live asset record for assetID, so a caller like
// FinalizeOneAsset can mutate it in place through Finalize.
func (r *Registry) Get(assetID string) (*core.Asset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[assetID]
	return a, ok
}

// ByID returns a snapshot copy of every known asset, keyed by id.
func (r *Registry) ByID() map[string]*core.Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*core.Asset, len(r.byID))
	for k, v := range r.byID {
		copyOf := *v
		out[k] = &copyOf
	}
	return out
}

// FinalizeAll populates bundle with every sourced build-phase asset, the
// registry-wide pass run at the start of generate: assets not yet named are
// finalized, and assets named by an earlier generate call are re-inserted so
// each fresh bundle reproduces the full set. Assets scoped to a previous
// generateBundle pass are skipped. Assets are processed in emission order so
// bundle insertion and collision suffixes stay deterministic across runs.
func (r *Registry) FinalizeAll(bundle *core.OutputBundle, template string) error {
	r.mu.Lock()
	pending := make([]*core.Asset, 0)
	for _, asset := range r.byID {
		if asset.HasSource && !asset.PerGenerate {
			pending = append(pending, asset)
		}
	}
	r.mu.Unlock()
	sort.Slice(pending, func(i, j int) bool { return pending[i].Seq < pending[j].Seq })

	for _, asset := range pending {
		if err := r.Finalize(asset, bundle, template); err != nil {
			return err
		}
	}
	return nil
}

// ForceFinalizeUnsourced fails with ASSET_SOURCE_MISSING for every asset
// that has neither a source nor a filename at the end of generate.
func (r *Registry) ForceFinalizeUnsourced() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, asset := range r.byID {
		if !asset.HasSource && !asset.HasName {
			return errcode.New(errcode.AssetSourceMissing, "asset %q (%s) was emitted without a source and none was ever set", id, asset.Name)
		}
	}
	return nil
}

// Finalize expands the template for one asset and assigns it a filename,
// disambiguating collisions with a numeric suffix. An asset already named by
// an earlier generate call keeps its filename and is re-inserted into the
// current bundle.
func (r *Registry) Finalize(asset *core.Asset, bundle *core.OutputBundle, template string) error {
	r.mu.Lock()
	if asset.HasName {
		fileName, source := asset.FileName, asset.Source
		r.mu.Unlock()
		bundle.Put(&core.BundleEntry{
			FileName: fileName,
			Kind:     core.BundleAsset,
			Asset:    &core.OutputAsset{FileName: fileName, Source: source},
		})
		return nil
	}
	r.mu.Unlock()

	name := ExpandAssetTemplate(template, asset.Name, asset.Source)
	final := name
	for i := 2; bundle.Has(final); i++ {
		final = pathtmpl.Disambiguate(name, i)
	}

	r.mu.Lock()
	asset.FileName = final
	asset.HasName = true
	r.mu.Unlock()

	bundle.Put(&core.BundleEntry{
		FileName: final,
		Kind:     core.BundleAsset,
		Asset:    &core.OutputAsset{FileName: final, Source: asset.Source},
	})
	return nil
}

// ExpandAssetTemplate expands [name], [ext], [extname] and [hash] against an
// asset's name and source bytes, delegating to pathtmpl for the
// placeholder grammar shared with chunk filename expansion.
func ExpandAssetTemplate(template, name string, source []byte) string {
	base, ext := pathtmpl.SplitExt(name)
	return pathtmpl.Expand(template, pathtmpl.Placeholders{
		Name:    base,
		Hash:    pathtmpl.ContentHash(source),
		ExtName: ext,
		Ext:     strings.TrimPrefix(ext, "."),
	})
}
