package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/errcode"
)

func TestEmitAllocatesDeterministicIDs(t *testing.T) {
	r := New()
	id1, err := r.Emit("logo.png", []byte("aaa"), true)
	require.NoError(t, err)
	id2, err := r.Emit("icon.svg", nil, false)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, "asset_1", id1)
	assert.Equal(t, "asset_2", id2)
}

func TestSetSourceLateBinds(t *testing.T) {
	r := New()
	id, _ := r.Emit("icon.svg", nil, false)
	require.NoError(t, r.SetSource(id, []byte("<svg/>")))
	asset, ok := r.Get(id)
	require.True(t, ok)
	assert.True(t, asset.HasSource)
	assert.Equal(t, "<svg/>", string(asset.Source))
}

func TestSetSourceUnknownAsset(t *testing.T) {
	r := New()
	err := r.SetSource("asset_999", []byte("x"))
	require.Error(t, err)
	var codeErr *errcode.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, errcode.UnknownAsset, codeErr.Code)
}

func TestSetSourceAfterFinalizeFails(t *testing.T) {
	r := New()
	id, _ := r.Emit("icon.svg", []byte("<svg/>"), true)
	bundle := core.NewOutputBundle()
	asset, _ := r.Get(id)
	require.NoError(t, r.Finalize(asset, bundle, "assets/[name][extname]"))

	err := r.SetSource(id, []byte("<svg>new</svg>"))
	require.Error(t, err)
	var codeErr *errcode.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, errcode.AssetFinalized, codeErr.Code)
}

func TestFileNameBeforeFinalizeFails(t *testing.T) {
	r := New()
	id, _ := r.Emit("icon.svg", []byte("<svg/>"), true)
	_, err := r.FileName(id)
	require.Error(t, err)
}

func TestFinalizeAssignsTemplatedName(t *testing.T) {
	r := New()
	id, _ := r.Emit("logo.png", []byte("binary-data"), true)
	bundle := core.NewOutputBundle()
	asset, _ := r.Get(id)
	require.NoError(t, r.Finalize(asset, bundle, "assets/[name]-[hash][extname]"))

	name, err := r.FileName(id)
	require.NoError(t, err)
	assert.Regexp(t, `^assets/logo-[0-9a-f]{8}\.png$`, name)
	assert.True(t, bundle.Has(name))
}

func TestFinalizeDisambiguatesCollisions(t *testing.T) {
	r := New()
	bundle := core.NewOutputBundle()

	id1, _ := r.Emit("logo.png", []byte("same"), true)
	id2, _ := r.Emit("logo.png", []byte("same"), true)

	a1, _ := r.Get(id1)
	require.NoError(t, r.Finalize(a1, bundle, "assets/[name][extname]"))
	a2, _ := r.Get(id2)
	require.NoError(t, r.Finalize(a2, bundle, "assets/[name][extname]"))

	name1, _ := r.FileName(id1)
	name2, _ := r.FileName(id2)
	assert.NotEqual(t, name1, name2)
	assert.Equal(t, "assets/logo.png", name1)
	assert.Equal(t, "assets/logo2.png", name2)
}

func TestFinalizeAllProcessesAssetsInEmissionOrder(t *testing.T) {
	r := New()
	bundle := core.NewOutputBundle()
	r.Emit("c.txt", []byte("third"), true)
	r.Emit("a.txt", []byte("first"), true)
	r.Emit("b.txt", []byte("second"), true)

	require.NoError(t, r.FinalizeAll(bundle, "[name][extname]"))

	entries := bundle.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "c.txt", entries[0].FileName)
	assert.Equal(t, "a.txt", entries[1].FileName)
	assert.Equal(t, "b.txt", entries[2].FileName)
}

func TestFinalizeAllCollisionSuffixesFollowEmissionOrder(t *testing.T) {
	r := New()
	bundle := core.NewOutputBundle()
	first, _ := r.Emit("logo.png", []byte("one"), true)
	second, _ := r.Emit("logo.png", []byte("two"), true)

	require.NoError(t, r.FinalizeAll(bundle, "[name][extname]"))

	name1, _ := r.FileName(first)
	name2, _ := r.FileName(second)
	assert.Equal(t, "logo.png", name1)
	assert.Equal(t, "logo2.png", name2)
}

func TestFinalizeAllReinsertsNamedAssetsIntoFreshBundle(t *testing.T) {
	r := New()
	id, _ := r.Emit("logo.png", []byte("binary"), true)

	first := core.NewOutputBundle()
	require.NoError(t, r.FinalizeAll(first, "assets/[name][extname]"))
	name, err := r.FileName(id)
	require.NoError(t, err)

	second := core.NewOutputBundle()
	require.NoError(t, r.FinalizeAll(second, "assets/[name][extname]"))

	entry, ok := second.Get(name)
	require.True(t, ok, "an asset named by an earlier generate call must reappear in a fresh bundle")
	assert.Equal(t, "binary", string(entry.Asset.Source))
}

func TestFinalizeAllSkipsPerGenerateAssets(t *testing.T) {
	r := New()
	id, _ := r.Emit("scoped.css", []byte("body{}"), true)
	bundle := core.NewOutputBundle()
	asset, _ := r.Get(id)
	require.NoError(t, r.Finalize(asset, bundle, "[name][extname]"))
	require.NoError(t, r.MarkPerGenerate(id))

	next := core.NewOutputBundle()
	require.NoError(t, r.FinalizeAll(next, "[name][extname]"))
	assert.Empty(t, next.Entries(), "a generateBundle-scoped asset must not leak into a later call's bundle")
}

func TestMarkPerGenerateUnknownAsset(t *testing.T) {
	r := New()
	err := r.MarkPerGenerate("asset_404")
	require.Error(t, err)
	var codeErr *errcode.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, errcode.UnknownAsset, codeErr.Code)
}

func TestFinalizeAllSkipsUnsourcedAssets(t *testing.T) {
	r := New()
	bundle := core.NewOutputBundle()
	sourced, _ := r.Emit("a.txt", []byte("content"), true)
	unsourced, _ := r.Emit("b.txt", nil, false)

	require.NoError(t, r.FinalizeAll(bundle, "[name][extname]"))

	_, err := r.FileName(unsourced)
	assert.Error(t, err)
	_, err = r.FileName(sourced)
	assert.NoError(t, err)
}

func TestForceFinalizeUnsourcedFailsWhenAssetNeverGetsASource(t *testing.T) {
	r := New()
	r.Emit("never-sourced.bin", nil, false)
	err := r.ForceFinalizeUnsourced()
	require.Error(t, err)
	var codeErr *errcode.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, errcode.AssetSourceMissing, codeErr.Code)
}

func TestForceFinalizeUnsourcedPassesOnceNamed(t *testing.T) {
	r := New()
	bundle := core.NewOutputBundle()
	id, _ := r.Emit("fine.bin", []byte("ok"), true)
	asset, _ := r.Get(id)
	require.NoError(t, r.Finalize(asset, bundle, "[name][extname]"))
	assert.NoError(t, r.ForceFinalizeUnsourced())
}

func TestExpandAssetTemplate(t *testing.T) {
	got := ExpandAssetTemplate("static/[name]-[hash][extname]", "images/logo.png", []byte("abc"))
	assert.Regexp(t, `^static/logo-[0-9a-f]{8}\.png$`, got)
}

func TestByIDReturnsDefensiveCopies(t *testing.T) {
	r := New()
	id, _ := r.Emit("a.txt", []byte("hi"), true)
	snapshot := r.ByID()
	snapshot[id].Name = "mutated"

	live, _ := r.Get(id)
	assert.Equal(t, "a.txt", live.Name, "mutating a ByID() snapshot must not affect the live registry")
}
