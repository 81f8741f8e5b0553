package crystal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/engine"
	"github.com/roach88/prism/internal/ir"
)

func requireReadError(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	re, ok := err.(*ReadError)
	require.True(t, ok, "expected *ReadError, got %T", err)
	assert.Equal(t, reason, re.Reason)
}

// TestRead_FullShape tests the modern {version, kind, payload,
// signature} document.
func TestRead_FullShape(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "crystals/c.json",
		`{"version":"0.2","kind":"event_digest","payload":{"event_count":1},"signature":"abc"}`)

	doc, err := Read(dir, "crystals/c.json", "")
	require.NoError(t, err)
	assert.Equal(t, "0.2", doc["version"])
	assert.Equal(t, "event_digest", doc["kind"])
	assert.Equal(t, "abc", doc["signature"])
}

// TestRead_FullShapeBackfillsSignature tests that an omitted signature
// is backfilled from the expected one.
func TestRead_FullShapeBackfillsSignature(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "crystals/c.json",
		`{"version":"0.2","kind":"event_digest","payload":{}}`)

	doc, err := Read(dir, "crystals/c.json", "expected-sig")
	require.NoError(t, err)
	assert.Equal(t, "expected-sig", doc["signature"])

	// Without an expected signature the field simply stays absent
	doc, err = Read(dir, "crystals/c.json", "")
	require.NoError(t, err)
	_, present := doc["signature"]
	assert.False(t, present)
}

// TestRead_LegacyWithSignature tests wrapping of a flat legacy document
// carrying its own signature.
func TestRead_LegacyWithSignature(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "crystals/legacy.json",
		`{"signature":"legacy-sig","events":[{"type":"STEP"}]}`)

	doc, err := Read(dir, "crystals/legacy.json", "")
	require.NoError(t, err)
	assert.Equal(t, "legacy", doc["version"])
	assert.Equal(t, ir.KindEventDigest, doc["kind"])
	assert.Equal(t, "legacy-sig", doc["signature"])

	payload := doc["payload"].(map[string]any)
	assert.Contains(t, payload, "events")
}

// TestRead_LegacyWithoutSignature tests that a signatureless legacy
// document is only accepted when the caller supplies an expectation.
func TestRead_LegacyWithoutSignature(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "crystals/legacy.json", `{"events":[{"type":"STEP"}]}`)

	doc, err := Read(dir, "crystals/legacy.json", "supplied")
	require.NoError(t, err)
	assert.Equal(t, "legacy", doc["version"])
	assert.Equal(t, "supplied", doc["signature"])

	_, err = Read(dir, "crystals/legacy.json", "")
	requireReadError(t, err, ir.ReasonInvalid)
}

// TestRead_Failures tests the three failure reasons.
func TestRead_Failures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "crystals/bad.json", "{not json")
	writeFile(t, dir, "crystals/array.json", `[1,2,3]`)
	writeFile(t, dir, "crystals/badpayload.json",
		`{"version":"0.2","kind":"event_digest","payload":"not an object"}`)

	_, err := Read(dir, "../escape.json", "")
	requireReadError(t, err, ir.ReasonViolation)

	_, err = Read(dir, "crystals/missing.json", "")
	requireReadError(t, err, ir.ReasonNotFound)

	_, err = Read(dir, "crystals/bad.json", "")
	requireReadError(t, err, ir.ReasonInvalid)

	_, err = Read(dir, "crystals/array.json", "")
	requireReadError(t, err, ir.ReasonInvalid)

	_, err = Read(dir, "crystals/badpayload.json", "")
	requireReadError(t, err, ir.ReasonInvalid)
}

// TestRead_StorageFallback tests the legacy layout: a crystals/ path
// missing at the root is retried under storage/.
func TestRead_StorageFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "storage/crystals/c.json",
		`{"version":"0.2","kind":"event_digest","payload":{},"signature":"s"}`)

	doc, err := Read(dir, "crystals/c.json", "")
	require.NoError(t, err)
	assert.Equal(t, "s", doc["signature"])

	// The fallback only applies to crystals/ paths
	writeFile(t, dir, "storage/other/c.json", `{"version":"0.2","kind":"k","payload":{}}`)
	_, err = Read(dir, "other/c.json", "")
	requireReadError(t, err, ir.ReasonNotFound)
}

// TestReadSelected_Success tests the recorded CRYSTAL_READ on a valid
// load.
func TestReadSelected_Success(t *testing.T) {
	dir := t.TempDir()
	e, sig := seedWorkspace(t, dir)

	doc := ReadSelected(e, "crystals/crystal_0000.json", sig)
	require.NotNil(t, doc)
	assert.Equal(t, sig, doc["signature"])

	last := e.History()[len(e.History())-1]
	assert.Equal(t, ir.TypeCrystalRead, last.Type)
	assert.Equal(t, "crystals/crystal_0000.json", last.Path)
	assert.Equal(t, ir.KindEventDigest, last.Kind)
	assert.Equal(t, sig, last.Signature)
	assert.Equal(t, 14, e.Budget(), "reading is free")
}

// TestReadSelected_EmptyPath tests the NO_SELECTION deny.
func TestReadSelected_EmptyPath(t *testing.T) {
	e := engine.New(t.TempDir())

	doc := ReadSelected(e, "", "")
	assert.Nil(t, doc)

	last := e.History()[len(e.History())-1]
	assert.Equal(t, ir.TypeCrystalReadDeny, last.Type)
	assert.Equal(t, ir.ReasonNotFound, last.Reason)
	assert.Equal(t, ir.DetailNoSelection, last.Detail)
}

// TestReadSelected_DenyCarriesReason tests that load failures surface
// the reader's reason in the recorded deny.
func TestReadSelected_DenyCarriesReason(t *testing.T) {
	dir := t.TempDir()
	e := engine.New(dir)
	writeFile(t, dir, "crystals/bad.json", "{not json")

	assert.Nil(t, ReadSelected(e, "../escape.json", ""))
	assert.Nil(t, ReadSelected(e, "crystals/missing.json", ""))
	assert.Nil(t, ReadSelected(e, "crystals/bad.json", ""))

	history := e.History()
	require.Len(t, history, 3)
	assert.Equal(t, ir.ReasonViolation, history[0].Reason)
	assert.Equal(t, ir.ReasonNotFound, history[1].Reason)
	assert.Equal(t, ir.ReasonInvalid, history[2].Reason)
	for _, ev := range history {
		assert.Equal(t, ir.TypeCrystalReadDeny, ev.Type)
	}
}
