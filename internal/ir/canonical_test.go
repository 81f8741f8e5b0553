package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarshalCanonical_SortedKeys tests that object keys are emitted in
// sorted order regardless of construction order.
func TestMarshalCanonical_SortedKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"zebra": 1,
		"alpha": 2,
		"mid":   3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zebra":1}`, string(data))
}

// TestMarshalCanonical_NoWhitespace tests compact output with nested
// structures.
func TestMarshalCanonical_NoWhitespace(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"events": []any{
			map[string]any{"type": "STEP", "input": 1},
		},
		"count": 1,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"count":1,"events":[{"input":1,"type":"STEP"}]}`, string(data))
}

// TestMarshalCanonical_NoHTMLEscape tests that < > & pass through
// unescaped.
func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"s": "a<b>&c"})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"a<b>&c"}`, string(data))
}

// TestMarshalCanonical_NFC tests Unicode normalization: a decomposed
// e + combining acute collapses to the precomposed form.
func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "é" // e + COMBINING ACUTE ACCENT
	precomposed := "é" // é

	d1, err := MarshalCanonical(map[string]any{"s": decomposed})
	require.NoError(t, err)
	d2, err := MarshalCanonical(map[string]any{"s": precomposed})
	require.NoError(t, err)
	assert.Equal(t, string(d2), string(d1))
}

// TestMarshalCanonical_RejectsNull tests that nil values are refused.
func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": nil})
	require.Error(t, err)

	_, err = MarshalCanonical(nil)
	require.Error(t, err)
}

// TestMarshalCanonical_RejectsFractionalFloat tests that non-integral
// numbers are refused while integral float64 values (as produced by
// encoding/json) are accepted.
func TestMarshalCanonical_RejectsFractionalFloat(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	require.Error(t, err)

	data, err := MarshalCanonical(map[string]any{"x": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, `{"x":7}`, string(data))
}

// TestMarshalCanonical_RejectsUnsupportedType tests the type allowlist.
func TestMarshalCanonical_RejectsUnsupportedType(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": struct{}{}})
	require.Error(t, err)
}

// TestMarshalCanonical_EmptyContainers tests empty array and object
// forms.
func TestMarshalCanonical_EmptyContainers(t *testing.T) {
	data, err := MarshalCanonical([]any{})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	data, err = MarshalCanonical(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
