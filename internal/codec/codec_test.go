package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeComponentRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("user:me"),
		[]byte("user\x1ftype\x1fadmin%"),
		{0x00, 0x1F, '%', 0xFF, 'a', 'b'},
		[]byte("plain-ascii-id"),
	}
	for _, raw := range cases {
		enc := EncodeComponent(raw)
		dec, err := DecodeComponent(enc)
		require.NoError(t, err)
		assert.Equal(t, raw, dec)
	}
}

func TestEncodeComponentEscapesSeparatorAndEscapeAndNonASCII(t *testing.T) {
	enc := EncodeComponent([]byte{Sep, '%', 0xFF, 'a'})
	assert.Equal(t, "%1F%25%FFa", enc)
}

func TestDecodeComponentRejectsMalformedEscape(t *testing.T) {
	_, err := DecodeComponent("%1")
	assert.Error(t, err)
	_, err = DecodeComponent("%ZZ")
	assert.Error(t, err)
}

func TestEdgePrimaryKeyRoundTrip(t *testing.T) {
	from := []byte("a\x1fb")
	to := []byte("c%d")
	key := EdgePrimaryKey(from, to)
	gotFrom, gotTo, err := DecodeEdgePrimaryKey(key)
	require.NoError(t, err)
	assert.Equal(t, from, gotFrom)
	assert.Equal(t, to, gotTo)
}

func TestNodeIndexKeyRoundTripAndPrefix(t *testing.T) {
	key := []byte("status")
	value := []byte("active")
	id := []byte("user:me")
	full := NodeIndexKey(key, value, id)
	prefix := NodeIndexPrefix(key, value)
	assert.Truef(t, len(full) > len(prefix) && full[:len(prefix)] == prefix, "expected %q to have prefix %q", full, prefix)

	gotKey, gotValue, gotID, err := DecodeNodeIndexKey(full)
	require.NoError(t, err)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, value, gotValue)
	assert.Equal(t, id, gotID)
}

func TestEdgeIndexKeyRoundTrip(t *testing.T) {
	key := []byte("type")
	value := []byte("block")
	from := []byte("a")
	to := []byte("b")
	full := EdgeIndexKey(key, value, from, to)
	gotKey, gotValue, gotFrom, gotTo, err := DecodeEdgeIndexKey(full)
	require.NoError(t, err)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, value, gotValue)
	assert.Equal(t, from, gotFrom)
	assert.Equal(t, to, gotTo)
}

func TestFieldListRoundTrip(t *testing.T) {
	fields := []string{"rating", "type", "a\x1fb"}
	enc := EncodeFieldList(fields)
	dec, err := DecodeFieldList(enc)
	require.NoError(t, err)
	assert.Equal(t, fields, dec)
}

func TestEmptyFieldListRoundTrip(t *testing.T) {
	dec, err := DecodeFieldList(EncodeFieldList(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{}, dec)
}

func TestGeohashPrecisionMonotonicity(t *testing.T) {
	radii := []float64{0, 0.001, 0.02, 0.1, 1, 4, 30, 100, 1000, 10000}
	for i := 1; i < len(radii); i++ {
		p1 := PrecisionForRadiusKm(radii[i-1])
		p2 := PrecisionForRadiusKm(radii[i])
		assert.GreaterOrEqualf(t, p1, p2, "radius %v should have precision >= radius %v", radii[i-1], radii[i])
	}
}

func TestGeohashPrecisionZeroOrNegative(t *testing.T) {
	assert.Equal(t, 9, PrecisionForRadiusKm(0))
	assert.Equal(t, 9, PrecisionForRadiusKm(-5))
}

func TestEncodeGeohashKnownValue(t *testing.T) {
	// Known reference point/prefix used broadly in geohash literature.
	hash := EncodeGeohash(57.64911, 10.40744, 6)
	assert.Equal(t, "u4pruy", hash)
}

func TestEncodeGeohashSamePointMonotonicPrefix(t *testing.T) {
	long := EncodeGeohash(-23.5505, -46.6333, 9)
	short := EncodeGeohash(-23.5505, -46.6333, 3)
	assert.Equal(t, short, long[:3])
}
