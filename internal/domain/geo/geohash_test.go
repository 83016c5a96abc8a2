package geo

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/nearlot/internal/domain"
)

func TestEncode_KnownVectors(t *testing.T) {
	tests := []struct {
		name      string
		c         Coordinate
		precision int
		want      string
	}{
		{"jutland", Coordinate{Latitude: 42.6, Longitude: -5.6}, 5, "ezs42"},
		{"aalborg", Coordinate{Latitude: 57.64911, Longitude: 10.40744}, 11, "u4pruydqqvj"},
		{"origin", Coordinate{}, 1, "s"},
		{"south-west corner", Coordinate{Latitude: -90, Longitude: -180}, 3, "000"},
		{"north-east corner", Coordinate{Latitude: 90, Longitude: 180}, 3, "zzz"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.c, tc.precision)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEncode_InvalidCoordinate(t *testing.T) {
	bad := []Coordinate{
		{Latitude: 90.0001, Longitude: 0},
		{Latitude: -91, Longitude: 0},
		{Latitude: 0, Longitude: 180.5},
		{Latitude: math.NaN(), Longitude: 0},
		{Latitude: 0, Longitude: math.Inf(-1)},
	}
	for _, c := range bad {
		_, err := Encode(c, 5)
		require.Error(t, err, "coordinate %v", c)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
}

func TestEncode_InvalidPrecision(t *testing.T) {
	for _, p := range []int{0, -1, 13} {
		_, err := Encode(Coordinate{}, p)
		assert.ErrorIs(t, err, domain.ErrEncoding, "precision %d", p)
	}
}

func TestEncode_PrefixProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 500; i++ {
		c := Coordinate{
			Latitude:  rng.Float64()*180 - 90,
			Longitude: rng.Float64()*360 - 180,
		}
		prev, err := Encode(c, MinPrecision)
		require.NoError(t, err)
		for p := MinPrecision + 1; p <= MaxPrecision; p++ {
			next, err := Encode(c, p)
			require.NoError(t, err)
			require.Truef(t, strings.HasPrefix(next, prev), "%s: %q is not a prefix of %q", c, prev, next)
			prev = next
		}
	}
}

func TestEncode_Deterministic(t *testing.T) {
	c := Coordinate{Latitude: -33.8688, Longitude: 151.2093}
	a, err := Encode(c, 9)
	require.NoError(t, err)
	b, err := Encode(c, 9)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecode_RoundTripContainsPoint(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for i := 0; i < 200; i++ {
		c := Coordinate{
			Latitude:  rng.Float64()*180 - 90,
			Longitude: rng.Float64()*360 - 180,
		}
		p := 1 + rng.IntN(MaxPrecision)
		key, err := Encode(c, p)
		require.NoError(t, err)

		box, err := Bounds(key)
		require.NoError(t, err)
		assert.Truef(t, box.Contains(c), "box %+v of %q does not contain %s", box, key, c)

		// Re-encoding the box center yields the same key.
		again, err := Encode(box.Center(), p)
		require.NoError(t, err)
		assert.Equal(t, key, again)
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, key := range []string{"", "ezs4a", "EZS42", "ezs42ezs42ezs", "ez i"} {
		_, err := Decode(key)
		assert.ErrorIs(t, err, domain.ErrEncoding, "key %q", key)
	}
}

func TestBounds_Known(t *testing.T) {
	box, err := Bounds("ezs42")
	require.NoError(t, err)
	assert.InDelta(t, 42.583, box.MinLat, 0.001)
	assert.InDelta(t, 42.627, box.MaxLat, 0.001)
	assert.InDelta(t, -5.625, box.MinLon, 0.001)
	assert.InDelta(t, -5.581, box.MaxLon, 0.001)
}

func TestNeighbors_Interior(t *testing.T) {
	got, err := Neighbors("ezs42")
	require.NoError(t, err)
	assert.Equal(t, []string{"ezefp", "ezefr", "ezefx", "ezs40", "ezs41", "ezs43", "ezs48", "ezs49"}, got)
}

func TestNeighbors_AntimeridianWrap(t *testing.T) {
	east, err := Encode(Coordinate{Latitude: 0, Longitude: 179.99}, 5)
	require.NoError(t, err)
	west, err := Encode(Coordinate{Latitude: 0, Longitude: -179.99}, 5)
	require.NoError(t, err)

	got, err := Neighbors(east)
	require.NoError(t, err)
	assert.Len(t, got, 8)
	assert.Contains(t, got, west)

	back, err := Neighbors(west)
	require.NoError(t, err)
	assert.Contains(t, back, east)
}

func TestNeighbors_PolarRowsDropped(t *testing.T) {
	north, err := Encode(Coordinate{Latitude: 89.99, Longitude: 0}, 3)
	require.NoError(t, err)
	got, err := Neighbors(north)
	require.NoError(t, err)
	assert.Equal(t, []string{"gzx", "gzz", "up8", "up9", "upc"}, got)

	south, err := Encode(Coordinate{Latitude: -89.99, Longitude: 0}, 1)
	require.NoError(t, err)
	got, err = Neighbors(south)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "7", "j", "k", "m"}, got)
}

func TestNeighbors_SortedDistinctWithoutSelf(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 17))
	for i := 0; i < 200; i++ {
		c := Coordinate{
			Latitude:  rng.Float64()*180 - 90,
			Longitude: rng.Float64()*360 - 180,
		}
		key, err := Encode(c, 1+rng.IntN(8))
		require.NoError(t, err)

		got, err := Neighbors(key)
		require.NoError(t, err)
		assert.NotContains(t, got, key)
		assert.LessOrEqual(t, len(got), 8)
		for j := 1; j < len(got); j++ {
			require.Less(t, got[j-1], got[j], "neighbors of %q not sorted or duplicated: %v", key, got)
		}
		for _, n := range got {
			assert.Len(t, n, len(key))
		}
	}
}

func TestMaxSuffix_SortsAfterAlphabet(t *testing.T) {
	for i := 0; i < len(alphabet); i++ {
		assert.Less(t, "ezs"+alphabet[i:i+1]+"zzzzzz", "ezs"+MaxSuffix)
	}
	assert.Less(t, "ezs"+MaxSuffix, "ezt")
}

func TestCellSizeDeg(t *testing.T) {
	h, w := CellSizeDeg(5)
	assert.InDelta(t, 0.0439453125, h, 1e-12)
	assert.InDelta(t, 0.0439453125, w, 1e-12)

	h, w = CellSizeDeg(4)
	assert.InDelta(t, 0.17578125, h, 1e-12)
	assert.InDelta(t, 0.3515625, w, 1e-12)
}
