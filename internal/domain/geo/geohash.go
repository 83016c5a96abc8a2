package geo

import (
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/nearlot/internal/domain"
)

// Spatial key limits.
const (
	MinPrecision = 1
	MaxPrecision = 12
	// WritePrecision is the key length persisted with every record.
	// Must be >= the finest precision SelectPrecision can return.
	WritePrecision = 7
)

// MaxSuffix sorts after every alphabet symbol: prefix+MaxSuffix is the
// exclusive upper bound of a prefix range scan.
const MaxSuffix = "\uf8ff"

const alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

var symbolIndex = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = int8(i)
	}
	return t
}()

// Cell is a grid cell at a given precision, addressed by row (latitude
// index from the south pole) and column (longitude index from -180).
type Cell struct {
	Precision int
	Row       uint64
	Col       uint64
}

// Box is a cell's bounding box in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Center returns the middle of the box.
func (b Box) Center() Coordinate {
	return Coordinate{Latitude: (b.MinLat + b.MaxLat) / 2, Longitude: (b.MinLon + b.MaxLon) / 2}
}

// Contains reports whether c lies inside the box (edges inclusive).
func (b Box) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}

// Encode returns the spatial key of c with the given number of symbols.
// Longitude and latitude bits are interleaved, longitude first.
func Encode(c Coordinate, precision int) (string, error) {
	if err := checkPrecision(precision); err != nil {
		return "", err
	}
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("encode %s: %w", c, err)
	}

	lonBits, latBits := axisBits(precision)
	cell := Cell{
		Precision: precision,
		Row:       quantize(c.Latitude, -90, 180, latBits),
		Col:       quantize(c.Longitude, -180, 360, lonBits),
	}
	return cell.Key(), nil
}

// Decode parses a spatial key back into its grid cell.
func Decode(key string) (Cell, error) {
	if err := checkPrecision(len(key)); err != nil {
		return Cell{}, fmt.Errorf("decode %q: %w", key, err)
	}

	var cell Cell
	cell.Precision = len(key)
	even := true
	for i := 0; i < len(key); i++ {
		sym := symbolIndex[key[i]]
		if sym < 0 {
			return Cell{}, fmt.Errorf("%w: invalid symbol %q in key %q", domain.ErrEncoding, key[i], key)
		}
		for shift := 4; shift >= 0; shift-- {
			bit := uint64(sym>>shift) & 1
			if even {
				cell.Col = cell.Col<<1 | bit
			} else {
				cell.Row = cell.Row<<1 | bit
			}
			even = !even
		}
	}
	return cell, nil
}

// Bounds returns the bounding box of the cell addressed by key.
func Bounds(key string) (Box, error) {
	cell, err := Decode(key)
	if err != nil {
		return Box{}, err
	}
	return cell.Box(), nil
}

// Neighbors returns the distinct keys of the cells around key at the same
// precision, sorted. Columns wrap across the antimeridian; rows past a pole
// do not exist and are dropped, so polar cells have fewer than 8 neighbors.
func Neighbors(key string) ([]string, error) {
	cell, err := Decode(key)
	if err != nil {
		return nil, err
	}

	lonBits, latBits := axisBits(cell.Precision)
	cols := int64(1) << lonBits
	rows := int64(1) << latBits

	seen := map[string]struct{}{key: {}}
	out := make([]string, 0, 8)
	for dr := int64(-1); dr <= 1; dr++ {
		row := int64(cell.Row) + dr
		if row < 0 || row >= rows {
			continue
		}
		for dc := int64(-1); dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			col := (int64(cell.Col) + dc + cols) % cols
			k := Cell{Precision: cell.Precision, Row: uint64(row), Col: uint64(col)}.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Key renders the cell as a spatial key.
func (c Cell) Key() string {
	lonBits, latBits := axisBits(c.Precision)
	buf := make([]byte, c.Precision)
	var lonPos, latPos uint
	even := true
	for i := range buf {
		var sym byte
		for j := 0; j < 5; j++ {
			var bit uint64
			if even {
				lonPos++
				bit = (c.Col >> (lonBits - lonPos)) & 1
			} else {
				latPos++
				bit = (c.Row >> (latBits - latPos)) & 1
			}
			sym = sym<<1 | byte(bit)
			even = !even
		}
		buf[i] = alphabet[sym]
	}
	return string(buf)
}

// Box returns the cell's bounding box.
func (c Cell) Box() Box {
	h, w := CellSizeDeg(c.Precision)
	return Box{
		MinLat: -90 + float64(c.Row)*h,
		MaxLat: -90 + float64(c.Row+1)*h,
		MinLon: -180 + float64(c.Col)*w,
		MaxLon: -180 + float64(c.Col+1)*w,
	}
}

// CellSizeDeg returns the height (latitude) and width (longitude) in degrees
// of every cell at the given precision.
func CellSizeDeg(precision int) (latDeg, lonDeg float64) {
	lonBits, latBits := axisBits(precision)
	return 180 / float64(uint64(1)<<latBits), 360 / float64(uint64(1)<<lonBits)
}

// axisBits splits 5*precision bits between the axes; longitude gets the odd bit.
func axisBits(precision int) (lonBits, latBits uint) {
	total := uint(precision) * 5
	return (total + 1) / 2, total / 2
}

// quantize maps v in [lo, lo+span] to a cell index with the given bit count.
// The scaled value is multiplied by a power of two, so the index at a coarser
// precision is always the high bits of the index at a finer one.
func quantize(v, lo, span float64, bits uint) uint64 {
	n := uint64(1) << bits
	idx := uint64(math.Floor((v - lo) / span * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func checkPrecision(p int) error {
	if p < MinPrecision || p > MaxPrecision {
		return fmt.Errorf("%w: precision %d out of range [%d, %d]",
			domain.ErrEncoding, p, MinPrecision, MaxPrecision)
	}
	return nil
}
