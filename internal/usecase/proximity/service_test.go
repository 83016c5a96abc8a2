package proximity

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/nearlot/internal/domain"
	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	domprox "github.com/kailas-cloud/nearlot/internal/domain/proximity"
)

// --- Fakes ---

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memScanner keeps lots sorted by spatial key and answers half-open range scans.
type memScanner struct {
	mu    sync.Mutex
	lots  []domlot.Lot
	calls []string

	// hook, when set, replaces the scan result for the given lower bound.
	hook func(lower string) (lots []domlot.Lot, handled bool, err error)
}

func newMemScanner(lots ...domlot.Lot) *memScanner {
	m := &memScanner{lots: lots}
	sort.Slice(m.lots, func(i, j int) bool {
		ki, kj := m.lots[i].SpatialKey(), m.lots[j].SpatialKey()
		if ki != kj {
			return ki < kj
		}
		return m.lots[i].ID() < m.lots[j].ID()
	})
	return m
}

func (m *memScanner) ScanSpatialKey(ctx context.Context, lower, upper string) ([]domlot.Lot, error) {
	m.mu.Lock()
	m.calls = append(m.calls, lower)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.hook != nil {
		if lots, handled, err := m.hook(lower); handled {
			return lots, err
		}
	}
	var out []domlot.Lot
	for _, l := range m.lots {
		if k := l.SpatialKey(); k >= lower && k < upper {
			out = append(out, l)
		}
	}
	return out, nil
}

func newLot(t *testing.T, id string, lat, lon float64) domlot.Lot {
	t.Helper()
	l, err := domlot.New(id, domlot.Draft{
		MerchantID: "m-1",
		WeightKg:   10,
		LimitDate:  testNow.Add(48 * time.Hour),
		Location:   geo.Coordinate{Latitude: lat, Longitude: lon},
	}, testNow)
	if err != nil {
		t.Fatalf("new lot %s: %v", id, err)
	}
	return l
}

func resultIDs(rs []domprox.Result) []string {
	ids := make([]string, len(rs))
	for i := range rs {
		ids[i] = rs[i].Lot.ID()
	}
	return ids
}

var saoPaulo = geo.Coordinate{Latitude: -23.5505, Longitude: -46.6333}

// --- Scenarios ---

func TestSearch_SameCoordinates(t *testing.T) {
	svc := New(newMemScanner(newLot(t, "lot-1", saoPaulo.Latitude, saoPaulo.Longitude)), domain.DefaultProximityConfig())

	res, err := svc.Search(context.Background(), saoPaulo, 5, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 || res[0].Lot.ID() != "lot-1" {
		t.Fatalf("expected [lot-1], got %v", resultIDs(res))
	}
	if res[0].DistanceKm > 1e-9 {
		t.Errorf("expected distance ~0, got %v", res[0].DistanceKm)
	}
}

func TestSearch_FarRecordExcluded(t *testing.T) {
	svc := New(newMemScanner(newLot(t, "rio", -22.9068, -43.1729)), domain.DefaultProximityConfig())

	res, err := svc.Search(context.Background(), saoPaulo, 5, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("expected no results, got %v", resultIDs(res))
	}
}

func TestSearch_RadiusAboveMaximum(t *testing.T) {
	scanner := newMemScanner()
	svc := New(scanner, domain.DefaultProximityConfig())

	_, err := svc.Search(context.Background(), saoPaulo, 150, "")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if len(scanner.calls) != 0 {
		t.Errorf("store must not be touched on invalid input, got %d scans", len(scanner.calls))
	}
}

func TestSearch_InvalidInput(t *testing.T) {
	svc := New(newMemScanner(), domain.DefaultProximityConfig())

	tests := []struct {
		name   string
		center geo.Coordinate
		radius float64
		status domlot.Status
	}{
		{"zero radius", saoPaulo, 0, ""},
		{"negative radius", saoPaulo, -3, ""},
		{"below minimum", saoPaulo, 1, ""},
		{"latitude out of range", geo.Coordinate{Latitude: 91}, 10, ""},
		{"longitude out of range", geo.Coordinate{Longitude: -181}, 10, ""},
		{"unknown status", saoPaulo, 10, "sold"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), tc.center, tc.radius, tc.status)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestSearch_AcrossCellBoundary(t *testing.T) {
	const radius = 5.0
	p := geo.FitPrecision(saoPaulo, radius, geo.SelectPrecision(radius))
	key, err := geo.Encode(saoPaulo, p)
	if err != nil {
		t.Fatal(err)
	}
	box, err := geo.Bounds(key)
	if err != nil {
		t.Fatal(err)
	}

	// Center sits just inside the eastern edge of its cell; the lots straddle the edge.
	center := geo.Coordinate{Latitude: saoPaulo.Latitude, Longitude: box.MaxLon - 0.001}
	west := newLot(t, "west", center.Latitude, box.MaxLon-0.0001)
	east := newLot(t, "east", center.Latitude, box.MaxLon+0.0001)

	westKey, _ := geo.Encode(west.Location(), p)
	eastKey, _ := geo.Encode(east.Location(), p)
	if westKey == eastKey {
		t.Fatalf("test lots must fall in different cells at precision %d, both in %q", p, westKey)
	}

	svc := New(newMemScanner(west, east), domain.DefaultProximityConfig())
	res, err := svc.Search(context.Background(), center, radius, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resultIDs(res); !slices.Equal(got, []string{"west", "east"}) {
		t.Errorf("expected [west east], got %v", got)
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	svc := New(newMemScanner(), domain.DefaultProximityConfig())

	res, err := svc.Search(context.Background(), saoPaulo, 5, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", res)
	}
}

// --- Properties ---

func TestQuery_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	cfg := domain.ProximityConfig{MinRadiusKm: 0.05, MaxRadiusKm: 100, MaxConcurrentScans: 9}

	for round := 0; round < 40; round++ {
		center := geo.Coordinate{
			Latitude:  rng.Float64()*140 - 70,
			Longitude: rng.Float64()*360 - 180,
		}
		radius := cfg.MinRadiusKm + rng.Float64()*(cfg.MaxRadiusKm-cfg.MinRadiusKm)

		// Scatter lots in a box about twice the radius so both sides of the filter are hit.
		spread := 2 * radius / 111.0
		lots := make([]domlot.Lot, 0, 60)
		for i := 0; i < 60; i++ {
			lat := clamp(center.Latitude+(rng.Float64()*2-1)*spread, -90, 90)
			lon := wrapLon(center.Longitude + (rng.Float64()*2-1)*spread*2)
			lots = append(lots, newLot(t, fmt.Sprintf("r%d-%02d", round, i), lat, lon))
		}

		var want []string
		for i := range lots {
			if geo.DistanceKm(center, lots[i].Location()) <= radius {
				want = append(want, lots[i].ID())
			}
		}
		sort.Strings(want)

		svc := New(newMemScanner(lots...), cfg)
		res, err := svc.Search(context.Background(), center, radius, "")
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}

		got := resultIDs(res)
		if dup := firstDuplicate(got); dup != "" {
			t.Fatalf("round %d: duplicate %s", round, dup)
		}
		for i := range res {
			if res[i].DistanceKm > radius {
				t.Fatalf("round %d: %s at %.4f km exceeds radius %.4f", round, res[i].Lot.ID(), res[i].DistanceKm, radius)
			}
			if i > 0 && res[i-1].DistanceKm > res[i].DistanceKm {
				t.Fatalf("round %d: results not ordered by distance at %d", round, i)
			}
		}
		sorted := slices.Clone(got)
		sort.Strings(sorted)
		if !slices.Equal(sorted, want) {
			t.Fatalf("round %d (center %s, r %.3f): got %v, want %v", round, center, radius, sorted, want)
		}
	}
}

func TestQuery_Deterministic(t *testing.T) {
	lots := []domlot.Lot{
		newLot(t, "a", -23.55, -46.63),
		newLot(t, "b", -23.56, -46.64),
		newLot(t, "c", -23.54, -46.62),
		newLot(t, "d", -23.60, -46.70),
	}
	svc := New(newMemScanner(lots...), domain.DefaultProximityConfig())

	first, err := svc.Search(context.Background(), saoPaulo, 20, "")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := svc.Search(context.Background(), saoPaulo, 20, "")
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(resultIDs(first), resultIDs(again)) {
			t.Fatalf("run %d: %v != %v", i, resultIDs(again), resultIDs(first))
		}
	}
}

func TestQuery_TiesBrokenByID(t *testing.T) {
	svc := New(newMemScanner(
		newLot(t, "lot-c", -23.56, -46.64),
		newLot(t, "lot-b", -23.56, -46.64),
		newLot(t, "lot-a", -23.56, -46.64),
	), domain.DefaultProximityConfig())

	res, err := svc.Search(context.Background(), saoPaulo, 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := resultIDs(res); !slices.Equal(got, []string{"lot-a", "lot-b", "lot-c"}) {
		t.Errorf("expected ID order for equal distances, got %v", got)
	}
}

func TestQuery_ScansCenterAndNeighbors(t *testing.T) {
	scanner := newMemScanner()
	svc := New(scanner, domain.DefaultProximityConfig())

	if _, err := svc.Search(context.Background(), saoPaulo, 5, ""); err != nil {
		t.Fatal(err)
	}

	p := geo.FitPrecision(saoPaulo, 5, geo.SelectPrecision(5))
	key, _ := geo.Encode(saoPaulo, p)
	neighbors, _ := geo.Neighbors(key)
	want := append([]string{key}, neighbors...)
	sort.Strings(want)

	got := slices.Clone(scanner.calls)
	sort.Strings(got)
	if !slices.Equal(got, want) {
		t.Errorf("scanned %v, want %v", got, want)
	}
}

func TestQuery_StatusFilter(t *testing.T) {
	active := newLot(t, "active", -23.551, -46.634)
	done := newLot(t, "done", -23.552, -46.635)
	done, err := done.WithStatus(domlot.StatusFinished)
	if err != nil {
		t.Fatal(err)
	}
	svc := New(newMemScanner(active, done), domain.DefaultProximityConfig())

	res, err := svc.Search(context.Background(), saoPaulo, 5, domlot.StatusActive)
	if err != nil {
		t.Fatal(err)
	}
	if got := resultIDs(res); !slices.Equal(got, []string{"active"}) {
		t.Errorf("status=active: got %v", got)
	}

	res, err = svc.Search(context.Background(), saoPaulo, 5, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Errorf("no status filter: expected 2, got %v", resultIDs(res))
	}
}

func TestQuery_FinePrecisionWithCustomBounds(t *testing.T) {
	cfg := domain.ProximityConfig{MinRadiusKm: 0.01, MaxRadiusKm: 100, MaxConcurrentScans: 9}
	near := newLot(t, "near", -23.5505, -46.6334)
	far := newLot(t, "far", -23.5520, -46.6333)
	scanner := newMemScanner(near, far)
	svc := New(scanner, cfg)

	res, err := svc.Search(context.Background(), saoPaulo, 0.1, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := resultIDs(res); !slices.Equal(got, []string{"near"}) {
		t.Errorf("got %v, want [near]", got)
	}
	for _, prefix := range scanner.calls {
		if len(prefix) != 7 {
			t.Errorf("expected precision 7 prefixes for 100 m, got %q", prefix)
		}
	}
}

// --- Failure modes ---

func TestQuery_StoreErrorAborts(t *testing.T) {
	storeErr := errors.New("connection refused")
	scanner := newMemScanner(newLot(t, "lot-1", saoPaulo.Latitude, saoPaulo.Longitude))
	var failed atomic.Bool
	scanner.hook = func(_ string) ([]domlot.Lot, bool, error) {
		if failed.CompareAndSwap(false, true) {
			return nil, true, storeErr
		}
		return nil, false, nil
	}
	svc := New(scanner, domain.DefaultProximityConfig())

	res, err := svc.Search(context.Background(), saoPaulo, 5, "")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no partial results, got %v", resultIDs(res))
	}
}

func TestQuery_ContextCanceled(t *testing.T) {
	svc := New(newMemScanner(newLot(t, "lot-1", saoPaulo.Latitude, saoPaulo.Longitude)), domain.DefaultProximityConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Search(ctx, saoPaulo, 5, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("cancellation must not be reported as a store failure: %v", err)
	}
}

func TestQuery_MismatchedKeySkipped(t *testing.T) {
	good := newLot(t, "good", saoPaulo.Latitude, saoPaulo.Longitude)
	bad := domlot.Reconstruct(domlot.State{
		ID:         "bad",
		MerchantID: "m-1",
		Status:     domlot.StatusActive,
		Location:   saoPaulo,
		SpatialKey: "zzzzzzz",
	})

	scanner := newMemScanner(good)
	centerKey := good.SpatialKey()[:geo.FitPrecision(saoPaulo, 5, geo.SelectPrecision(5))]
	scanner.hook = func(lower string) ([]domlot.Lot, bool, error) {
		if lower == centerKey {
			return []domlot.Lot{bad, good}, true, nil
		}
		return nil, false, nil
	}
	svc := New(scanner, domain.DefaultProximityConfig())

	res, err := svc.Search(context.Background(), saoPaulo, 5, "")
	if err != nil {
		t.Fatalf("malformed record must not fail the query: %v", err)
	}
	if got := resultIDs(res); !slices.Equal(got, []string{"good"}) {
		t.Errorf("got %v, want [good]", got)
	}
}

func TestQuery_RespectsConcurrencyLimit(t *testing.T) {
	cfg := domain.DefaultProximityConfig()
	cfg.MaxConcurrentScans = 2

	var inFlight, peak atomic.Int32
	scanner := newMemScanner()
	scanner.hook = func(_ string) ([]domlot.Lot, bool, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil, true, nil
	}
	svc := New(scanner, cfg)

	if _, err := svc.Search(context.Background(), saoPaulo, 5, ""); err != nil {
		t.Fatal(err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrent scans = %d, want <= 2", p)
	}
	if len(scanner.calls) != 9 {
		t.Errorf("expected 9 scans, got %d", len(scanner.calls))
	}
}

// --- helpers ---

func clamp(v, lo, hi float64) float64 { return max(lo, min(hi, v)) }

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func firstDuplicate(ids []string) string {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id
		}
		seen[id] = true
	}
	return ""
}
