package pipeline

import (
	"math"

	"github.com/TransJakartaLabs/etacast/business/eta/geometry"
)

// VoterMethod identifies which rule of the direction classifier decided a
// fix. The numbering is part of the voter's observable behavior and is
// asserted on by tests.
type VoterMethod int

const (
	// MethodNearestTie picks the nearer shape on the first fix when the two
	// directions are within the tie threshold of each other
	MethodNearestTie VoterMethod = iota + 1
	// MethodFirstFix picks the nearer shape (or the only shape) on the first
	// fix
	MethodFirstFix
	// MethodSkip re-emits the last committed trip because the vehicle has not
	// moved past the skip threshold
	MethodSkip
	// MethodTripOneTerminal picks the first direction because at least one of
	// the two fixes projects onto its vertex 0 or 1
	MethodTripOneTerminal
	// MethodTripTwoTerminal picks the second direction because at least one
	// of the two fixes projects onto the first direction's final vertex
	MethodTripTwoTerminal
	// MethodFirstPassed picks the direction implied by which fix projects
	// earlier along the first direction's shape
	MethodFirstPassed
	// MethodSingleDirection picks the corridor's only directional trip
	MethodSingleDirection
)

func (m VoterMethod) String() string {
	switch m {
	case MethodNearestTie:
		return "nearest-tie"
	case MethodFirstFix:
		return "first-fix"
	case MethodSkip:
		return "skip"
	case MethodTripOneTerminal:
		return "trip-one-terminal"
	case MethodTripTwoTerminal:
		return "trip-two-terminal"
	case MethodFirstPassed:
		return "first-passed"
	case MethodSingleDirection:
		return "single-direction"
	}
	return "unknown"
}

// DefaultVendorTripOverrides maps vendor trip identifiers straight to
// directional trips, bypassing the voter
var DefaultVendorTripOverrides = map[string]string{
	"4.B001": "4B-R01_shp",
	"4.B011": "4B-R02_shp",
	"9H.R04": "9H-R04_shp",
	"9H.L03": "9H-R05_shp",
}

// vendorTripAliases folds legacy vendor trip spellings into their current
// form ahead of the override lookup
var vendorTripAliases = map[string]string{
	"D21-L01": "D21-R01",
}

// NormalizeVendorTripID resolves legacy vendor trip id spellings
func NormalizeVendorTripID(vendorTripID string) string {
	if alias, present := vendorTripAliases[vendorTripID]; present {
		return alias
	}
	return vendorTripID
}

// ResolveDirections assigns each fix its directional trip. When the
// vehicle's vendor trip id appears in overrides that mapping is used for the
// whole batch; otherwise the windowed voter runs over the chronologically
// ordered fixes. The returned methods slice records the classifier decision
// per fix (nil when the override path was taken).
func ResolveDirections(idx *geometry.Index,
	overrides map[string]string,
	batch []AdheredFix,
	cfg Config) ([]DirectedFix, []VoterMethod, error) {

	if len(batch) == 0 {
		return nil, nil, nil
	}

	if tripID, present := overrides[NormalizeVendorTripID(batch[0].VendorTripID)]; present {
		result := make([]DirectedFix, 0, len(batch))
		for _, fix := range batch {
			result = append(result, DirectedFix{AdheredFix: fix, TripID: tripID})
		}
		return result, nil, nil
	}

	corridor, err := idx.Corridor(batch[0].CorridorID)
	if err != nil {
		return nil, nil, err
	}

	voter := directionVoter{
		idx:        idx,
		tripOne:    corridor.TripIDs[0],
		skipMeters: cfg.SkipFixThresholdMeters,
		tieMeters:  cfg.DirectionTieThresholdMeters,
		windowK:    cfg.WindowK,
	}
	if len(corridor.TripIDs) > 1 {
		voter.tripTwo = corridor.TripIDs[1]
	}

	result := make([]DirectedFix, 0, len(batch))
	methods := make([]VoterMethod, 0, len(batch))
	lastCommit := ""
	haveCommit := false

	for _, fix := range batch {
		point := geometry.Coord{Lat: fix.Lat, Lon: fix.Lon}
		choice, method, err := voter.choose(point)
		if err != nil {
			return nil, nil, err
		}
		methods = append(methods, method)

		var committed string
		if method == MethodSkip {
			committed = lastCommit
		} else {
			voter.prevPoint = &point
			committed = voter.commit(choice)
			lastCommit = committed
			haveCommit = true
		}
		result = append(result, DirectedFix{AdheredFix: fix, TripID: committed})
	}

	if !haveCommit {
		return nil, methods, ErrDirectionUnresolved
	}
	return result, methods, nil
}

// directionVoter holds the per-batch voter state: the previous non-skipped
// fix and the FIFO window of recent per-fix choices
type directionVoter struct {
	idx        *geometry.Index
	tripOne    string
	tripTwo    string
	skipMeters float64
	tieMeters  float64
	windowK    int
	window     []string
	prevPoint  *geometry.Coord
}

// choose runs the seven-method classifier for one fix. The returned choice is
// empty for MethodSkip.
func (v *directionVoter) choose(cur geometry.Coord) (string, VoterMethod, error) {
	if v.tripTwo != "" {
		distOne, err := v.idx.DistanceToTripMeters(v.tripOne, cur)
		if err != nil {
			return "", 0, err
		}
		distTwo, err := v.idx.DistanceToTripMeters(v.tripTwo, cur)
		if err != nil {
			return "", 0, err
		}
		nearer := v.tripOne
		if distTwo < distOne {
			nearer = v.tripTwo
		}
		if v.prevPoint == nil {
			if math.Abs(distOne-distTwo) <= v.tieMeters {
				return nearer, MethodNearestTie, nil
			}
			return nearer, MethodFirstFix, nil
		}
	} else if v.prevPoint == nil {
		return v.tripOne, MethodFirstFix, nil
	}

	if geometry.DistanceMeters(*v.prevPoint, cur) <= v.skipMeters {
		return "", MethodSkip, nil
	}

	if v.tripTwo != "" {
		prevFirst, minStart, minEnd, err := v.firstPassed(*v.prevPoint, cur)
		if err != nil {
			return "", 0, err
		}
		if minStart <= 1 {
			return v.tripOne, MethodTripOneTerminal, nil
		}
		if minEnd <= 1 {
			return v.tripTwo, MethodTripTwoTerminal, nil
		}
		if prevFirst {
			return v.tripOne, MethodFirstPassed, nil
		}
		return v.tripTwo, MethodFirstPassed, nil
	}
	return v.tripOne, MethodSingleDirection, nil
}

// firstPassed projects prev and cur onto the first direction's shape and
// reports whether prev projects earlier, along with how close the nearer
// projection sits to either end of the shape
func (v *directionVoter) firstPassed(prev geometry.Coord, cur geometry.Coord) (bool, int, int, error) {
	idxPrev, err := v.idx.NearestShapeVertex(v.tripOne, prev)
	if err != nil {
		return false, 0, 0, err
	}
	idxCur, err := v.idx.NearestShapeVertex(v.tripOne, cur)
	if err != nil {
		return false, 0, 0, err
	}
	shape, err := v.idx.TripShapeCoords(v.tripOne)
	if err != nil {
		return false, 0, 0, err
	}
	n := len(shape)

	minStart := idxPrev
	if idxCur < minStart {
		minStart = idxCur
	}
	minEnd := n - idxPrev
	if n-idxCur < minEnd {
		minEnd = n - idxCur
	}

	if idxPrev != idxCur {
		return idxPrev < idxCur, minStart, minEnd, nil
	}
	// both project to the same vertex, break the tie by distance to the
	// preceding vertex (wrapping to the final vertex at the shape start)
	precedingIdx := idxPrev - 1
	if precedingIdx < 0 {
		precedingIdx = n - 1
	}
	preceding := shape[precedingIdx]
	return geometry.DistanceMeters(preceding, prev) < geometry.DistanceMeters(preceding, cur),
		minStart, minEnd, nil
}

// commit pushes choice into the FIFO window and returns the trip to commit
// for the fix: the window's most frequent entry, or the choice itself when
// the window holds a single entry
func (v *directionVoter) commit(choice string) string {
	if len(v.window) == v.windowK {
		v.window = v.window[1:]
	}
	v.window = append(v.window, choice)
	if len(v.window) == 1 {
		return choice
	}
	return windowMode(v.window)
}

// windowMode returns the most frequent entry, breaking ties in favor of the
// entry whose first occurrence is earliest
func windowMode(window []string) string {
	counts := make(map[string]int, len(window))
	for _, trip := range window {
		counts[trip]++
	}
	best := ""
	bestCount := 0
	for _, trip := range window {
		if counts[trip] > bestCount {
			best = trip
			bestCount = counts[trip]
		}
	}
	return best
}
