package game

import (
	"fmt"
	"math/big"
	"sort"
	"time"
)

// The scoring engine is the single authoritative implementation of the
// coin formulas. Everything here is pure: no I/O, no clock, no mutation.
// Callers pre-validate submissions, so a negative count reaching this
// package is an upstream bug and reported as ErrInvariant.

// IndividualCoins computes one member's breakdown from their weekly rows
// and optional cumulative metrics. A nil GameMetric and an empty row slice
// are both fine and contribute zero. Categories accumulate in big.Int so a
// count large enough to overflow int64 micros surfaces as ErrInvariant
// instead of wrapping.
func (r Rules) IndividualCoins(weekly []WeeklyMetric, gm *GameMetric) (CoinBreakdown, error) {
	var out CoinBreakdown
	refs := new(big.Int)
	vis := new(big.Int)
	att := new(big.Int)
	for _, m := range weekly {
		if m.Referrals < 0 || m.Visitors < 0 {
			return CoinBreakdown{}, fmt.Errorf("%w: negative weekly counts for member %d week %d", ErrInvariant, m.MemberID, m.WeekNumber)
		}
		refs.Add(refs, coinTerm(m.Referrals, r.ReferralUnit))
		vis.Add(vis, coinTerm(m.Visitors, r.VisitorUnit))
		if m.Attendance == AttendanceAbsent {
			att.Add(att, coinTerm(1, r.AbsencePenalty))
		}
	}
	var err error
	if out.ReferralsMicros, err = microsFromBig(refs); err != nil {
		return CoinBreakdown{}, err
	}
	if out.VisitorsMicros, err = microsFromBig(vis); err != nil {
		return CoinBreakdown{}, err
	}
	if out.AttendanceMicros, err = microsFromBig(att); err != nil {
		return CoinBreakdown{}, err
	}
	if gm != nil {
		if gm.Testimonials < 0 || gm.Trainings < 0 {
			return CoinBreakdown{}, fmt.Errorf("%w: negative game metrics for member %d", ErrInvariant, gm.MemberID)
		}
		if out.TestimonialsMicros, err = microsFromBig(coinTerm(capCount(gm.Testimonials, r.TestimonialCap), r.TestimonialUnit)); err != nil {
			return CoinBreakdown{}, err
		}
		if out.TrainingsMicros, err = microsFromBig(coinTerm(capCount(gm.Trainings, r.TrainingCap), r.TrainingUnit)); err != nil {
			return CoinBreakdown{}, err
		}
	}
	// Total starts at zero and sums the five categories only.
	if out.TotalMicros, err = sumMicros(out); err != nil {
		return CoinBreakdown{}, err
	}
	return out, nil
}

// ChapterCoins computes a chapter's breakdown from pre-aggregated sums.
// Ratio categories divide by memberCount; a zero headcount yields zero
// contributions rather than a division error. The attendance category is a
// step: the full penalty below the threshold, nothing at or above it.
func (r Rules) ChapterCoins(memberCount int64, agg ChapterAggregate) (CoinBreakdown, error) {
	if memberCount < 0 || agg.Referrals < 0 || agg.Visitors < 0 ||
		agg.CappedTestimonials < 0 || agg.CappedTrainings < 0 ||
		agg.PresentRows < 0 || agg.CountedRows < agg.PresentRows {
		return CoinBreakdown{}, fmt.Errorf("%w: negative chapter aggregate", ErrInvariant)
	}

	var out CoinBreakdown
	var err error
	if out.ReferralsMicros, err = ratioMicros(agg.Referrals, r.ChapterReferralUnit, memberCount); err != nil {
		return CoinBreakdown{}, err
	}
	if out.VisitorsMicros, err = ratioMicros(agg.Visitors, r.ChapterVisitorUnit, memberCount); err != nil {
		return CoinBreakdown{}, err
	}
	if out.TestimonialsMicros, err = ratioMicros(agg.CappedTestimonials, r.ChapterTestimonialUnit, memberCount); err != nil {
		return CoinBreakdown{}, err
	}
	if out.TrainingsMicros, err = ratioMicros(agg.CappedTrainings, r.ChapterTrainingUnit, memberCount); err != nil {
		return CoinBreakdown{}, err
	}
	if AttendanceRateBps(agg.PresentRows, agg.CountedRows) < r.AttendanceThresholdBps {
		out.AttendanceMicros = r.ChapterAttendancePenalty * MicrosPerCoin
	}
	if out.TotalMicros, err = sumMicros(out); err != nil {
		return CoinBreakdown{}, err
	}
	return out, nil
}

// WeeklyPointsMicros is the per-row points figure pushed back to the
// spreadsheet: the weekly slice of the individual formula for one row.
func (r Rules) WeeklyPointsMicros(m WeeklyMetric) (int64, error) {
	points := coinTerm(m.Referrals, r.ReferralUnit)
	points.Add(points, coinTerm(m.Visitors, r.VisitorUnit))
	if m.Attendance == AttendanceAbsent {
		points.Add(points, coinTerm(1, r.AbsencePenalty))
	}
	return microsFromBig(points)
}

// Chapter sums are built from values capped per member, not from a capped
// sum, so the clamp is exposed for the aggregation side.
func (r Rules) CapTestimonials(raw int64) int64 { return capCount(raw, r.TestimonialCap) }
func (r Rules) CapTrainings(raw int64) int64    { return capCount(raw, r.TrainingCap) }

func capCount(v, limit int64) int64 {
	if v > limit {
		return limit
	}
	return v
}

// coinTerm is count * unit in coin-micros, exact at any magnitude.
func coinTerm(count, unit int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(count), big.NewInt(unit))
	return v.Mul(v, big.NewInt(MicrosPerCoin))
}

func microsFromBig(v *big.Int) (int64, error) {
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: coin value overflows", ErrInvariant)
	}
	return v.Int64(), nil
}

func sumMicros(b CoinBreakdown) (int64, error) {
	total := big.NewInt(b.ReferralsMicros)
	for _, v := range []int64{b.VisitorsMicros, b.AttendanceMicros, b.TestimonialsMicros, b.TrainingsMicros} {
		total.Add(total, big.NewInt(v))
	}
	return microsFromBig(total)
}

// AttendanceRateBps returns present/counted in basis points, 0 when no
// rows were counted.
func AttendanceRateBps(present, counted int64) int64 {
	if counted <= 0 {
		return 0
	}
	return present * 10_000 / counted
}

// ratioMicros computes (sum * unit / denom) in coin-micros without
// intermediate rounding. A zero denominator yields zero, never an error.
func ratioMicros(sum, unit, denom int64) (int64, error) {
	if denom == 0 {
		return 0, nil
	}
	v := new(big.Int).Mul(big.NewInt(sum), big.NewInt(unit))
	v.Mul(v, big.NewInt(MicrosPerCoin))
	v.Quo(v, big.NewInt(denom))
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: ratio overflow", ErrInvariant)
	}
	return v.Int64(), nil
}

// SortAndRank orders totals descending and assigns competition ranks: a
// subject's rank is one more than the number of strictly greater totals,
// so equal totals share a rank and the next distinct total skips ahead
// ([100, 100, 90] ranks [1, 1, 3]). The returned slice is the descending
// permutation of indexes into totals; ranks align with it.
func SortAndRank(totals []int64) (order []int, ranks []int) {
	order = make([]int, len(totals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return totals[order[a]] > totals[order[b]]
	})
	ranks = make([]int, len(order))
	for pos, idx := range order {
		if pos > 0 && totals[idx] == totals[order[pos-1]] {
			ranks[pos] = ranks[pos-1]
			continue
		}
		ranks[pos] = pos + 1
	}
	return order, ranks
}

// WeekFor maps a wall-clock instant onto the 1-based game week, clamped to
// [1, totalWeeks]. Day one is week one.
func WeekFor(now, start time.Time, totalWeeks int) int {
	days := int(now.Sub(start).Hours() / 24)
	week := ceilDiv(days+1, 7)
	if week < 1 {
		week = 1
	}
	if week > totalWeeks {
		week = totalWeeks
	}
	return week
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// GameActive reports whether now falls inside the configured game window.
func GameActive(now, start, end time.Time) bool {
	return !now.Before(start) && !now.After(end)
}
