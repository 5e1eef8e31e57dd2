package game

import (
	"errors"
	"testing"
	"time"
)

func TestIndividualCoinsBreakdown(t *testing.T) {
	r := DefaultRules()
	weekly := []WeeklyMetric{
		{WeekNumber: 1, MemberID: 7, Referrals: 5, Visitors: 1, Attendance: AttendancePresent},
		{WeekNumber: 2, MemberID: 7, Referrals: 3, Visitors: 0, Attendance: AttendanceAbsent},
	}
	gm := &GameMetric{MemberID: 7, Testimonials: 3, Trainings: 1}

	got, err := r.IndividualCoins(weekly, gm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := CoinBreakdown{
		ReferralsMicros:    8 * MicrosPerCoin,
		VisitorsMicros:     50 * MicrosPerCoin,
		AttendanceMicros:   -10 * MicrosPerCoin,
		TestimonialsMicros: 10 * MicrosPerCoin,
		TrainingsMicros:    25 * MicrosPerCoin,
		TotalMicros:        83 * MicrosPerCoin,
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestIndividualCoinsEmpty(t *testing.T) {
	got, err := DefaultRules().IndividualCoins(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (CoinBreakdown{}) {
		t.Fatalf("expected zero breakdown, got %+v", got)
	}
}

func TestIndividualCoinsTotalIsSumOfCategories(t *testing.T) {
	r := DefaultRules()
	weekly := []WeeklyMetric{
		{Referrals: 2, Visitors: 3, Attendance: AttendanceMedical},
		{Referrals: 0, Visitors: 1, Attendance: AttendanceAbsent},
	}
	got, err := r.IndividualCoins(weekly, &GameMetric{Testimonials: 1, Trainings: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := got.ReferralsMicros + got.VisitorsMicros + got.AttendanceMicros +
		got.TestimonialsMicros + got.TrainingsMicros
	if got.TotalMicros != sum {
		t.Fatalf("total %d does not equal category sum %d", got.TotalMicros, sum)
	}
}

func TestIndividualCoinsCapClamp(t *testing.T) {
	r := DefaultRules()
	atCap, err := r.IndividualCoins(nil, &GameMetric{Testimonials: 2, Trainings: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	overCap, err := r.IndividualCoins(nil, &GameMetric{Testimonials: 5, Trainings: 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atCap != overCap {
		t.Fatalf("over-cap values must clamp to the cap: at=%+v over=%+v", atCap, overCap)
	}
}

func TestIndividualCoinsNegativeInvariant(t *testing.T) {
	r := DefaultRules()
	_, err := r.IndividualCoins([]WeeklyMetric{{Referrals: -1}}, nil)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	_, err = r.IndividualCoins(nil, &GameMetric{Testimonials: -2})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestChapterCoinsBreakdown(t *testing.T) {
	r := DefaultRules()
	// attendance 18/20 = 90%, below the 95% threshold.
	agg := ChapterAggregate{
		Referrals:          50,
		Visitors:           5,
		PresentRows:        18,
		CountedRows:        20,
		CappedTestimonials: 20,
		CappedTrainings:    15,
	}
	got, err := r.ChapterCoins(25, agg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := CoinBreakdown{
		ReferralsMicros:    1000 * MicrosPerCoin,
		VisitorsMicros:     2000 * MicrosPerCoin,
		AttendanceMicros:   -1000 * MicrosPerCoin,
		TestimonialsMicros: 800 * MicrosPerCoin,
		TrainingsMicros:    3000 * MicrosPerCoin,
		TotalMicros:        5800 * MicrosPerCoin,
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestChapterCoinsAttendanceThreshold(t *testing.T) {
	r := DefaultRules()

	// 19/20 is exactly 95%: no penalty at the threshold.
	at, err := r.ChapterCoins(20, ChapterAggregate{PresentRows: 19, CountedRows: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if at.AttendanceMicros != 0 {
		t.Fatalf("expected no penalty at threshold, got %d", at.AttendanceMicros)
	}

	below, err := r.ChapterCoins(20, ChapterAggregate{PresentRows: 18, CountedRows: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if below.AttendanceMicros != -1000*MicrosPerCoin {
		t.Fatalf("expected penalty below threshold, got %d", below.AttendanceMicros)
	}

	// No counted rows reads as rate zero, which is below the threshold.
	empty, err := r.ChapterCoins(20, ChapterAggregate{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.AttendanceMicros != -1000*MicrosPerCoin {
		t.Fatalf("expected penalty with no rows, got %d", empty.AttendanceMicros)
	}
}

func TestChapterCoinsZeroMembers(t *testing.T) {
	r := DefaultRules()
	got, err := r.ChapterCoins(0, ChapterAggregate{
		Referrals:          10,
		Visitors:           4,
		PresentRows:        5,
		CountedRows:        5,
		CappedTestimonials: 6,
		CappedTrainings:    3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ReferralsMicros != 0 || got.VisitorsMicros != 0 ||
		got.TestimonialsMicros != 0 || got.TrainingsMicros != 0 {
		t.Fatalf("ratio categories must be zero with no members: %+v", got)
	}
}

func TestChapterCoinsRatioTruncation(t *testing.T) {
	r := DefaultRules()
	got, err := r.ChapterCoins(3, ChapterAggregate{Referrals: 1, PresentRows: 1, CountedRows: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 * 500 coins / 3 members, truncated at micro precision.
	want := int64(500) * MicrosPerCoin / 3
	if got.ReferralsMicros != want {
		t.Fatalf("got %d want %d", got.ReferralsMicros, want)
	}
}

func TestChapterCoinsNegativeInvariant(t *testing.T) {
	r := DefaultRules()
	if _, err := r.ChapterCoins(-1, ChapterAggregate{}); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for negative member count, got %v", err)
	}
	if _, err := r.ChapterCoins(5, ChapterAggregate{Referrals: -1}); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for negative aggregate, got %v", err)
	}
}

func TestWeeklyPointsMicros(t *testing.T) {
	r := DefaultRules()
	present, err := r.WeeklyPointsMicros(WeeklyMetric{Referrals: 2, Visitors: 1, Attendance: AttendancePresent})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if present != 52*MicrosPerCoin {
		t.Fatalf("got %d want %d", present, 52*MicrosPerCoin)
	}
	absent, err := r.WeeklyPointsMicros(WeeklyMetric{Referrals: 2, Visitors: 1, Attendance: AttendanceAbsent})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if absent != 42*MicrosPerCoin {
		t.Fatalf("got %d want %d", absent, 42*MicrosPerCoin)
	}
}

func TestIndividualCoinsOverflowInvariant(t *testing.T) {
	r := DefaultRules()
	_, err := r.IndividualCoins([]WeeklyMetric{{Referrals: 1 << 60, Visitors: 1 << 60}}, nil)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for overflowing counts, got %v", err)
	}

	// Per-row values that fit can still overflow when summed.
	huge := WeeklyMetric{Visitors: (1 << 62) / DefaultRules().VisitorUnit / MicrosPerCoin}
	_, err = r.IndividualCoins([]WeeklyMetric{huge, huge, huge}, nil)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for overflowing sum, got %v", err)
	}
}

func TestWeeklyPointsMicrosOverflowInvariant(t *testing.T) {
	r := DefaultRules()
	if _, err := r.WeeklyPointsMicros(WeeklyMetric{Referrals: 1 << 60, Visitors: 1 << 60}); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestSortAndRankTies(t *testing.T) {
	order, ranks := SortAndRank([]int64{90, 100, 100})
	wantOrder := []int{1, 2, 0}
	wantRanks := []int{1, 1, 3}
	for i := range order {
		if order[i] != wantOrder[i] || ranks[i] != wantRanks[i] {
			t.Fatalf("got order=%v ranks=%v want order=%v ranks=%v", order, ranks, wantOrder, wantRanks)
		}
	}
}

func TestSortAndRankStable(t *testing.T) {
	// Equal totals keep input order.
	order, _ := SortAndRank([]int64{50, 50, 50})
	for i, idx := range order {
		if idx != i {
			t.Fatalf("expected stable order, got %v", order)
		}
	}
}

func TestAttendanceRateBps(t *testing.T) {
	if got := AttendanceRateBps(19, 20); got != 9_500 {
		t.Fatalf("got %d want 9500", got)
	}
	if got := AttendanceRateBps(0, 0); got != 0 {
		t.Fatalf("expected zero rate with no rows, got %d", got)
	}
}

func TestWeekFor(t *testing.T) {
	start := time.Date(2025, time.June, 17, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		now  time.Time
		want int
	}{
		{start, 1},
		{start.AddDate(0, 0, 6), 1},
		{start.AddDate(0, 0, 7), 2},
		{start.AddDate(0, 0, 13), 2},
		{start.AddDate(0, 0, 14), 3},
		{start.AddDate(0, 0, -30), 1},
		{start.AddDate(0, 3, 0), 6},
	}
	for _, tc := range tests {
		if got := WeekFor(tc.now, start, 6); got != tc.want {
			t.Fatalf("now=%s got=%d want=%d", tc.now, got, tc.want)
		}
	}
}

func TestGameActive(t *testing.T) {
	start := time.Date(2025, time.June, 17, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)

	if !GameActive(start, start, end) {
		t.Fatalf("start day must be active")
	}
	if !GameActive(end, start, end) {
		t.Fatalf("end day must be active")
	}
	if GameActive(start.AddDate(0, 0, -1), start, end) {
		t.Fatalf("before start must be inactive")
	}
	if GameActive(end.AddDate(0, 0, 1), start, end) {
		t.Fatalf("after end must be inactive")
	}
}
