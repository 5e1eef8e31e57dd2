package game

import (
	"errors"
	"fmt"
	"strings"
)

const MicrosPerCoin = int64(1_000_000)

// Attendance values accepted on weekly rows. Medical counts toward the
// chapter attendance denominator but never triggers the absence penalty.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceMedical = "medical"
)

// Member status values. Only active members participate in scoring.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDropped  = "dropped"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvariant    = errors.New("scoring invariant violated")
)

// Rules holds every scoring constant. Units are whole coins; penalties are
// negative. Stored metric values are never pre-capped: caps apply at
// scoring time, independent of the input-time limits that
// ValidateGameMetricsInput enforces at the API boundary.
type Rules struct {
	TotalWeeks int

	ReferralUnit    int64
	VisitorUnit     int64
	AbsencePenalty  int64
	TestimonialUnit int64
	TestimonialCap  int64
	TrainingUnit    int64
	TrainingCap     int64

	ChapterReferralUnit      int64
	ChapterVisitorUnit       int64
	ChapterAttendancePenalty int64
	ChapterTestimonialUnit   int64
	ChapterTrainingUnit      int64

	// AttendanceThresholdBps is the chapter attendance rate, in basis
	// points, at or above which no penalty applies.
	AttendanceThresholdBps int64
}

func DefaultRules() Rules {
	return Rules{
		TotalWeeks: 6,

		ReferralUnit:    1,
		VisitorUnit:     50,
		AbsencePenalty:  -10,
		TestimonialUnit: 5,
		TestimonialCap:  2,
		TrainingUnit:    25,
		TrainingCap:     3,

		ChapterReferralUnit:      500,
		ChapterVisitorUnit:       10_000,
		ChapterAttendancePenalty: -1_000,
		ChapterTestimonialUnit:   1_000,
		ChapterTrainingUnit:      5_000,

		AttendanceThresholdBps: 9_500,
	}
}

func ValidAttendance(v string) bool {
	switch v {
	case AttendancePresent, AttendanceAbsent, AttendanceMedical:
		return true
	}
	return false
}

// ValidateWeeklySubmission enforces the batch contract: either every entry
// is acceptable or the whole submission is rejected before any write. Only
// the upper week bound is tied to TotalWeeks so earlier weeks stay open
// for backfill.
func (r Rules) ValidateWeeklySubmission(in WeeklySubmission) error {
	if in.WeekNumber < 1 || in.WeekNumber > r.TotalWeeks {
		return fmt.Errorf("%w: week number must be between 1 and %d", ErrValidation, r.TotalWeeks)
	}
	if len(in.Data) == 0 {
		return fmt.Errorf("%w: no data provided", ErrValidation)
	}
	for i, entry := range in.Data {
		if entry.MemberID <= 0 {
			return fmt.Errorf("%w: entry %d is missing a member id", ErrValidation, i)
		}
		if entry.Referrals < 0 || entry.Visitors < 0 {
			return fmt.Errorf("%w: entry %d has negative referrals or visitors", ErrValidation, i)
		}
		if a := strings.TrimSpace(entry.Attendance); a != "" && !ValidAttendance(a) {
			return fmt.Errorf("%w: entry %d has unknown attendance %q", ErrValidation, i, entry.Attendance)
		}
	}
	return nil
}

// ValidateGameMetricsInput rejects over-cap values at submission time. The
// scoring engine clamps independently, so the limit is enforced at both
// call sites, matching the original game rules.
func (r Rules) ValidateGameMetricsInput(in GameMetricsInput) error {
	if in.MemberID <= 0 {
		return fmt.Errorf("%w: member id is required", ErrValidation)
	}
	if in.Testimonials < 0 || in.Trainings < 0 || in.InductionsGiven < 0 {
		return fmt.Errorf("%w: metric counts must not be negative", ErrValidation)
	}
	if in.Testimonials > r.TestimonialCap || in.Trainings > r.TrainingCap {
		return fmt.Errorf("%w: exceeded maximum allowed values (testimonials: %d, trainings: %d)",
			ErrValidation, r.TestimonialCap, r.TrainingCap)
	}
	return nil
}

func CoinsToMicros(v int64) int64 {
	return v * MicrosPerCoin
}

func MicrosToCoins(v int64) float64 {
	return float64(v) / float64(MicrosPerCoin)
}
