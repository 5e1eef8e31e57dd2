package game

import (
	"errors"
	"testing"
)

func TestValidateWeeklySubmission(t *testing.T) {
	r := DefaultRules()
	valid := WeeklySubmission{
		WeekNumber: 2,
		ChapterID:  1,
		Data: []WeeklyEntryInput{
			{MemberID: 1, Referrals: 3, Visitors: 1, Attendance: AttendancePresent},
			{MemberID: 2, Referrals: 0, Visitors: 0, Attendance: ""},
		},
	}
	if err := r.ValidateWeeklySubmission(valid); err != nil {
		t.Fatalf("expected valid submission: %v", err)
	}

	cases := []struct {
		name string
		in   WeeklySubmission
	}{
		{"week too low", WeeklySubmission{WeekNumber: 0, Data: valid.Data}},
		{"week too high", WeeklySubmission{WeekNumber: 7, Data: valid.Data}},
		{"empty batch", WeeklySubmission{WeekNumber: 1}},
		{"missing member id", WeeklySubmission{WeekNumber: 1, Data: []WeeklyEntryInput{{MemberID: 0}}}},
		{"negative referrals", WeeklySubmission{WeekNumber: 1, Data: []WeeklyEntryInput{{MemberID: 1, Referrals: -1}}}},
		{"negative visitors", WeeklySubmission{WeekNumber: 1, Data: []WeeklyEntryInput{{MemberID: 1, Visitors: -3}}}},
		{"unknown attendance", WeeklySubmission{WeekNumber: 1, Data: []WeeklyEntryInput{{MemberID: 1, Attendance: "late"}}}},
	}
	for _, tc := range cases {
		if err := r.ValidateWeeklySubmission(tc.in); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestValidateGameMetricsInput(t *testing.T) {
	r := DefaultRules()
	if err := r.ValidateGameMetricsInput(GameMetricsInput{MemberID: 1, Testimonials: 2, Trainings: 3, InductionsGiven: 4}); err != nil {
		t.Fatalf("expected valid input: %v", err)
	}

	cases := []struct {
		name string
		in   GameMetricsInput
	}{
		{"missing member id", GameMetricsInput{}},
		{"negative testimonials", GameMetricsInput{MemberID: 1, Testimonials: -1}},
		{"negative inductions", GameMetricsInput{MemberID: 1, InductionsGiven: -1}},
		{"testimonials over cap", GameMetricsInput{MemberID: 1, Testimonials: 3}},
		{"trainings over cap", GameMetricsInput{MemberID: 1, Trainings: 4}},
	}
	for _, tc := range cases {
		if err := r.ValidateGameMetricsInput(tc.in); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestValidAttendance(t *testing.T) {
	for _, v := range []string{AttendancePresent, AttendanceAbsent, AttendanceMedical} {
		if !ValidAttendance(v) {
			t.Fatalf("expected %q to be valid", v)
		}
	}
	for _, v := range []string{"", "late", "PRESENT"} {
		if ValidAttendance(v) {
			t.Fatalf("expected %q to be invalid", v)
		}
	}
}
