package game

import "time"

// WeeklyMetric is one raw per-member, per-week participation row.
type WeeklyMetric struct {
	WeekNumber  int       `json:"week_number"`
	MemberID    int64     `json:"member_id"`
	Referrals   int64     `json:"referrals"`
	Visitors    int64     `json:"visitors"`
	Attendance  string    `json:"attendance"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// GameMetric is the cumulative (non-weekly) record for one member. Values
// are stored as submitted; caps apply at scoring time.
type GameMetric struct {
	MemberID        int64     `json:"member_id"`
	Testimonials    int64     `json:"testimonials"`
	Trainings       int64     `json:"trainings"`
	InductionsGiven int64     `json:"inductions_given"`
	LastUpdated     time.Time `json:"last_updated,omitempty"`
}

// CoinBreakdown maps each scoring category to its contribution in
// coin-micros. TotalMicros is always the exact sum of the five categories.
type CoinBreakdown struct {
	ReferralsMicros    int64 `json:"referrals_micros"`
	VisitorsMicros     int64 `json:"visitors_micros"`
	AttendanceMicros   int64 `json:"attendance_micros"`
	TestimonialsMicros int64 `json:"testimonials_micros"`
	TrainingsMicros    int64 `json:"trainings_micros"`
	TotalMicros        int64 `json:"total_micros"`
}

// ChapterAggregate is the pre-aggregated chapter input to the scoring
// engine. Capped testimonial/training sums are capped per member before
// summation. Present/Counted carry the attendance rate as a rational so
// the 95% boundary compares exactly.
type ChapterAggregate struct {
	Referrals          int64
	Visitors           int64
	PresentRows        int64
	CountedRows        int64
	CappedTestimonials int64
	CappedTrainings    int64
}

type ChapterView struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	CaptainName       string `json:"captain_name"`
	CoachName         string `json:"coach_name"`
	MemberCount       int64  `json:"member_count"`
	ActiveMemberCount int64  `json:"active_member_count"`
}

type MemberView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ChapterID   int64  `json:"chapter_id"`
	ChapterName string `json:"chapter_name,omitempty"`
	Role        string `json:"role"`
	Status      string `json:"status"`
}

type IndividualEntry struct {
	MemberID    int64         `json:"member_id"`
	Name        string        `json:"name"`
	ChapterID   int64         `json:"chapter_id"`
	ChapterName string        `json:"chapter_name"`
	Coins       CoinBreakdown `json:"coins"`
	Rank        int           `json:"rank"`
}

type ChapterEntry struct {
	ChapterID          int64         `json:"chapter_id"`
	Name               string        `json:"name"`
	MemberCount        int64         `json:"member_count"`
	ActiveMembers      int64         `json:"active_members"`
	TotalReferrals     int64         `json:"total_referrals"`
	TotalVisitors      int64         `json:"total_visitors"`
	AttendanceRateBps  int64         `json:"attendance_rate_bps"`
	CappedTestimonials int64         `json:"capped_testimonials"`
	CappedTrainings    int64         `json:"capped_trainings"`
	Coins              CoinBreakdown `json:"coins"`
	Rank               int           `json:"rank"`
}

type Leaderboard struct {
	Individuals []IndividualEntry `json:"individuals"`
	Chapters    []ChapterEntry    `json:"chapters"`
	LastUpdated time.Time         `json:"lastUpdated"`
	WeekNumber  int               `json:"weekNumber"`
}

type MemberDetail struct {
	Member         MemberView    `json:"member"`
	TotalReferrals int64         `json:"total_referrals"`
	TotalVisitors  int64         `json:"total_visitors"`
	DaysPresent    int64         `json:"days_present"`
	DaysAbsent     int64         `json:"days_absent"`
	Game           GameMetric    `json:"game_metrics"`
	Coins          CoinBreakdown `json:"coins"`
}

// WeeklySubmission is the ingestion batch. The whole batch is applied in
// one transaction or not at all.
type WeeklySubmission struct {
	WeekNumber  int                `json:"weekNumber"`
	ChapterID   int64              `json:"chapterId"`
	Data        []WeeklyEntryInput `json:"data"`
	SubmittedBy string             `json:"submittedBy"`
}

type WeeklyEntryInput struct {
	MemberID   int64  `json:"memberId"`
	Referrals  int64  `json:"referrals"`
	Visitors   int64  `json:"visitors"`
	Attendance string `json:"attendance"`
}

type GameMetricsInput struct {
	MemberID        int64  `json:"memberId"`
	Testimonials    int64  `json:"testimonials"`
	Trainings       int64  `json:"trainings"`
	InductionsGiven int64  `json:"inductionsGiven"`
	SubmittedBy     string `json:"-"`
}

type AuditEntry struct {
	ID        int64     `json:"id"`
	BatchID   string    `json:"batch_id"`
	TableName string    `json:"table_name"`
	Action    string    `json:"action"`
	NewValue  string    `json:"new_value"`
	UserEmail string    `json:"user_email"`
	CreatedAt time.Time `json:"timestamp"`
}

type AuditPage struct {
	Logs       []AuditEntry `json:"logs"`
	Pagination Pagination   `json:"pagination"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// SheetRow is one weekly row pulled from the spreadsheet bridge. Members
// are matched by exact name.
type SheetRow struct {
	WeekNumber int    `json:"week_number"`
	MemberName string `json:"member_name"`
	Referrals  int64  `json:"referrals"`
	Visitors   int64  `json:"visitors"`
	Attendance string `json:"attendance"`
}

// SheetPointRow is the computed per-row view pushed back to the sheet.
type SheetPointRow struct {
	WeekNumber   int    `json:"week_number"`
	MemberName   string `json:"member_name"`
	Referrals    int64  `json:"referrals"`
	Visitors     int64  `json:"visitors"`
	Attendance   string `json:"attendance"`
	PointsMicros int64  `json:"points_micros"`
}

type SheetSyncResult struct {
	RowsProcessed int `json:"rowsProcessed"`
	TotalRows     int `json:"totalRows"`
	Pushed        int `json:"pushed"`
}
