package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Chapters seeded for a fresh game database.
var defaultChapterNames = []string{
	"INCREDIBLEZ",
	"KNIGHTZ",
	"ETERNAL",
	"CELEBRATIONS",
	"OPULANCE",
	"EPIC",
	"VICTORY",
	"ACHIEVERZ",
}

const individualBoardLimit = 20

type Service struct {
	db    *pgxpool.Pool
	log   *slog.Logger
	rules Rules
	start time.Time
	end   time.Time
	now   func() time.Time
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, rules Rules, start, end time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:    db,
		log:   logger,
		rules: rules,
		start: start,
		end:   end,
		now:   time.Now,
	}
}

func (s *Service) Rules() Rules { return s.rules }

// CurrentWeek resolves the game week for the wall clock; reads use it only
// as a label, submissions are validated against the full [1, TotalWeeks]
// range so backfill stays possible.
func (s *Service) CurrentWeek() int {
	return WeekFor(s.now(), s.start, s.rules.TotalWeeks)
}

func (s *Service) GameActive() bool {
	return GameActive(s.now(), s.start, s.end)
}

func (s *Service) SeedChapters(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM chapters`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, name := range defaultChapterNames {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chapters (name)
			VALUES ($1)
			ON CONFLICT (name) DO NOTHING
		`, name); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Service) ListChapters(ctx context.Context) ([]ChapterView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.name, c.captain_name, c.coach_name, c.member_count,
		       COUNT(m.id) FILTER (WHERE m.status = 'active') AS active_member_count
		FROM chapters c
		LEFT JOIN members m ON m.chapter_id = c.id
		GROUP BY c.id
		ORDER BY c.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ChapterView, 0)
	for rows.Next() {
		var v ChapterView
		if err := rows.Scan(&v.ID, &v.Name, &v.CaptainName, &v.CoachName, &v.MemberCount, &v.ActiveMemberCount); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) ChapterMembers(ctx context.Context, chapterID int64) ([]MemberView, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chapters WHERE id = $1)`, chapterID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: chapter %d", ErrNotFound, chapterID)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, name, email, chapter_id, role, status
		FROM members
		WHERE chapter_id = $1 AND status = 'active'
		ORDER BY name
	`, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MemberView, 0)
	for rows.Next() {
		var v MemberView
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.ChapterID, &v.Role, &v.Status); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SubmitWeekly applies one validated batch atomically: every row upserts
// last-write-wins on (week, member), and a failure anywhere rolls the
// whole batch back. An audit row is written in the same transaction.
func (s *Service) SubmitWeekly(ctx context.Context, in WeeklySubmission) (int, error) {
	if err := s.rules.ValidateWeeklySubmission(in); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	for i, entry := range in.Data {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`, entry.MemberID).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, fmt.Errorf("%w: entry %d references unknown member %d", ErrValidation, i, entry.MemberID)
		}
		attendance := strings.TrimSpace(entry.Attendance)
		if attendance == "" {
			attendance = AttendancePresent
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO weekly_metrics
			    (week_number, member_id, referrals, visitors, attendance, submitted_by, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (week_number, member_id)
			DO UPDATE SET
			    referrals = EXCLUDED.referrals,
			    visitors = EXCLUDED.visitors,
			    attendance = EXCLUDED.attendance,
			    submitted_by = EXCLUDED.submitted_by,
			    submitted_at = now()
		`, in.WeekNumber, entry.MemberID, entry.Referrals, entry.Visitors, attendance, in.SubmittedBy); err != nil {
			return 0, err
		}
	}

	if err := s.appendAuditTx(ctx, tx, "weekly_metrics", "weekly_data_submitted", map[string]any{
		"week_number": in.WeekNumber,
		"chapter_id":  in.ChapterID,
		"entries":     len(in.Data),
	}, in.SubmittedBy); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(in.Data), nil
}

// UpdateGameMetrics upserts the cumulative record for one member. Values
// are stored exactly as submitted; the scoring-time cap is separate.
func (s *Service) UpdateGameMetrics(ctx context.Context, in GameMetricsInput) error {
	if err := s.rules.ValidateGameMetricsInput(in); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`, in.MemberID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: member %d", ErrNotFound, in.MemberID)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO game_metrics (member_id, testimonials, trainings, inductions_given, last_updated)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (member_id)
		DO UPDATE SET
		    testimonials = EXCLUDED.testimonials,
		    trainings = EXCLUDED.trainings,
		    inductions_given = EXCLUDED.inductions_given,
		    last_updated = now()
	`, in.MemberID, in.Testimonials, in.Trainings, in.InductionsGiven); err != nil {
		return err
	}

	if err := s.appendAuditTx(ctx, tx, "game_metrics", "game_metrics_updated", map[string]any{
		"member_id":    in.MemberID,
		"testimonials": in.Testimonials,
		"trainings":    in.Trainings,
	}, in.SubmittedBy); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Leaderboard recomputes both ranked lists from a full snapshot on every
// call. The data volume is small enough that there is nothing to cache,
// and the read takes no locks: a submission racing with it just lands in
// the next read.
func (s *Service) Leaderboard(ctx context.Context) (Leaderboard, error) {
	var out Leaderboard

	chapters, err := s.loadChapters(ctx)
	if err != nil {
		return out, err
	}
	members, err := s.loadActiveMembers(ctx)
	if err != nil {
		return out, err
	}
	weeklyByMember, err := s.loadWeeklyByMember(ctx)
	if err != nil {
		return out, err
	}
	gameByMember, err := s.loadGameByMember(ctx)
	if err != nil {
		return out, err
	}

	individuals := make([]IndividualEntry, 0, len(members))
	aggByChapter := make(map[int64]*ChapterAggregate, len(chapters))
	activeByChapter := make(map[int64]int64, len(chapters))

	for _, m := range members {
		weekly := weeklyByMember[m.ID]
		gm := gameByMember[m.ID]
		coins, err := s.rules.IndividualCoins(weekly, gm)
		if err != nil {
			return out, err
		}
		individuals = append(individuals, IndividualEntry{
			MemberID:    m.ID,
			Name:        m.Name,
			ChapterID:   m.ChapterID,
			ChapterName: m.ChapterName,
			Coins:       coins,
		})

		agg := aggByChapter[m.ChapterID]
		if agg == nil {
			agg = &ChapterAggregate{}
			aggByChapter[m.ChapterID] = agg
		}
		activeByChapter[m.ChapterID]++
		for _, row := range weekly {
			agg.Referrals += row.Referrals
			agg.Visitors += row.Visitors
			agg.CountedRows++
			if row.Attendance == AttendancePresent {
				agg.PresentRows++
			}
		}
		if gm != nil {
			agg.CappedTestimonials += s.rules.CapTestimonials(gm.Testimonials)
			agg.CappedTrainings += s.rules.CapTrainings(gm.Trainings)
		}
	}

	chapterEntries := make([]ChapterEntry, 0, len(chapters))
	for _, c := range chapters {
		agg := aggByChapter[c.ID]
		if agg == nil {
			agg = &ChapterAggregate{}
		}
		coins, err := s.rules.ChapterCoins(c.MemberCount, *agg)
		if err != nil {
			return out, err
		}
		chapterEntries = append(chapterEntries, ChapterEntry{
			ChapterID:          c.ID,
			Name:               c.Name,
			MemberCount:        c.MemberCount,
			ActiveMembers:      activeByChapter[c.ID],
			TotalReferrals:     agg.Referrals,
			TotalVisitors:      agg.Visitors,
			AttendanceRateBps:  AttendanceRateBps(agg.PresentRows, agg.CountedRows),
			CappedTestimonials: agg.CappedTestimonials,
			CappedTrainings:    agg.CappedTrainings,
			Coins:              coins,
		})
	}

	out.Individuals = rankIndividuals(individuals)
	if len(out.Individuals) > individualBoardLimit {
		out.Individuals = out.Individuals[:individualBoardLimit]
	}
	out.Chapters = rankChapters(chapterEntries)
	out.LastUpdated = s.now().UTC()
	out.WeekNumber = s.CurrentWeek()
	return out, nil
}

func rankIndividuals(entries []IndividualEntry) []IndividualEntry {
	totals := make([]int64, len(entries))
	for i, e := range entries {
		totals[i] = e.Coins.TotalMicros
	}
	order, ranks := SortAndRank(totals)
	out := make([]IndividualEntry, 0, len(entries))
	for pos, idx := range order {
		e := entries[idx]
		e.Rank = ranks[pos]
		out = append(out, e)
	}
	return out
}

func rankChapters(entries []ChapterEntry) []ChapterEntry {
	totals := make([]int64, len(entries))
	for i, e := range entries {
		totals[i] = e.Coins.TotalMicros
	}
	order, ranks := SortAndRank(totals)
	out := make([]ChapterEntry, 0, len(entries))
	for pos, idx := range order {
		e := entries[idx]
		e.Rank = ranks[pos]
		out = append(out, e)
	}
	return out
}

// MemberDetail returns one member's raw aggregates and breakdown. The
// member is looked up regardless of status so dropped members stay
// inspectable.
func (s *Service) MemberDetail(ctx context.Context, memberID int64) (MemberDetail, error) {
	var out MemberDetail
	err := s.db.QueryRow(ctx, `
		SELECT m.id, m.name, m.email, m.chapter_id, c.name, m.role, m.status
		FROM members m
		JOIN chapters c ON c.id = m.chapter_id
		WHERE m.id = $1
	`, memberID).Scan(&out.Member.ID, &out.Member.Name, &out.Member.Email,
		&out.Member.ChapterID, &out.Member.ChapterName, &out.Member.Role, &out.Member.Status)
	if err == pgx.ErrNoRows {
		return out, fmt.Errorf("%w: member %d", ErrNotFound, memberID)
	}
	if err != nil {
		return out, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT week_number, member_id, referrals, visitors, attendance
		FROM weekly_metrics
		WHERE member_id = $1
		ORDER BY week_number
	`, memberID)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	var weekly []WeeklyMetric
	for rows.Next() {
		var m WeeklyMetric
		if err := rows.Scan(&m.WeekNumber, &m.MemberID, &m.Referrals, &m.Visitors, &m.Attendance); err != nil {
			return out, err
		}
		weekly = append(weekly, m)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	var gm *GameMetric
	var g GameMetric
	err = s.db.QueryRow(ctx, `
		SELECT member_id, testimonials, trainings, inductions_given, last_updated
		FROM game_metrics
		WHERE member_id = $1
	`, memberID).Scan(&g.MemberID, &g.Testimonials, &g.Trainings, &g.InductionsGiven, &g.LastUpdated)
	if err == nil {
		gm = &g
	} else if err != pgx.ErrNoRows {
		return out, err
	}

	for _, m := range weekly {
		out.TotalReferrals += m.Referrals
		out.TotalVisitors += m.Visitors
		switch m.Attendance {
		case AttendancePresent:
			out.DaysPresent++
		case AttendanceAbsent:
			out.DaysAbsent++
		}
	}
	if gm != nil {
		out.Game = *gm
	}
	out.Game.MemberID = memberID
	out.Coins, err = s.rules.IndividualCoins(weekly, gm)
	return out, err
}

func (s *Service) AuditLogs(ctx context.Context, page, limit int) (AuditPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var out AuditPage
	rows, err := s.db.Query(ctx, `
		SELECT id, batch_id, table_name, action, COALESCE(new_value::text, ''), user_email, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	out.Logs = make([]AuditEntry, 0, limit)
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.BatchID, &e.TableName, &e.Action, &e.NewValue, &e.UserEmail, &e.CreatedAt); err != nil {
			return out, err
		}
		out.Logs = append(out.Logs, e)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return out, err
	}
	out.Pagination = Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + int64(limit) - 1) / int64(limit),
	}
	return out, nil
}

func (s *Service) appendAuditTx(ctx context.Context, tx pgx.Tx, table, action string, payload any, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		email = "anonymous"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO audit_log (batch_id, table_name, action, new_value, user_email)
		VALUES ($1, $2, $3, $4::jsonb, $5)
	`, uuid.NewString(), table, action, string(body), email)
	return err
}

func (s *Service) loadChapters(ctx context.Context) ([]ChapterView, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, member_count FROM chapters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChapterView
	for rows.Next() {
		var c ChapterView
		if err := rows.Scan(&c.ID, &c.Name, &c.MemberCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Service) loadActiveMembers(ctx context.Context) ([]MemberView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.name, m.chapter_id, c.name
		FROM members m
		JOIN chapters c ON c.id = m.chapter_id
		WHERE m.status = 'active'
		ORDER BY m.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemberView
	for rows.Next() {
		var m MemberView
		if err := rows.Scan(&m.ID, &m.Name, &m.ChapterID, &m.ChapterName); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Service) loadWeeklyByMember(ctx context.Context) (map[int64][]WeeklyMetric, error) {
	rows, err := s.db.Query(ctx, `
		SELECT wm.week_number, wm.member_id, wm.referrals, wm.visitors, wm.attendance
		FROM weekly_metrics wm
		JOIN members m ON m.id = wm.member_id
		WHERE m.status = 'active'
		ORDER BY wm.member_id, wm.week_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]WeeklyMetric)
	for rows.Next() {
		var m WeeklyMetric
		if err := rows.Scan(&m.WeekNumber, &m.MemberID, &m.Referrals, &m.Visitors, &m.Attendance); err != nil {
			return nil, err
		}
		out[m.MemberID] = append(out[m.MemberID], m)
	}
	return out, rows.Err()
}

func (s *Service) loadGameByMember(ctx context.Context) (map[int64]*GameMetric, error) {
	rows, err := s.db.Query(ctx, `
		SELECT gm.member_id, gm.testimonials, gm.trainings, gm.inductions_given
		FROM game_metrics gm
		JOIN members m ON m.id = gm.member_id
		WHERE m.status = 'active'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]*GameMetric)
	for rows.Next() {
		var g GameMetric
		if err := rows.Scan(&g.MemberID, &g.Testimonials, &g.Trainings, &g.InductionsGiven); err != nil {
			return nil, err
		}
		out[g.MemberID] = &g
	}
	return out, rows.Err()
}
