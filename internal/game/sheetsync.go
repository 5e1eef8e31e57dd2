package game

import (
	"context"
	"strings"
)

// SheetSource is the spreadsheet bridge the worker syncs against. The
// bridge owns credentials and the sheet layout; this side only sees rows.
type SheetSource interface {
	FetchRows(ctx context.Context) ([]SheetRow, error)
	PushPoints(ctx context.Context, rows []SheetPointRow) error
}

// RunSheetSync pulls weekly rows from the bridge, upserts the ones that
// match a known member, then pushes every stored row back with its
// engine-computed points so the sheet never carries its own copy of the
// formula. Rows that fail validation or name matching are skipped and
// logged, not fatal: the sheet is collaborative input, not a trusted
// batch.
func (s *Service) RunSheetSync(ctx context.Context, src SheetSource) (SheetSyncResult, error) {
	var out SheetSyncResult

	rows, err := src.FetchRows(ctx)
	if err != nil {
		return out, err
	}
	out.TotalRows = len(rows)

	for _, row := range rows {
		name := strings.TrimSpace(row.MemberName)
		if name == "" || row.WeekNumber < 1 || row.WeekNumber > s.rules.TotalWeeks {
			s.log.Warn("sheet row skipped", "week", row.WeekNumber, "member", name)
			continue
		}
		if row.Referrals < 0 || row.Visitors < 0 {
			s.log.Warn("sheet row has negative counts", "week", row.WeekNumber, "member", name)
			continue
		}
		attendance := strings.TrimSpace(row.Attendance)
		if attendance == "" {
			attendance = AttendancePresent
		}
		if !ValidAttendance(attendance) {
			s.log.Warn("sheet row has unknown attendance", "member", name, "attendance", row.Attendance)
			continue
		}

		var memberID int64
		err := s.db.QueryRow(ctx, `SELECT id FROM members WHERE name = $1`, name).Scan(&memberID)
		if err != nil {
			s.log.Warn("sheet row member not found", "member", name)
			continue
		}

		if _, err := s.db.Exec(ctx, `
			INSERT INTO weekly_metrics (week_number, member_id, referrals, visitors, attendance, submitted_by, submitted_at)
			VALUES ($1, $2, $3, $4, $5, 'sheet-sync', now())
			ON CONFLICT (week_number, member_id)
			DO UPDATE SET
			    referrals = EXCLUDED.referrals,
			    visitors = EXCLUDED.visitors,
			    attendance = EXCLUDED.attendance,
			    submitted_at = now()
		`, row.WeekNumber, memberID, row.Referrals, row.Visitors, attendance); err != nil {
			return out, err
		}
		out.RowsProcessed++
	}

	pointRows, err := s.weeklyPointRows(ctx)
	if err != nil {
		return out, err
	}
	if len(pointRows) > 0 {
		if err := src.PushPoints(ctx, pointRows); err != nil {
			return out, err
		}
	}
	out.Pushed = len(pointRows)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)
	if err := s.appendAuditTx(ctx, tx, "api_request", "sheets_sync", map[string]any{
		"rows_processed": out.RowsProcessed,
		"total_rows":     out.TotalRows,
	}, "sheet-sync"); err != nil {
		return out, err
	}
	return out, tx.Commit(ctx)
}

func (s *Service) weeklyPointRows(ctx context.Context) ([]SheetPointRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT wm.week_number, m.name, wm.referrals, wm.visitors, wm.attendance
		FROM weekly_metrics wm
		JOIN members m ON m.id = wm.member_id
		ORDER BY wm.week_number, m.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SheetPointRow
	for rows.Next() {
		var r SheetPointRow
		if err := rows.Scan(&r.WeekNumber, &r.MemberName, &r.Referrals, &r.Visitors, &r.Attendance); err != nil {
			return nil, err
		}
		points, err := s.rules.WeeklyPointsMicros(WeeklyMetric{
			Referrals:  r.Referrals,
			Visitors:   r.Visitors,
			Attendance: r.Attendance,
		})
		if err != nil {
			return nil, err
		}
		r.PointsMicros = points
		out = append(out, r)
	}
	return out, rows.Err()
}
