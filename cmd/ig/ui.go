package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"indgames/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func renderHealth(raw map[string]any) error {
	accent.Println("\n== API HEALTH ==")
	for _, key := range []string{"status", "environment", "weekNumber", "gameActive", "timestamp"} {
		if v, ok := raw[key]; ok {
			fmt.Printf("%-12s %v\n", key+":", v)
		}
	}
	fmt.Println()
	return nil
}

func renderChapters(chapters []game.ChapterView) {
	accent.Println("\n== CHAPTERS ==")
	if len(chapters) == 0 {
		printInfo("No chapters found.")
		return
	}
	fmt.Printf("%-6s %-16s %-20s %-20s %8s %8s\n", "ID", "NAME", "CAPTAIN", "COACH", "SIZE", "ACTIVE")
	for _, c := range chapters {
		fmt.Printf("%-6d %-16s %-20s %-20s %8d %8d\n",
			c.ID,
			truncate(c.Name, 16),
			truncate(c.CaptainName, 20),
			truncate(c.CoachName, 20),
			c.MemberCount,
			c.ActiveMemberCount,
		)
	}
	fmt.Println()
}

func renderMembers(members []game.MemberView) {
	accent.Println("\n== MEMBERS ==")
	if len(members) == 0 {
		printInfo("No active members in this chapter.")
		return
	}
	fmt.Printf("%-6s %-24s %-28s %-10s %-8s\n", "ID", "NAME", "EMAIL", "ROLE", "STATUS")
	for _, m := range members {
		fmt.Printf("%-6d %-24s %-28s %-10s %-8s\n",
			m.ID,
			truncate(m.Name, 24),
			truncate(m.Email, 28),
			m.Role,
			m.Status,
		)
	}
	fmt.Println()
}

func renderLeaderboard(board game.Leaderboard) {
	accent.Printf("\n== LEADERBOARD (Week %d) ==\n", board.WeekNumber)
	fmt.Printf("Last updated: %s\n", board.LastUpdated.Local().Format("2006-01-02 15:04"))

	fmt.Println()
	accent.Println("Chapters")
	if len(board.Chapters) == 0 {
		printInfo("No chapters ranked yet.")
	} else {
		fmt.Printf("%-5s %-16s %6s %6s %10s %10s %8s %14s\n", "RANK", "CHAPTER", "SIZE", "ACTIVE", "REFERRALS", "VISITORS", "ATTEND%", "COINS")
		for _, c := range board.Chapters {
			fmt.Printf("%-5d %-16s %6d %6d %10d %10d %8s %14s\n",
				c.Rank,
				truncate(c.Name, 16),
				c.MemberCount,
				c.ActiveMembers,
				c.TotalReferrals,
				c.TotalVisitors,
				formatBps(c.AttendanceRateBps),
				formatCoins(c.Coins.TotalMicros),
			)
		}
	}

	fmt.Println()
	accent.Println("Individuals")
	if len(board.Individuals) == 0 {
		printInfo("No individuals ranked yet.")
	} else {
		fmt.Printf("%-5s %-24s %-16s %14s\n", "RANK", "NAME", "CHAPTER", "COINS")
		for _, e := range board.Individuals {
			fmt.Printf("%-5d %-24s %-16s %14s\n",
				e.Rank,
				truncate(e.Name, 24),
				truncate(e.ChapterName, 16),
				formatCoins(e.Coins.TotalMicros),
			)
		}
	}
	fmt.Println()
}

func renderMemberDetail(d game.MemberDetail) {
	accent.Printf("\n== %s (%s) ==\n", d.Member.Name, d.Member.ChapterName)
	fmt.Printf("Status:       %s\n", d.Member.Status)
	fmt.Printf("Referrals:    %d\n", d.TotalReferrals)
	fmt.Printf("Visitors:     %d\n", d.TotalVisitors)
	fmt.Printf("Present:      %d\n", d.DaysPresent)
	fmt.Printf("Absent:       %d\n", d.DaysAbsent)
	fmt.Printf("Testimonials: %d\n", d.Game.Testimonials)
	fmt.Printf("Trainings:    %d\n", d.Game.Trainings)

	fmt.Println()
	accent.Println("Coin Breakdown")
	fmt.Printf("Referrals:    %s\n", formatCoins(d.Coins.ReferralsMicros))
	fmt.Printf("Visitors:     %s\n", formatCoins(d.Coins.VisitorsMicros))
	fmt.Printf("Attendance:   %s\n", colorizeCoins(d.Coins.AttendanceMicros))
	fmt.Printf("Testimonials: %s\n", formatCoins(d.Coins.TestimonialsMicros))
	fmt.Printf("Trainings:    %s\n", formatCoins(d.Coins.TrainingsMicros))
	fmt.Printf("Total:        %s\n", colorizeCoins(d.Coins.TotalMicros))
	fmt.Println()
}

func renderAudit(page game.AuditPage) {
	accent.Printf("\n== AUDIT LOG (page %d of %d) ==\n", page.Pagination.Page, page.Pagination.Pages)
	if len(page.Logs) == 0 {
		printInfo("No audit entries.")
		return
	}
	fmt.Printf("%-20s %-24s %-16s %-24s\n", "TIME", "ACTION", "TABLE", "USER")
	for _, e := range page.Logs {
		fmt.Printf("%-20s %-24s %-16s %-24s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(e.Action, 24),
			truncate(e.TableName, 16),
			truncate(e.UserEmail, 24),
		)
	}
	fmt.Println()
}

func colorizeCoins(v int64) string {
	text := formatCoins(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatCoins(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / game.MicrosPerCoin
	frac := (v % game.MicrosPerCoin) / 10_000
	return fmt.Sprintf("%s%s.%02d", sign, comma(whole), frac)
}

func formatBps(v int64) string {
	return fmt.Sprintf("%d.%02d%%", v/100, v%100)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
