package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"indgames/internal/game"
)

func TestDecodeJSONToleratesExtraFields(t *testing.T) {
	body := `{
		"weekNumber": 2,
		"chapterId": 3,
		"data": [{
			"memberId": 7,
			"referrals": 4,
			"visitors": 1,
			"attendance": "present",
			"visitor_names": ["Guest One"],
			"eoi_submitted": false
		}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/scoring/weekly", strings.NewReader(body))

	var in game.WeeklySubmission
	if err := decodeJSON(req, &in); err != nil {
		t.Fatalf("expected extra fields to be ignored: %v", err)
	}
	if in.WeekNumber != 2 || len(in.Data) != 1 {
		t.Fatalf("decoded submission mismatch: %+v", in)
	}
	if e := in.Data[0]; e.MemberID != 7 || e.Referrals != 4 || e.Visitors != 1 || e.Attendance != "present" {
		t.Fatalf("decoded entry mismatch: %+v", e)
	}
}

func TestSubmitterIdentity(t *testing.T) {
	withEmail := context.WithValue(context.Background(), userContextKey, UserContext{Email: "captain@example.com"})
	if got := submitterIdentity(withEmail, "body@example.com"); got != "captain@example.com" {
		t.Fatalf("token email must win, got %q", got)
	}

	noEmail := context.WithValue(context.Background(), userContextKey, UserContext{})
	if got := submitterIdentity(noEmail, "body@example.com"); got != "body@example.com" {
		t.Fatalf("expected fallback to body value, got %q", got)
	}

	if got := submitterIdentity(context.Background(), ""); got != "" {
		t.Fatalf("expected empty identity, got %q", got)
	}
}
