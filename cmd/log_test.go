package cmd

import (
	"strings"
	"testing"
	"time"
)

func TestRunLog_StartsStreak(t *testing.T) {
	cmdTestEnv(t)
	logAt, logNote, logMeta = "", "", nil

	out := captureStdout(t, func() {
		if err := runLog(nil, nil); err != nil {
			t.Fatalf("runLog: %v", err)
		}
	})
	if !strings.Contains(out, "1-day streak") {
		t.Errorf("expected 1-day streak in output, got: %q", out)
	}
}

func TestRunLog_BackdatedEvent(t *testing.T) {
	cmdTestEnv(t)
	logNote, logMeta = "", nil

	yesterday := time.Now().AddDate(0, 0, -1).Format(time.RFC3339)
	logAt = yesterday
	captureStdout(t, func() {
		if err := runLog(nil, nil); err != nil {
			t.Fatalf("runLog backdated: %v", err)
		}
	})

	logAt = ""
	out := captureStdout(t, func() {
		if err := runLog(nil, nil); err != nil {
			t.Fatalf("runLog today: %v", err)
		}
	})
	if !strings.Contains(out, "2-day streak") {
		t.Errorf("expected 2-day streak after backdated log, got: %q", out)
	}
}

func TestRunLog_RejectsBadTimestamp(t *testing.T) {
	cmdTestEnv(t)
	logAt, logNote, logMeta = "yesterdayish", "", nil

	if err := runLog(nil, nil); err == nil {
		t.Error("expected error for malformed --at")
	}
	logAt = ""
}

func TestRunLog_RejectsBadMeta(t *testing.T) {
	cmdTestEnv(t)
	logAt, logNote = "", ""
	logMeta = []string{"no-equals-sign"}

	if err := runLog(nil, nil); err == nil {
		t.Error("expected error for malformed --meta")
	}
	logMeta = nil
}

func TestRunStreak_ShowsComputedState(t *testing.T) {
	cmdTestEnv(t)
	logAt, logNote, logMeta = "", "", nil

	captureStdout(t, func() {
		if err := runLog(nil, nil); err != nil {
			t.Fatalf("runLog: %v", err)
		}
	})

	out := captureStdout(t, func() {
		if err := runStreak(nil, nil); err != nil {
			t.Fatalf("runStreak: %v", err)
		}
	})
	if !strings.Contains(out, "Current") || !strings.Contains(out, "1 days") {
		t.Errorf("expected streak detail in output, got: %q", out)
	}
}

func TestFreezeGrantAndList(t *testing.T) {
	cmdTestEnv(t)
	freezeGrantExpires = ""

	captureStdout(t, func() {
		if err := runFreezeGrant(nil, nil); err != nil {
			t.Fatalf("runFreezeGrant: %v", err)
		}
	})

	out := captureStdout(t, func() {
		if err := runFreezeList(nil, nil); err != nil {
			t.Fatalf("runFreezeList: %v", err)
		}
	})
	if !strings.Contains(out, "1 of 1") {
		t.Errorf("expected one available freeze, got: %q", out)
	}
}

func TestParseExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	got, err := parseExpiry("48h", now)
	if err != nil {
		t.Fatalf("parseExpiry duration: %v", err)
	}
	if !got.Equal(now.Add(48 * time.Hour)) {
		t.Errorf("duration expiry = %v", got)
	}

	got, err = parseExpiry("2026-04-01", now)
	if err != nil {
		t.Fatalf("parseExpiry date: %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.April || got.Day() != 1 {
		t.Errorf("date expiry = %v", got)
	}

	if _, err := parseExpiry("soon", now); err == nil {
		t.Error("expected error for unparseable expiry")
	}
}
