package services

import (
	"testing"
	"time"
)

func TestShouldSendByLastSent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastSent string
		interval time.Duration
		want     bool
	}{
		{"never sent", "", 48 * time.Hour, true},
		{"unparseable timestamp", "not-a-time", 48 * time.Hour, true},
		{"sent recently", now.Add(-12 * time.Hour).Format(time.RFC3339), 48 * time.Hour, false},
		{"interval elapsed", now.Add(-72 * time.Hour).Format(time.RFC3339), 48 * time.Hour, true},
		{"exactly at interval", now.Add(-48 * time.Hour).Format(time.RFC3339), 48 * time.Hour, true},
	}

	for _, tt := range tests {
		if got := shouldSendByLastSent(tt.lastSent, tt.interval, now); got != tt.want {
			t.Errorf("%s: shouldSendByLastSent = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestReminderReferenceTime(t *testing.T) {
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	activity := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	if got := reminderReferenceTime(nil, createdAt); !got.Equal(createdAt) {
		t.Errorf("nil activity: got %v, want account creation %v", got, createdAt)
	}

	var zero time.Time
	if got := reminderReferenceTime(&zero, createdAt); !got.Equal(createdAt) {
		t.Errorf("zero activity: got %v, want account creation %v", got, createdAt)
	}

	if got := reminderReferenceTime(&activity, createdAt); !got.Equal(activity) {
		t.Errorf("recent activity: got %v, want %v", got, activity)
	}
}

func TestFirstNameOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Aruzhan Serikbay", "Aruzhan"},
		{"  Daniyar  ", "Daniyar"},
		{"", "there"},
		{"   ", "there"},
	}
	for _, tt := range tests {
		if got := firstNameOf(tt.in); got != tt.want {
			t.Errorf("firstNameOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
