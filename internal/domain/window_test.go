package domain

import (
	"testing"
	"time"
)

func TestShouldRetain(t *testing.T) {
	now := time.Now()
	w := ContextWindow{MaxItems: 100, MaxAge: 24 * time.Hour, MinImportance: 0.1}
	past := now.Add(-1 * time.Hour)
	future := now.Add(1 * time.Hour)

	tests := []struct {
		name string
		item ContextItem
		want bool
	}{
		{"fresh and important", ContextItem{CreatedAt: now, Importance: 0.9}, true},
		{"exactly at importance floor", ContextItem{CreatedAt: now, Importance: 0.1}, true},
		{"below importance floor", ContextItem{CreatedAt: now, Importance: 0.05}, false},
		{"expired", ContextItem{CreatedAt: now, Importance: 0.9, ExpiresAt: &past}, false},
		{"expiry still ahead", ContextItem{CreatedAt: now, Importance: 0.9, ExpiresAt: &future}, true},
		{"older than max age", ContextItem{CreatedAt: now.Add(-25 * time.Hour), Importance: 0.9}, false},
		{"just inside max age", ContextItem{CreatedAt: now.Add(-23 * time.Hour), Importance: 0.9}, true},
		{"old and unimportant", ContextItem{CreatedAt: now.Add(-48 * time.Hour), Importance: 0.01}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := w.ShouldRetain(&tt.item, now)
			if got != tt.want {
				t.Errorf("ShouldRetain(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestShouldRetainZeroFloor(t *testing.T) {
	now := time.Now()
	w := ContextWindow{MaxItems: 3, MaxAge: 24 * time.Hour, MinImportance: 0}
	item := ContextItem{CreatedAt: now, Importance: 0}
	if !w.ShouldRetain(&item, now) {
		t.Error("zero floor should retain zero-importance items")
	}
}

func TestNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   ContextWindow
		want ContextWindow
	}{
		{"zero window becomes default", ContextWindow{}, DefaultWindow()},
		{
			"partial window keeps explicit zero floor",
			ContextWindow{MaxItems: 3},
			ContextWindow{MaxItems: 3, MaxAge: DefaultMaxAge, MinImportance: 0},
		},
		{
			"negative floor clamps to zero",
			ContextWindow{MaxItems: 10, MaxAge: time.Hour, MinImportance: -0.5},
			ContextWindow{MaxItems: 10, MaxAge: time.Hour, MinImportance: 0},
		},
		{
			"floor above one clamps to one",
			ContextWindow{MaxItems: 10, MaxAge: time.Hour, MinImportance: 1.5},
			ContextWindow{MaxItems: 10, MaxAge: time.Hour, MinImportance: 1},
		},
		{
			"fully specified window untouched",
			ContextWindow{MaxItems: 50, MaxAge: 2 * time.Hour, MinImportance: 0.3},
			ContextWindow{MaxItems: 50, MaxAge: 2 * time.Hour, MinImportance: 0.3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalized()
			if got != tt.want {
				t.Errorf("Normalized() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestContextItemIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-1 * time.Minute)
	future := now.Add(1 * time.Minute)

	noExpiry := ContextItem{CreatedAt: now}
	if noExpiry.IsExpired(now) {
		t.Error("item without expiry should never expire")
	}

	expired := ContextItem{CreatedAt: now.Add(-time.Hour), ExpiresAt: &past}
	if !expired.IsExpired(now) {
		t.Error("item past its expiry should be expired")
	}

	live := ContextItem{CreatedAt: now, ExpiresAt: &future}
	if live.IsExpired(now) {
		t.Error("item before its expiry should not be expired")
	}
	if live.IsExpired(*live.ExpiresAt) {
		t.Error("expiry instant itself is not yet expired")
	}
}
