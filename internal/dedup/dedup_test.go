package dedup

import (
	"context"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("orderbot", "SM123"); got != "dedup:orderbot:SM123" {
		t.Errorf("Key = %q", got)
	}
}

func TestMemoryDeduper(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := NewMemoryDeduper(time.Hour)
	d.now = func() time.Time { return now }

	first, _ := d.FirstSeen(ctx, "SM1")
	if !first {
		t.Fatal("first delivery should be new")
	}
	again, _ := d.FirstSeen(ctx, "SM1")
	if again {
		t.Fatal("retry should be reported as seen")
	}
	other, _ := d.FirstSeen(ctx, "SM2")
	if !other {
		t.Fatal("different id should be new")
	}

	now = now.Add(time.Hour)
	expired, _ := d.FirstSeen(ctx, "SM1")
	if !expired {
		t.Error("id should be forgotten after the TTL")
	}
}
