package refdata

import (
	"context"
	"testing"
	"time"

	pkgcache "FreshSnap/pkg/cache"
)

func TestStatsCachesCounts(t *testing.T) {
	ctx := context.Background()
	src := newFakeStore()
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()

	s := NewStats(src, mem, time.Minute, testLog(t))

	for i := 0; i < 3; i++ {
		counts, err := s.CountsByMarket(ctx)
		if err != nil {
			t.Fatalf("counts: %v", err)
		}
		if counts["m1"] != 12 || counts["m2"] != 3 {
			t.Fatalf("counts wrong: %v", counts)
		}
	}
	if src.calls["counts:market"] != 1 {
		t.Fatalf("source hit %d times, want 1", src.calls["counts:market"])
	}
}

func TestStatsCorruptEntryRecovers(t *testing.T) {
	ctx := context.Background()
	src := newFakeStore()
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()

	s := NewStats(src, mem, time.Minute, testLog(t))
	if err := mem.Set(ctx, "stats:prediction_counts:sector", "{broken", time.Minute); err != nil {
		t.Fatalf("seed: %v", err)
	}

	counts, err := s.CountsBySector(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["s1"] != 15 || src.calls["counts:sector"] != 1 {
		t.Fatalf("corrupt entry must fall through to the loader: %v", counts)
	}
}
