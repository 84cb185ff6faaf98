package order

import (
	"context"
	"testing"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/orderboard/pkg/enums/viewtab"
	"github.com/appetiteclub/orderboard/services/orders/internal/viewfilter"
)

func TestApplyDemoSeeds(t *testing.T) {
	repo := NewMockOrderRepo()
	svc := NewService(repo, nil, NewMockPublisher(), nil)
	tracker := NewMockSeedTracker()
	ctx := context.Background()

	if err := ApplyDemoSeeds(ctx, svc, tracker, apt.NewNoopLogger()); err != nil {
		t.Fatalf("ApplyDemoSeeds() error = %v", err)
	}

	board := viewfilter.Partition(svc.InFlight(nil))
	for _, tab := range viewtab.All {
		if len(board[tab.Code()]) == 0 {
			t.Errorf("tab %s is empty after seeding", tab.Code())
		}
	}

	// dual membership: IN_PREPARAZIONE with every item ready
	if len(board["preparazione"]) < 2 {
		t.Errorf("preparazione = %d orders, want at least 2", len(board["preparazione"]))
	}

	all, _ := repo.List(ctx)
	if len(all) != 6 {
		t.Fatalf("stored %d orders, want 6", len(all))
	}

	if err := ApplyDemoSeeds(ctx, svc, tracker, nil); err != nil {
		t.Fatalf("second ApplyDemoSeeds() error = %v", err)
	}
	all, _ = repo.List(ctx)
	if len(all) != 6 {
		t.Errorf("stored %d orders after rerun, seeds should apply once", len(all))
	}
}

func TestApplyDemoSeedsRequiresTracker(t *testing.T) {
	svc := NewService(NewMockOrderRepo(), nil, nil, nil)
	if err := ApplyDemoSeeds(context.Background(), svc, nil, nil); err == nil {
		t.Error("ApplyDemoSeeds() should fail without a tracker")
	}
}
