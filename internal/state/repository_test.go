package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lunchvote/api/internal/clock"
	"github.com/lunchvote/api/internal/enum"
	"github.com/lunchvote/api/internal/state"
	"github.com/lunchvote/api/internal/store"
)

// flakyStore fails every write until recovered. Reads always succeed.
type flakyStore struct {
	mu     sync.Mutex
	broken bool
	writes int
	last   *state.Snapshot
}

func (f *flakyStore) Read(_ context.Context) (*state.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return nil, nil
	}
	return f.last.Clone(), nil
}

func (f *flakyStore) Write(_ context.Context, snap *state.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.broken {
		return errors.New("endpoint unreachable")
	}
	f.last = snap.Clone()
	return nil
}

func (f *flakyStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func taipei(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	return loc
}

func newTestRepo(t *testing.T, opts state.Options) *state.Repository {
	t.Helper()
	if opts.Local == nil {
		opts.Local = store.NewMemory()
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewFixed(time.Date(2024, 5, 10, 9, 0, 0, 0, taipei(t)))
	}
	repo := state.NewRepository(opts)
	repo.Load(context.Background())
	return repo
}

func TestLoad_BootstrapsBaseDate(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 5, 10, 9, 0, 0, 0, taipei(t)))
	local := store.NewMemory()
	repo := state.NewRepository(state.Options{Local: local, Clock: clk})
	snap := repo.Load(context.Background())

	if snap.Settings.BaseDate != "2024-05-10" {
		t.Errorf("baseDate: got %q, want 2024-05-10", snap.Settings.BaseDate)
	}
	persisted, err := local.Read(context.Background())
	if err != nil {
		t.Fatalf("read local: %v", err)
	}
	if persisted == nil || persisted.Settings.BaseDate != "2024-05-10" {
		t.Error("bootstrapped baseDate was not written back to the local cache")
	}
}

func TestLoad_FallsBackToRemote(t *testing.T) {
	remote := &flakyStore{}
	seed := state.Default()
	seed.Settings.BaseDate = "2024-05-09"
	seed.Names = []string{"Amy"}
	if err := remote.Write(context.Background(), seed); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	repo := state.NewRepository(state.Options{Local: store.NewMemory(), Remote: remote, Clock: clock.NewFixed(time.Now())})
	snap := repo.Load(context.Background())
	if len(snap.Names) != 1 || snap.Names[0] != "Amy" {
		t.Errorf("names: got %v, want remote roster", snap.Names)
	}
}

func TestRecordVote_Validation(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	cases := []struct {
		date, name, rid string
		want            error
	}{
		{"", "Amy", "r1", state.ErrEmptyDate},
		{"2024-05-10", "", "r1", state.ErrEmptyName},
		{"2024-05-10", "Amy", "", state.ErrNoRestaurant},
	}
	for _, c := range cases {
		if err := repo.RecordVote(c.date, c.name, c.rid); !errors.Is(err, c.want) {
			t.Errorf("RecordVote(%q,%q,%q): got %v, want %v", c.date, c.name, c.rid, err, c.want)
		}
	}
	if len(repo.Votes("2024-05-10")) != 0 {
		t.Error("rejected votes must not be recorded")
	}
}

func TestRecordVote_RevoteOverwrites(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	if err := repo.RecordVote("2024-05-10", "Amy", "r1"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := repo.RecordVote("2024-05-10", "Amy", "r2"); err != nil {
		t.Fatalf("revote: %v", err)
	}
	votes := repo.Votes("2024-05-10")
	if len(votes) != 1 || votes["Amy"] != "r2" {
		t.Errorf("votes: got %v, want one vote for r2", votes)
	}
}

func TestVoteSummary_CatalogOrderAndRemovedRestaurants(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	r1 := repo.UpsertRestaurant(state.Restaurant{Name: "Noodle House"})
	r2 := repo.UpsertRestaurant(state.Restaurant{Name: "Curry Corner", Status: enum.RestaurantArchived})

	mustVote := func(name, rid string) {
		t.Helper()
		if err := repo.RecordVote("2024-05-10", name, rid); err != nil {
			t.Fatalf("vote %s: %v", name, err)
		}
	}
	mustVote("Amy", r1.ID)
	mustVote("Ben", r1.ID)
	mustVote("Cleo", r2.ID)
	mustVote("Dan", "ghost-restaurant")

	summary := repo.VoteSummary("2024-05-10")
	if len(summary) != 2 {
		t.Fatalf("summary rows: got %d, want 2", len(summary))
	}
	if summary[0].ID != r1.ID || summary[0].Count != 2 {
		t.Errorf("row 0: got %s count=%d, want %s count=2", summary[0].ID, summary[0].Count, r1.ID)
	}
	if summary[1].ID != r2.ID || summary[1].Count != 1 {
		t.Errorf("row 1 (archived restaurants still tallied): got %s count=%d", summary[1].ID, summary[1].Count)
	}
}

func TestSetOrder_NormalizesAndComputesSubtotal(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	stored, err := repo.SetOrder("2024-05-10", "Amy", state.Order{
		RestaurantID: "r1",
		Items: []state.OrderLine{
			{ID: "l1", Name: "Beef noodles", Qty: 2, Price: 120.5},
			{ID: "l2", Name: "Ghost line", Qty: 0, Price: 50},
			{ID: "l3", Name: "Refund glitch", Qty: 1, Price: -10},
		},
		Subtotal: 9999, // client value, never trusted
	})
	if err != nil {
		t.Fatalf("set order: %v", err)
	}
	if len(stored.Items) != 2 {
		t.Fatalf("items: got %d, want 2 (zero-qty line dropped)", len(stored.Items))
	}
	if stored.Items[1].Price != 0 {
		t.Errorf("negative price: got %v, want clamped to 0", stored.Items[1].Price)
	}
	if stored.Subtotal != 241 {
		t.Errorf("subtotal: got %v, want 241", stored.Subtotal)
	}
}

func TestSetOrder_AllLinesDropped(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	_, err := repo.SetOrder("2024-05-10", "Amy", state.Order{
		RestaurantID: "r1",
		Items:        []state.OrderLine{{ID: "l1", Qty: 0, Price: 50}},
	})
	if !errors.Is(err, state.ErrEmptyOrder) {
		t.Fatalf("got %v, want ErrEmptyOrder", err)
	}
}

func TestSetOrder_ResubmissionKeepsPaidFlag(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	first := state.Order{RestaurantID: "r1", Items: []state.OrderLine{{ID: "l1", Qty: 1, Price: 80}}}
	if _, err := repo.SetOrder("2024-05-10", "Amy", first); err != nil {
		t.Fatalf("set order: %v", err)
	}
	if !repo.SetPaymentStatus("2024-05-10", "Amy", true) {
		t.Fatal("payment toggle reported no-op")
	}

	second := state.Order{RestaurantID: "r2", Items: []state.OrderLine{{ID: "l2", Qty: 1, Price: 95}}}
	stored, err := repo.SetOrder("2024-05-10", "Amy", second)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !stored.Paid {
		t.Error("paid flag must survive resubmission")
	}
	if stored.RestaurantID != "r2" || len(stored.Items) != 1 || stored.Items[0].ID != "l2" {
		t.Error("resubmission must replace items wholesale, not merge")
	}
}

func TestSetPaymentStatus_NoOrder(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	if repo.SetPaymentStatus("2024-05-10", "Nobody", true) {
		t.Error("expected no-op for missing order")
	}
}

func TestComputeTotals(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	repo.AddNames([]string{"Amy", "Ben", "Cleo"})
	if _, err := repo.SetOrder("2024-05-10", "Amy", state.Order{
		RestaurantID: "r1", Items: []state.OrderLine{{ID: "l1", Qty: 2, Price: 60.25}},
	}); err != nil {
		t.Fatalf("order: %v", err)
	}
	if _, err := repo.SetOrder("2024-05-10", "Ben", state.Order{
		RestaurantID: "r1", Items: []state.OrderLine{{ID: "l2", Qty: 1, Price: 100}},
	}); err != nil {
		t.Fatalf("order: %v", err)
	}
	repo.SetPaymentStatus("2024-05-10", "Ben", true)

	totals := repo.ComputeTotals("2024-05-10")
	if totals.ClassTotal != 220.5 {
		t.Errorf("classTotal: got %v, want 220.5", totals.ClassTotal)
	}
	if len(totals.Unpaid) != 1 || totals.Unpaid[0] != "Amy" {
		t.Errorf("unpaid: got %v, want [Amy]", totals.Unpaid)
	}
	if len(totals.Missing) != 1 || totals.Missing[0] != "Cleo" {
		t.Errorf("missing: got %v, want [Cleo]", totals.Missing)
	}
}

func TestAddNames_TrimDedupeSort(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	repo.AddNames([]string{" Ben ", "Amy", "", "Amy"})
	repo.AddNames([]string{"Cleo", "Ben"})
	names := repo.Names()
	want := []string{"Amy", "Ben", "Cleo"}
	if len(names) != len(want) {
		t.Fatalf("names: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names: got %v, want %v", names, want)
		}
	}
}

func TestRemoveName_KeepsLedgersByDefault(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	repo.AddNames([]string{"Amy"})
	if err := repo.RecordVote("2024-05-10", "Amy", "r1"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	repo.RemoveName("Amy")
	if len(repo.Names()) != 0 {
		t.Error("name not removed from roster")
	}
	if repo.Votes("2024-05-10")["Amy"] != "r1" {
		t.Error("historical vote must survive roster removal")
	}
}

func TestRemoveName_Cascade(t *testing.T) {
	repo := newTestRepo(t, state.Options{CascadeOnRemove: true})
	repo.AddNames([]string{"Amy"})
	if err := repo.RecordVote("2024-05-10", "Amy", "r1"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := repo.SetOrder("2024-05-10", "Amy", state.Order{
		RestaurantID: "r1", Items: []state.OrderLine{{ID: "l1", Qty: 1, Price: 50}},
	}); err != nil {
		t.Fatalf("order: %v", err)
	}
	repo.RemoveName("Amy")
	if len(repo.Votes("2024-05-10")) != 0 {
		t.Error("cascade must delete the participant's votes")
	}
	if len(repo.Orders("2024-05-10")) != 0 {
		t.Error("cascade must delete the participant's orders")
	}
}

func TestClearOldRecords_StrictCutoff(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 5, 10, 12, 0, 0, 0, taipei(t)))
	repo := newTestRepo(t, state.Options{Clock: clk})
	for _, date := range []string{"2024-04-09", "2024-04-10", "2024-04-11"} {
		if err := repo.RecordVote(date, "Amy", "r1"); err != nil {
			t.Fatalf("vote: %v", err)
		}
		if _, err := repo.SetOrder(date, "Amy", state.Order{
			RestaurantID: "r1", Items: []state.OrderLine{{ID: "l1", Qty: 1, Price: 50}},
		}); err != nil {
			t.Fatalf("order: %v", err)
		}
	}

	// Cutoff is 2024-04-10; only buckets strictly before it go.
	removed := repo.ClearOldRecords(30)
	if removed != 2 {
		t.Errorf("removed: got %d, want 2 (one vote bucket, one order bucket)", removed)
	}
	if len(repo.Votes("2024-04-09")) != 0 {
		t.Error("bucket before cutoff must be deleted")
	}
	if len(repo.Votes("2024-04-10")) != 1 {
		t.Error("bucket exactly at cutoff must survive")
	}
	if len(repo.Votes("2024-04-11")) != 1 {
		t.Error("bucket after cutoff must survive")
	}
}

func TestUpdate_PersistsLocallyWhenRemoteFails(t *testing.T) {
	local := store.NewMemory()
	remote := &flakyStore{broken: true}
	repo := newTestRepo(t, state.Options{Local: local, Remote: remote})

	if err := repo.RecordVote("2024-05-10", "Amy", "r1"); err != nil {
		t.Fatalf("vote must succeed despite broken remote: %v", err)
	}
	if !repo.WaitForFlush(time.Second) {
		t.Fatal("remote flush did not settle")
	}

	persisted, err := local.Read(context.Background())
	if err != nil {
		t.Fatalf("read local: %v", err)
	}
	if persisted.Votes["2024-05-10"]["Amy"] != "r1" {
		t.Error("vote not in local cache")
	}
	if remote.writeCount() == 0 {
		t.Error("remote write was never attempted")
	}
}

func TestUpdate_PublishesStateEvents(t *testing.T) {
	bus := state.NewBus()
	var mu sync.Mutex
	var events []*state.Snapshot
	bus.SubscribeState(func(s *state.Snapshot) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	})
	repo := newTestRepo(t, state.Options{Bus: bus})

	if err := repo.RecordVote("2024-05-10", "Amy", "r1"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	repo.RecordPinFailure(1, 0) // silent bookkeeping

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("events: got %d, want 1 (PIN bookkeeping is silent)", len(events))
	}
	if events[0].Votes["2024-05-10"]["Amy"] != "r1" {
		t.Error("event snapshot missing the vote")
	}
}

func TestPatchSettings_InvalidMode(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	mode := "banquet"
	if err := repo.PatchSettings(state.SettingsPatch{Mode: &mode}); !errors.Is(err, state.ErrInvalidMode) {
		t.Fatalf("got %v, want ErrInvalidMode", err)
	}
}

func TestPatchSettings_TriggersPhaseHook(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	calls := 0
	repo.SetPhaseHook(func() { calls++ })

	mode := enum.ModeDirect
	if err := repo.PatchSettings(state.SettingsPatch{Mode: &mode}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if calls != 1 {
		t.Errorf("phase hook calls after mode change: got %d, want 1", calls)
	}

	backup := state.Backup{Enabled: true, URL: "https://example.test/hook"}
	if err := repo.PatchSettings(state.SettingsPatch{Backup: &backup}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if calls != 1 {
		t.Errorf("backup setting is not phase-relevant; hook calls got %d, want 1", calls)
	}
}

func TestUpsertRestaurant_MintsIDAndDefaultsStatus(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	created := repo.UpsertRestaurant(state.Restaurant{Name: "Noodle House"})
	if created.ID == "" {
		t.Fatal("expected minted ID")
	}
	if created.Status != enum.RestaurantOpen {
		t.Errorf("status: got %q, want open", created.Status)
	}

	created.Name = "Noodle Palace"
	updated := repo.UpsertRestaurant(created)
	if updated.ID != created.ID {
		t.Error("update must keep the ID")
	}
	if got := repo.Restaurants(false); len(got) != 1 || got[0].Name != "Noodle Palace" {
		t.Errorf("catalog: got %v", got)
	}
}

func TestRemoveRestaurant_DropsMenu(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	created := repo.UpsertRestaurant(state.Restaurant{Name: "Noodle House"})
	repo.SetMenu(created.ID, state.Menu{Items: []state.Item{{Name: "Beef noodles", BasePrice: 120}}})

	repo.RemoveRestaurant(created.ID)
	if len(repo.Restaurants(false)) != 0 {
		t.Error("restaurant not removed")
	}
	if len(repo.Menus()) != 0 {
		t.Error("menu must be removed with its restaurant")
	}
}

func TestRestaurants_ActiveOnlyFiltersArchived(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	repo.UpsertRestaurant(state.Restaurant{Name: "Open Spot"})
	repo.UpsertRestaurant(state.Restaurant{Name: "Gone Spot", Status: enum.RestaurantArchived})

	if got := repo.Restaurants(true); len(got) != 1 || got[0].Name != "Open Spot" {
		t.Errorf("active catalog: got %v", got)
	}
	if got := repo.Restaurants(false); len(got) != 2 {
		t.Errorf("full catalog: got %d entries, want 2", len(got))
	}
}

func TestSetMenu_MintsIDsAndReportsWarnings(t *testing.T) {
	repo := newTestRepo(t, state.Options{})
	warnings := repo.SetMenu("r1", state.Menu{
		Categories: []state.Category{{Name: "Mains"}},
		Items: []state.Item{
			{Name: "Fried rice", CategoryID: "nope", OptionGroups: []state.OptionGroup{{Name: "Size", Type: enum.OptionGroupSingle}}},
		},
	})
	if len(warnings) != 1 {
		t.Fatalf("warnings: got %v, want 1 orphaned-category warning", warnings)
	}
	m := repo.Menus()["r1"]
	if m.Categories[0].ID == "" || m.Items[0].ID == "" || m.Items[0].OptionGroups[0].ID == "" {
		t.Error("expected IDs minted for category, item and option group")
	}
}
