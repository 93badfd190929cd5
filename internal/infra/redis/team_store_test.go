package redis

import (
	"context"
	"errors"
	"testing"

	"qr-hunt-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestTeamStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	start := int64(1_700_000_000_000)
	team := domain.Team{
		ID:                "t1",
		Name:              "Alpha",
		Progress:          3,
		TotalTimeMs:       65_000,
		CurrentLevelStart: &start,
		LevelTimes:        map[int]int64{1: 30_000, 2: 35_000},
	}
	if err := store.CreateTeam(ctx, team); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetTeam(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Progress != 3 || got.TotalTimeMs != 65_000 {
		t.Fatalf("unexpected team: %+v", got)
	}
	if got.CurrentLevelStart == nil || *got.CurrentLevelStart != start {
		t.Fatalf("lost level start: %+v", got.CurrentLevelStart)
	}
	if got.LevelTimes[2] != 35_000 {
		t.Fatalf("lost level times: %+v", got.LevelTimes)
	}
}

func TestTeamStoreGetMissing(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.GetTeam(context.Background(), "ghost"); !errors.Is(err, domain.ErrTeamNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTeamStoreConflictOnStaleVersion(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	_ = store.CreateTeam(ctx, domain.Team{ID: "t1", Name: "Alpha", Progress: 1})

	first, _ := store.GetTeam(ctx, "t1")
	second, _ := store.GetTeam(ctx, "t1")

	first.Progress = 2
	if err := store.SaveTeam(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second.Progress = 2
	if err := store.SaveTeam(ctx, second); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, _ := store.GetTeam(ctx, "t1")
	if got.Progress != 2 {
		t.Fatalf("expected progress 2, got %d", got.Progress)
	}
}

func TestTeamStoreCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_ = store.CreateTeam(ctx, domain.Team{ID: "t1", Name: "Alpha", Progress: 1})
	_ = store.CreateTeam(ctx, domain.Team{ID: "t1", Name: "Other", Progress: 9})

	got, _ := store.GetTeam(ctx, "t1")
	if got.Name != "Alpha" || got.Progress != 1 {
		t.Fatalf("re-create overwrote record: %+v", got)
	}
	if ids, _ := mr.List("hunt:teams"); len(ids) != 1 {
		t.Fatalf("expected one roster entry, got %v", ids)
	}
}

func TestTeamStoreListsInCreationOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		_ = store.CreateTeam(ctx, domain.Team{ID: id, Progress: 1})
	}

	teams, err := store.ListTeams(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(teams) != 3 || teams[0].ID != "c" || teams[1].ID != "a" || teams[2].ID != "b" {
		t.Fatalf("expected creation order, got %+v", teams)
	}
}

func newTestStore(t *testing.T) (*TeamStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewTeamStore(client), mr
}
