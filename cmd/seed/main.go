package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/lunchvote/api/internal/clock"
	"github.com/lunchvote/api/internal/config"
	"github.com/lunchvote/api/internal/state"
	"github.com/lunchvote/api/internal/store"
)

// Seed bootstraps an empty snapshot with a participant roster and a
// restaurant catalog so a fresh deployment is usable on day one. It refuses
// to touch a snapshot that already carries data.
func main() {
	dir := flag.String("dir", "", "Directory containing names.json, restaurants.json and menus.json")
	force := flag.Bool("force", false, "Seed even when the snapshot already has data")
	flag.Parse()

	if *dir == "" {
		*dir = os.Getenv("SEED_DIR")
	}
	if *dir == "" {
		*dir = "seed"
	}

	godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	local, err := store.OpenSQLite(cfg.SnapshotPath)
	if err != nil {
		log.Fatalf("open local snapshot cache: %v", err)
	}
	defer local.Close()

	repo := state.NewRepository(state.Options{
		Local: local,
		Clock: clock.System{},
	})
	snap := repo.Load(ctx)

	if !*force && (len(snap.Names) > 0 || len(snap.Restaurants) > 0) {
		log.Fatalf("snapshot at %s already has data; pass -force to seed anyway", cfg.SnapshotPath)
	}

	names, err := loadNames(filepath.Join(*dir, "names.json"))
	if err != nil {
		log.Fatalf("load roster: %v", err)
	}
	restaurants, err := loadRestaurants(filepath.Join(*dir, "restaurants.json"))
	if err != nil {
		log.Fatalf("load restaurants: %v", err)
	}
	menus, err := loadMenus(filepath.Join(*dir, "menus.json"))
	if err != nil {
		log.Fatalf("load menus: %v", err)
	}

	repo.AddNames(names)
	seededMenus := 0
	for _, rest := range restaurants {
		created := repo.UpsertRestaurant(rest)
		if m, ok := menus[rest.Name]; ok {
			repo.SetMenu(created.ID, m)
			seededMenus++
		}
	}
	fmt.Printf("Seeded %d participants, %d restaurants, %d menus\n",
		len(names), len(restaurants), seededMenus)
}

func loadNames(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return names, nil
}

func loadRestaurants(path string) ([]state.Restaurant, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var restaurants []state.Restaurant
	if err := json.Unmarshal(raw, &restaurants); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return restaurants, nil
}

// loadMenus reads menus keyed by restaurant name; IDs are not known until
// the restaurants are created, so the seed files join on the display name.
func loadMenus(path string) (map[string]state.Menu, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var menus map[string]state.Menu
	if err := json.Unmarshal(raw, &menus); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return menus, nil
}
