package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/lunchvote/api/internal/auth"
	"github.com/lunchvote/api/internal/clock"
	"github.com/lunchvote/api/internal/config"
	"github.com/lunchvote/api/internal/notify"
	"github.com/lunchvote/api/internal/phase"
	"github.com/lunchvote/api/internal/router"
	"github.com/lunchvote/api/internal/state"
	"github.com/lunchvote/api/internal/store"
	"github.com/lunchvote/api/internal/ws"
)

func main() {
	godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	local, err := store.OpenSQLite(cfg.SnapshotPath)
	if err != nil {
		log.Fatalf("open local snapshot cache: %v", err)
	}
	defer local.Close()

	var remote state.Store
	switch {
	case cfg.DatabaseURL != "":
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect snapshot database: %v", err)
		}
		defer pg.Close()
		remote = pg
		log.Println("Remote store: postgres")
	case cfg.RemoteURL != "":
		remote = store.NewHTTP(cfg.RemoteURL)
		log.Println("Remote store: http webhook")
	default:
		log.Println("Remote store: none (local cache only)")
	}

	clk := clock.System{}
	bus := state.NewBus()
	repo := state.NewRepository(state.Options{
		Local:           local,
		Remote:          remote,
		Bus:             bus,
		Clock:           clk,
		CascadeOnRemove: cfg.CascadeOnRemove,
	})
	repo.Load(ctx)

	gate := auth.NewGate(repo, clk)
	engine := phase.NewEngine(repo, clk, bus)

	hub := ws.NewHub()
	go hub.Run()
	hub.Bind(bus)

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		announcer, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID, repo)
		if err != nil {
			log.Printf("ERROR: telegram announcer disabled: %v", err)
		} else {
			announcer.Bind(bus)
			log.Println("Telegram announcer enabled")
		}
	}

	engine.Recheck()
	go engine.Run(ctx)

	r := router.New(cfg, repo, engine, gate, hub)
	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
