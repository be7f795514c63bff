// Headless board client: joins a board's live channel, mirrors the shared
// object map and keeps it consistent, the same engine a UI embeds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"realtime-canvas/internal/channel"
	"realtime-canvas/internal/config"
	"realtime-canvas/internal/persist"
	"realtime-canvas/internal/session"
	"realtime-canvas/internal/store"
)

func main() {
	gateway := flag.String("gateway", "ws://localhost:8080", "gateway base URL")
	boardID := flag.String("board", "", "board id to join (required)")
	userID := flag.String("user", "", "user id (default: random)")
	token := flag.String("token", "", "board access token")
	flag.Parse()

	if *boardID == "" {
		log.Fatal("❌ -board is required")
	}
	if *userID == "" {
		*userID = "agent-" + uuid.NewString()[:8]
	}

	cfg := config.Load()

	db, err := persist.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	repo := persist.NewRepository(db)

	feed, err := persist.NewFeed(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("❌ Change feed connection failed: %v", err)
	}
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewStore(*boardID, *userID)

	worker := persist.NewWorker(*boardID, *userID, repo, feed, cfg.Sync.PersistQueueSize)
	st.SetPersistSink(worker)
	go worker.Run(ctx)

	url := fmt.Sprintf("%s/ws/board/%s?token=%s", *gateway, *boardID, *token)
	live := channel.Dial(ctx, url)

	sess := session.New(st, live, repo, feed, cfg.Sync.ThrottleInterval)
	sess.OnStatus = func(s channel.Status) {
		log.Printf("[Agent] Live channel %s", s)
	}
	sess.Start(ctx)
	defer sess.Close()

	// Initial load before any remote delta arrives.
	sess.Resync(ctx)
	log.Printf("[Agent] Joined board %s as %s (%d objects)", *boardID, *userID, st.Len())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Leaving board...")
}
