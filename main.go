package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/alimasry/go-collab-ot/ot"
	"github.com/alimasry/go-collab-ot/server"
	"github.com/alimasry/go-collab-ot/store"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	backend := flag.String("store", "memory", "document store: memory, firestore or postgres")
	redisAddr := flag.String("redis", "", "redis address for cross-node fan-out (empty to disable)")
	flushInterval := flag.Duration("flush", 5*time.Second, "write-behind flush interval for external stores")
	flag.Parse()

	ctx := context.Background()

	var st store.DocumentStore
	switch *backend {
	case "memory":
		st = store.NewMemoryStore()
	case "firestore":
		projectID := os.Getenv("FIRESTORE_PROJECT")
		if projectID == "" {
			log.Fatal("FIRESTORE_PROJECT must be set for -store=firestore")
		}
		client, err := firestore.NewClient(ctx, projectID)
		if err != nil {
			log.Fatalf("firestore client: %v", err)
		}
		st = store.NewCachedStore(store.NewFirestoreStore(client), *flushInterval)
	case "postgres":
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			log.Fatal("DATABASE_URL must be set for -store=postgres")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("postgres pool: %v", err)
		}
		pg, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			log.Fatalf("postgres store: %v", err)
		}
		st = store.NewCachedStore(pg, *flushInterval)
	default:
		log.Fatalf("unknown store %q", *backend)
	}

	engine := &ot.JupiterEngine{}
	hub := server.NewHub(st, engine)

	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		hub.SetBridge(server.NewRedisBridge(rdb))
	}

	go hub.Run()

	handler := server.NewHandler(hub)

	log.Printf("Starting server on %s (store=%s)", *addr, *backend)
	if err := http.ListenAndServe(*addr, handler); err != nil {
		log.Fatal(err)
	}
}
