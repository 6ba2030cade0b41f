// cmd/server is the main entrypoint for a causalkv node.
//
// Configuration is entirely via command-line flags so a single binary can
// serve any role in the cluster. The peer set is fixed at start — dynamic
// membership is a non-goal.
//
// Example — single node:
//
//	./server --id node1 --addr :8080
//
// Example — 3-node cluster:
//
//	./server --id node1 --addr :8080 --peers node2=http://localhost:8081,node3=http://localhost:8082
//	./server --id node2 --addr :8081 --peers node1=http://localhost:8080,node3=http://localhost:8082
//	./server --id node3 --addr :8082 --peers node1=http://localhost:8080,node2=http://localhost:8081
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"causalkv/internal/api"
	"causalkv/internal/config"
	"causalkv/internal/controller"
	"causalkv/internal/transport"
)

func main() {
	// ── Flags ──────────────────────────────────────────────────────────────
	nodeID := flag.String("id", "node1", "Unique node identifier")
	addr := flag.String("addr", ":8080", "Listen address (host:port)")
	peersFlag := flag.String("peers", "", "Comma-separated list of peer nodes: id=http://host:port")
	flag.Parse()

	peers, err := config.ParsePeers(*peersFlag)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	cfg := config.Config{NodeID: *nodeID, Addr: *addr, Peers: peers}

	members := cfg.Membership()
	if len(members) == 0 || cfg.NodeID == "" {
		log.Fatalf("FATAL: unknown NODE_ID")
	}

	// ── Replication controller ──────────────────────────────────────────────
	tr := transport.NewHTTP(cfg.Peers)
	ctrl := controller.New(cfg.NodeID, members, tr)
	defer ctrl.Close()

	// ── HTTP server ────────────────────────────────────────────────────────
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(), api.Recovery())

	handler := api.NewHandler(ctrl)
	handler.Register(router)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// ── Graceful shutdown ──────────────────────────────────────────────────
	// Listen for SIGINT/SIGTERM and give in-flight requests 15s to complete.
	go func() {
		log.Printf("Node %s listening on %s (members=%v)", cfg.NodeID, cfg.Addr, members)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down node", cfg.NodeID)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
