package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dmarkov/fundbid/internal/api"
	"github.com/dmarkov/fundbid/internal/auth"
	"github.com/dmarkov/fundbid/internal/clock"
	"github.com/dmarkov/fundbid/internal/config"
	"github.com/dmarkov/fundbid/internal/db"
	"github.com/dmarkov/fundbid/internal/ledger"
	"github.com/dmarkov/fundbid/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in development
	},
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// poolBroadcaster pushes the open-bid pool to websocket subscribers so
// dashboards see new postings without polling.
type poolBroadcaster struct {
	ledger    *ledger.Ledger
	log       *zap.SugaredLogger
	clientsMu sync.RWMutex
	clients   map[*wsClient]bool
}

func newPoolBroadcaster(l *ledger.Ledger, log *zap.SugaredLogger) *poolBroadcaster {
	return &poolBroadcaster{
		ledger:  l,
		log:     log,
		clients: make(map[*wsClient]bool),
	}
}

func (b *poolBroadcaster) broadcast() {
	// Owner ids start at 1, so excluding 0 yields the whole pool.
	pool := b.ledger.OpenExcluding(0)
	data, err := json.Marshal(struct {
		OpenBids []models.Bid `json:"open_bids"`
	}{OpenBids: pool})
	if err != nil {
		b.log.Errorw("failed to marshal open pool", "error", err)
		return
	}

	b.clientsMu.RLock()
	stale := make([]*wsClient, 0)
	for client := range b.clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			stale = append(stale, client)
		}
	}
	b.clientsMu.RUnlock()

	if len(stale) > 0 {
		b.clientsMu.Lock()
		for _, client := range stale {
			delete(b.clients, client)
		}
		b.clientsMu.Unlock()
	}
}

func (b *poolBroadcaster) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warnw("failed to upgrade connection", "error", err)
		return
	}

	client := &wsClient{conn: conn}
	b.clientsMu.Lock()
	b.clients[client] = true
	b.clientsMu.Unlock()

	// Send the current pool immediately, then keep the connection
	// open until the peer goes away.
	b.broadcast()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			b.clientsMu.Lock()
			delete(b.clients, client)
			b.clientsMu.Unlock()
			break
		}
	}
}

func (b *poolBroadcaster) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.broadcast()
		}
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.DatabaseURI, cfg.MigrationsDir); err != nil {
		sugar.Fatalw("migration error", "error", err)
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err)
	}
	defer database.Close()

	// Assemble the core and replay stored state into it.
	alloc := ledger.NewAllocator()
	ld := ledger.NewLedger(clock.System{}, alloc)
	admin := ledger.NewAdmin(alloc)

	stored, err := database.LoadBids(ctx)
	if err != nil {
		sugar.Fatalw("failed to load bids", "error", err)
	}
	ld.Load(stored)

	capacities, err := database.LoadAllocation(ctx)
	if err != nil {
		sugar.Fatalw("failed to load allocations", "error", err)
	}
	if err := alloc.SetCapacities(capacities); err != nil {
		sugar.Fatalw("stored allocations invalid", "error", err)
	}
	sugar.Infow("ledger restored", "bids", len(stored), "capacities", capacities)

	authService := auth.NewService(database, cfg.JWTSecret)
	handler := api.NewHandler(ld, admin, authService, database, clock.System{}, sugar)

	broadcaster := newPoolBroadcaster(ld, sugar)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Get("/ws", broadcaster.handleWebSocket)
	r.Mount("/", api.NewRouter(handler))

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		broadcaster.run(ctx, cfg.BroadcastInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting fundbid server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("server error", "error", err)
	}
	sugar.Info("server stopped")
}
