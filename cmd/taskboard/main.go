package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/kvslot"
	"taskboard/internal/server"
	"taskboard/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	tasks, err := buildTaskStore(ctx, cfg, db)
	if err != nil {
		log.Fatalf("task store: %v", err)
	}

	userRepo := auth.NewUserRepository(db)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(userRepo, auth.NewPasswordHasher(), jwtManager)

	srv := server.New(tasks, authSvc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Addr)
	}()
	log.Printf("taskboard listening on %s (storage: %s)", cfg.Addr, cfg.StorageMode)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server stopped with error: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
	log.Println("Shutdown complete.")
}

// buildTaskStore picks the backend: the server-side SQLite database that
// already holds the users, or the embedded engine persisting snapshots
// into the configured durable slot.
func buildTaskStore(ctx context.Context, cfg config.Config, db *gorm.DB) (store.TaskStore, error) {
	if cfg.StorageMode == config.ModeSQL {
		return store.NewSQL(db), nil
	}

	var slot kvslot.Slot
	switch cfg.SlotBackend {
	case config.SlotRedis:
		redisSlot, err := kvslot.DialRedis(cfg.RedisAddr, cfg.SlotKey)
		if err != nil {
			return nil, err
		}
		slot = redisSlot
	case config.SlotFile:
		slot = kvslot.NewFile(cfg.SlotPath)
	case config.SlotMemory:
		slot = kvslot.NewMemory()
	}

	embedded := store.NewEmbedded(slot)
	// Fail fast on a corrupt snapshot instead of on the first request.
	if err := embedded.Init(ctx); err != nil {
		return nil, err
	}
	return embedded, nil
}
