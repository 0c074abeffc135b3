// Command seed populates the database with demo sessions, each with a
// 16-seat room (rows A and B, seats 1-8).  It is idempotent enough
// for development use: rerunning simply adds new sessions.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/session-booking/internal/config"
	"github.com/iliyamo/session-booking/internal/database"
	"github.com/iliyamo/session-booking/internal/logger"
	"github.com/iliyamo/session-booking/internal/model"
	"github.com/iliyamo/session-booking/internal/repository"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Pool{})
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db, "migrations"); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	sessions := repository.NewSessionRepo(db)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)

	demos := []model.Session{
		{MovieName: "The Long Night", RoomNumber: "1", StartTime: base, PriceCents: 1500},
		{MovieName: "Paper Planes", RoomNumber: "2", StartTime: base.Add(2 * time.Hour), PriceCents: 1200},
		{MovieName: "Harbor Lights", RoomNumber: "1", StartTime: base.Add(4 * time.Hour), PriceCents: 1800},
	}

	for i := range demos {
		id, err := sessions.Create(ctx, &demos[i], seatGrid())
		if err != nil {
			logger.Fatal("seed session failed", zap.String("movie", demos[i].MovieName), zap.Error(err))
		}
		logger.Info("seeded session",
			zap.Uint64("id", id),
			zap.String("movie", demos[i].MovieName),
			zap.Int("seats", 16))
	}
}

func seatGrid() []model.Seat {
	seats := make([]model.Seat, 0, 16)
	for _, row := range []string{"A", "B"} {
		for n := 1; n <= 8; n++ {
			seats = append(seats, model.Seat{Label: fmt.Sprintf("%s%d", row, n), RowLabel: row})
		}
	}
	return seats
}
