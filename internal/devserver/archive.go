package devserver

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MatchRecord is the persisted summary of one finished game.
type MatchRecord struct {
	ID        uint   `gorm:"primaryKey"`
	GameID    string `gorm:"index"`
	Winner    string
	PlayerA   string
	ScoreA    int
	PlayerB   string
	ScoreB    int
	CreatedAt time.Time
}

// Archive stores finished matches in Postgres. Optional: the dev server
// runs fine without a database.
type Archive struct {
	db  *gorm.DB
	log *zap.Logger
}

func OpenArchive(dsn string, log *zap.Logger) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&MatchRecord{}); err != nil {
		return nil, err
	}
	return &Archive{db: db, log: log}, nil
}

// Save is best effort; a failed insert is logged, never fatal.
func (a *Archive) Save(res Result) {
	rec := MatchRecord{GameID: res.GameID, Winner: res.Winner}
	first := true
	for id, score := range res.Players {
		if first {
			rec.PlayerA, rec.ScoreA = id, score
			first = false
		} else {
			rec.PlayerB, rec.ScoreB = id, score
		}
	}
	if err := a.db.Create(&rec).Error; err != nil {
		a.log.Warn("archive insert failed", zap.Error(err))
	}
}
