// Package store archives exported draft rosters in Postgres.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const saveTimeout = 5 * time.Second

type Archive struct {
	db   *gorm.DB
	log  *zap.Logger
	now  func() time.Time
	save func(ctx context.Context, code string, rosters []engine.TeamRoster) (*DraftRecord, error)

	pending sync.WaitGroup
}

var _ lobby.Hooks = (*Archive)(nil)

func Open(dsn string, log *zap.Logger) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db, log)
}

// New migrates the archive tables on db.
func New(db *gorm.DB, log *zap.Logger) (*Archive, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&DraftRecord{}, &TeamRecord{}, &PickRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}
	a := &Archive{db: db, log: log, now: time.Now}
	a.save = a.Save
	return a, nil
}

// Close waits for background exports before closing the pool.
func (a *Archive) Close() error {
	a.Flush()
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save writes one completed draft with its teams and picks in a single transaction.
func (a *Archive) Save(ctx context.Context, code string, rosters []engine.TeamRoster) (*DraftRecord, error) {
	rec := toRecord(code, rosters, a.now())
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to archive draft %s: %w", code, err)
	}
	return &rec, nil
}

// List returns archived copies of a draft, newest first.
func (a *Archive) List(ctx context.Context, code string) ([]DraftRecord, error) {
	var recs []DraftRecord
	err := a.db.WithContext(ctx).
		Preload("Teams", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Teams.Picks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("code = ?", code).
		Order("completed_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list archive for %s: %w", code, err)
	}
	return recs, nil
}

func (a *Archive) Render(string, lobby.Snapshot, []engine.Event) {}
func (a *Archive) ShowTeams(string, []engine.TeamRoster)         {}

// Export archives in the background so the lobby loop never waits on the database.
func (a *Archive) Export(code string, rosters []engine.TeamRoster) {
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		rec, err := a.save(ctx, code, rosters)
		if err != nil {
			a.log.Error("archive failed", zap.String("draft", code), zap.Error(err))
			return
		}
		a.log.Info("draft archived", zap.String("draft", code), zap.Uint("record", rec.ID))
	}()
}

// Flush blocks until every archive started by Export has finished.
func (a *Archive) Flush() {
	a.pending.Wait()
}

func toRecord(code string, rosters []engine.TeamRoster, completedAt time.Time) DraftRecord {
	rec := DraftRecord{Code: code, CompletedAt: completedAt.UTC(), Teams: make([]TeamRecord, 0, len(rosters))}
	for i, r := range rosters {
		team := TeamRecord{Position: i, CoachName: r.CoachName, Picks: make([]PickRecord, 0, len(r.Players))}
		for j, p := range r.Players {
			team.Picks = append(team.Picks, PickRecord{Position: j, PlayerName: p.Name, GroupTag: p.Group})
		}
		rec.Teams = append(rec.Teams, team)
	}
	return rec
}
