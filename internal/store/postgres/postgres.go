// Package postgres is a durable session store on top of gorm and the pgx-backed
// postgres driver.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/rap-battle-backend/internal/engine"
	"github.com/DoyleJ11/rap-battle-backend/internal/store"
)

type battleRow struct {
	ID        string  `gorm:"primaryKey;size:24"`
	AgentA    string  `gorm:"column:agent_a;not null"`
	AgentB    string  `gorm:"column:agent_b;not null"`
	Vote1     *string `gorm:"column:vote_1;size:1"`
	Vote2     *string `gorm:"column:vote_2;size:1"`
	Vote3     *string `gorm:"column:vote_3;size:1"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (battleRow) TableName() string { return "battles" }

type Store struct {
	db      *gorm.DB
	newCode func() (string, error)
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and migrates the battles table.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(ctx, db)
}

func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&battleRow{}); err != nil {
		return nil, fmt.Errorf("migrate battles: %w", err)
	}
	return &Store{db: db, newCode: store.NewToken}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Create(ctx context.Context, agentA, agentB string) (string, error) {
	state := engine.NewState(agentA, agentB)
	for {
		code, err := s.newCode()
		if err != nil {
			return "", fmt.Errorf("generate session token: %w", err)
		}
		row := battleRow{ID: code, AgentA: state.AgentA, AgentB: state.AgentB}
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return "", fmt.Errorf("insert battle: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return code, nil
		}
		// collision on code, regenerate
	}
}

func (s *Store) Get(ctx context.Context, token string) (engine.State, error) {
	row, err := s.find(ctx, token)
	if err != nil {
		return engine.State{}, err
	}
	return toState(row), nil
}

// RecordVote validates against the current row, then writes with a
// compare-and-set on the round's column so a concurrent vote on the same
// round cannot overwrite the first one.
func (s *Store) RecordVote(ctx context.Context, token string, round int, winner engine.Winner) error {
	row, err := s.find(ctx, token)
	if err != nil {
		return err
	}
	if _, _, err := engine.Apply(toState(row), engine.Command{
		Type:   engine.CmdCastVote,
		Round:  round,
		Winner: winner,
	}); err != nil {
		return err
	}

	col := voteColumn(round)
	res := s.db.WithContext(ctx).
		Model(&battleRow{}).
		Where("id = ? AND "+col+" IS NULL", token).
		Updates(map[string]any{col: string(winner), "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("record vote: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race, or the row expired in between.
		if _, err := s.find(ctx, token); err != nil {
			return err
		}
		return engine.ErrAlreadyVoted
	}
	return nil
}

func (s *Store) Expire(ctx context.Context, idleSince time.Time) (int, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", idleSince).Delete(&battleRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("expire battles: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) find(ctx context.Context, token string) (battleRow, error) {
	var row battleRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return battleRow{}, store.ErrSessionNotFound
	}
	if err != nil {
		return battleRow{}, fmt.Errorf("load battle: %w", err)
	}
	return row, nil
}

// voteColumn must only be called with a validated round; the result is
// spliced into SQL.
func voteColumn(round int) string {
	return fmt.Sprintf("vote_%d", round)
}

func toState(row battleRow) engine.State {
	s := engine.State{AgentA: row.AgentA, AgentB: row.AgentB}
	for i, v := range []*string{row.Vote1, row.Vote2, row.Vote3} {
		if v != nil {
			s.Votes[i] = engine.Winner(*v)
		}
	}
	s.Phase = engine.DerivePhase(s)
	return s
}
