// Package store persists finished session outputs — conversation
// transcripts and playtest reports — to an embedded sqlite database. The
// archive is write-behind only: the engine never reads it back, so every
// aggregate stays a pure function of its in-memory inputs.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConversationRecord is one archived conversation round.
type ConversationRecord struct {
	ID          string    `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"index"`
	Topic       string
	Rounds      int
	ContentType string
	Transcript  string `gorm:"type:text"` // JSON message list
	Emergent    string `gorm:"type:text"` // JSON emergent content
	Validated   bool
	Confidence  float64
}

// PlaytestRecord is one archived swarm run.
type PlaytestRecord struct {
	ID        string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	TestCount int
	Grade     string
	Score     float64
	Consensus string
	Report    string `gorm:"type:text"` // full JSON report
}

// Archive wraps the GORM handle for the session archive.
type Archive struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open opens (creating if needed) the archive at path and migrates its
// schema. Use ":memory:" for an ephemeral archive in tests.
func Open(path string, log *zap.Logger) (*Archive, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.AutoMigrate(&ConversationRecord{}, &PlaytestRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}

	return &Archive{db: db, log: log.With(zap.String("component", "archive"))}, nil
}

// ConversationArchive is the payload for SaveConversation. Transcript and
// Emergent must be JSON-serializable.
type ConversationArchive struct {
	Topic       string
	RoundCount  int
	ContentType string
	Transcript  any
	Emergent    any
	Validated   bool
	Confidence  float64
}

// SaveConversation archives a finished conversation round and returns the
// record id. Marshal errors are returned, not logged away.
func (a *Archive) SaveConversation(ctx context.Context, c ConversationArchive) (string, error) {
	transcript, err := json.Marshal(c.Transcript)
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	emergent, err := json.Marshal(c.Emergent)
	if err != nil {
		return "", fmt.Errorf("marshal emergent content: %w", err)
	}

	rec := &ConversationRecord{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now(),
		Topic:       c.Topic,
		Rounds:      c.RoundCount,
		ContentType: c.ContentType,
		Transcript:  string(transcript),
		Emergent:    string(emergent),
		Validated:   c.Validated,
		Confidence:  c.Confidence,
	}
	if err := a.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", fmt.Errorf("archive conversation: %w", err)
	}

	a.log.Debug("conversation archived", zap.String("id", rec.ID), zap.Int("rounds", c.RoundCount))
	return rec.ID, nil
}

// PlaytestArchive is the payload for SavePlaytest. Report must be
// JSON-serializable.
type PlaytestArchive struct {
	TestCount int
	Grade     string
	Score     float64
	Consensus string
	Report    any
}

// SavePlaytest archives a finished swarm run and returns the record id.
func (a *Archive) SavePlaytest(ctx context.Context, p PlaytestArchive) (string, error) {
	data, err := json.Marshal(p.Report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	rec := &PlaytestRecord{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		TestCount: p.TestCount,
		Grade:     p.Grade,
		Score:     p.Score,
		Consensus: p.Consensus,
		Report:    string(data),
	}
	if err := a.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", fmt.Errorf("archive playtest: %w", err)
	}

	a.log.Debug("playtest archived", zap.String("id", rec.ID), zap.String("grade", p.Grade))
	return rec.ID, nil
}

// Conversations returns the most recent archived conversations, newest
// first. Intended for offline inspection tools, not the engine itself.
func (a *Archive) Conversations(ctx context.Context, limit int) ([]ConversationRecord, error) {
	var recs []ConversationRecord
	err := a.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&recs).Error
	return recs, err
}

// Playtests returns the most recent archived swarm runs, newest first.
func (a *Archive) Playtests(ctx context.Context, limit int) ([]PlaytestRecord, error) {
	var recs []PlaytestRecord
	err := a.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&recs).Error
	return recs, err
}

// Close releases the underlying connection.
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
