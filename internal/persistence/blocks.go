package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ProcessedBlock is one row of the block log. OutputHash is the chain tip
// after the block's messages were folded in.
type ProcessedBlock struct {
	Height     uint32
	BlockTime  time.Time
	EventCount int
	OutputHash []byte
}

// BlockLog records which block heights have been committed. A block is
// recorded in the same transaction as its writes, so a recorded height is
// exactly a height whose effects are visible.
type BlockLog struct {
	db *sql.DB
}

func NewBlockLog(db *sql.DB) *BlockLog {
	return &BlockLog{db: db}
}

// LastProcessed returns the highest committed block, or ok=false when
// nothing has been processed yet.
func (l *BlockLog) LastProcessed(ctx context.Context) (ProcessedBlock, bool, error) {
	var (
		b      ProcessedBlock
		height int64
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT height, block_time, event_count, output_hash
		 FROM processed_blocks ORDER BY height DESC LIMIT 1`,
	).Scan(&height, &b.BlockTime, &b.EventCount, &b.OutputHash)
	if errors.Is(err, sql.ErrNoRows) {
		return ProcessedBlock{}, false, nil
	}
	if err != nil {
		return ProcessedBlock{}, false, fmt.Errorf("last processed block: %w", err)
	}
	b.Height = uint32(height)
	return b, true, nil
}

// RecordBlock marks b as processed inside tx.
func (l *BlockLog) RecordBlock(ctx context.Context, tx Tx, b ProcessedBlock) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO processed_blocks (height, block_time, event_count, output_hash) VALUES ($1, $2, $3, $4)`,
		b.Height, b.BlockTime, b.EventCount, b.OutputHash,
	)
	if err != nil {
		return fmt.Errorf("record block %d: %w", b.Height, err)
	}
	return nil
}
