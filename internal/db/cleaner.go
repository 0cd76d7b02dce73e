package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartRevokedTokenCleaner periodically deletes revocation entries for
// tokens that have expired on their own. It stops when ctx is done.
func StartRevokedTokenCleaner(
	ctx context.Context,
	db *sql.DB,
	dialect Dialect,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	query := dialect.Rebind(`DELETE FROM revoked_tokens WHERE expires_at < $1`)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := db.ExecContext(ctx, query, time.Now().UTC())
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Error("failed to clean revoked tokens", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned revoked tokens", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
