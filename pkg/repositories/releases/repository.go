package releases

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mymediarelease-backend/pkg/models/db"
)

type repository struct {
	db *pgxpool.Pool
}

type Repository interface {
	CreatePublish(ctx context.Context, p db.Publish) error
	MarkSubmitted(ctx context.Context, id, metadataURL, txHash string) error
	MarkDeployed(ctx context.Context, id, contractAddress, notificationID string) error
	MarkFailed(ctx context.Context, id, reason string) error
	GetPublish(ctx context.Context, id string) (*db.Publish, error)
	GetCreatorPublishes(ctx context.Context, creator string, limit int) ([]db.Publish, error)

	GetAwaitingIndex(ctx context.Context, limit int) ([]db.Publish, error)
	MarkIndexed(ctx context.Context, ids []string) (int64, error)
	MarkChecked(ctx context.Context, ids []string) (int64, error)
	MarkNotIndexed(ctx context.Context, ids []string, reason string) (int64, error)
	RemoveOld(ctx context.Context, olderThan time.Duration) (int64, error)
}

const publishColumns = `
	id::text, creator, artist, name, status, metadata_url, tx_hash, contract_address,
	fail_reason, notification_id,
	EXTRACT(EPOCH FROM created_at)::BIGINT, EXTRACT(EPOCH FROM updated_at)::BIGINT`

func (r *repository) CreatePublish(ctx context.Context, p db.Publish) error {
	query := `
		INSERT INTO releases.publishes (id, creator, artist, name, status, created_at, updated_at)
		VALUES ($1, LOWER($2), $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.Creator, p.Artist, p.Name, db.PublishStatusStoring)
	return err
}

func (r *repository) MarkSubmitted(ctx context.Context, id, metadataURL, txHash string) error {
	query := `
		UPDATE releases.publishes
		SET status = $2,
			metadata_url = $3,
			tx_hash = $4,
			updated_at = NOW()
		WHERE id = $1;
	`
	_, err := r.db.Exec(ctx, query, id, db.PublishStatusSubmitted, metadataURL, txHash)
	return err
}

func (r *repository) MarkDeployed(ctx context.Context, id, contractAddress, notificationID string) error {
	query := `
		UPDATE releases.publishes
		SET status = $2,
			contract_address = LOWER($3),
			notification_id = $4,
			updated_at = NOW()
		WHERE id = $1;
	`
	_, err := r.db.Exec(ctx, query, id, db.PublishStatusDeployed, contractAddress, notificationID)
	return err
}

func (r *repository) MarkFailed(ctx context.Context, id, reason string) error {
	query := `
		UPDATE releases.publishes
		SET status = $2,
			fail_reason = $3,
			updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($4, $5);
	`
	_, err := r.db.Exec(ctx, query, id, db.PublishStatusFailed, reason, db.PublishStatusDeployed, db.PublishStatusIndexed)
	return err
}

func (r *repository) GetPublish(ctx context.Context, id string) (*db.Publish, error) {
	query := `SELECT ` + publishColumns + `
		FROM releases.publishes
		WHERE id = $1;
	`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}

	p, err := pgx.CollectOneRow(rows, scanPublish)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}

func (r *repository) GetCreatorPublishes(ctx context.Context, creator string, limit int) ([]db.Publish, error) {
	query := `SELECT ` + publishColumns + `
		FROM releases.publishes
		WHERE creator = LOWER($1)
		ORDER BY created_at DESC
		LIMIT $2;
	`

	rows, err := r.db.Query(ctx, query, creator, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanPublish)
}

// GetAwaitingIndex returns deployed publishes, least recently checked first.
// Publishes never checked come before all others.
func (r *repository) GetAwaitingIndex(ctx context.Context, limit int) ([]db.Publish, error) {
	query := `SELECT ` + publishColumns + `
		FROM releases.publishes
		WHERE status = $1
		ORDER BY checked_at NULLS FIRST, updated_at
		LIMIT $2;
	`

	rows, err := r.db.Query(ctx, query, db.PublishStatusDeployed, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanPublish)
}

func (r *repository) MarkIndexed(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE releases.publishes
		SET status = $2,
			updated_at = NOW()
		WHERE id = ANY($1::uuid[]) AND status = $3;
	`

	tag, err := r.db.Exec(ctx, query, ids, db.PublishStatusIndexed, db.PublishStatusDeployed)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// MarkChecked moves deployed publishes to the back of the reconcile queue.
// updated_at keeps the deploy time.
func (r *repository) MarkChecked(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE releases.publishes
		SET checked_at = NOW()
		WHERE id = ANY($1::uuid[]) AND status = $2;
	`

	tag, err := r.db.Exec(ctx, query, ids, db.PublishStatusDeployed)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// MarkNotIndexed fails deployed publishes the index never picked up.
func (r *repository) MarkNotIndexed(ctx context.Context, ids []string, reason string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE releases.publishes
		SET status = $2,
			fail_reason = $3,
			updated_at = NOW()
		WHERE id = ANY($1::uuid[]) AND status = $4;
	`

	tag, err := r.db.Exec(ctx, query, ids, db.PublishStatusFailed, reason, db.PublishStatusDeployed)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// RemoveOld drops finished attempts, indexed or failed, untouched for olderThan.
func (r *repository) RemoveOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		DELETE FROM releases.publishes
		WHERE status IN ($1, $2)
			AND updated_at < NOW() - make_interval(secs => $3);
	`

	tag, err := r.db.Exec(ctx, query, db.PublishStatusIndexed, db.PublishStatusFailed, olderThan.Seconds())
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func scanPublish(row pgx.CollectableRow) (db.Publish, error) {
	var p db.Publish
	err := row.Scan(
		&p.ID, &p.Creator, &p.Artist, &p.Name, &p.Status, &p.MetadataURL, &p.TxHash, &p.ContractAddress,
		&p.FailReason, &p.NotificationID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{
		db: db,
	}
}
