package numbering

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
)

// Repository advances per-day document counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Increment(ctx context.Context, key models.DocumentSequence) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a sequence repository to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Increment upserts the counter row and returns its new value. On Postgres
// the conflicting row stays locked until the caller's transaction ends, so
// concurrent creators for the same key take turns.
func (r *repository) Increment(ctx context.Context, key models.DocumentSequence) (int64, error) {
	row := key
	row.LastValue = 1
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "organization_id"},
				{Name: "document_type"},
				{Name: "scope"},
				{Name: "seq_date"},
			},
			DoUpdates: clause.Assignments(map[string]any{
				"last_value": gorm.Expr("document_sequences.last_value + 1"),
			}),
		}).
		Create(&row).Error
	if err != nil {
		return 0, err
	}

	var current models.DocumentSequence
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND document_type = ? AND scope = ? AND seq_date = ?",
			key.OrganizationID, key.DocumentType, key.Scope, key.SeqDate).
		First(&current).Error; err != nil {
		return 0, err
	}
	return current.LastValue, nil
}
