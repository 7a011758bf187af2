// Package numbering issues human-readable document numbers of the form
// PREFIX-YYYYMMDD-NNNN.
package numbering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kitchenledger-backend/pkg/errors"
)

const defaultSalesPrefix = "OUT"

// Request identifies the counter to advance. OutletCode scopes sales order
// numbers and is ignored for every other document type.
type Request struct {
	OrganizationID uuid.UUID
	Type           enums.DocumentType
	OutletCode     string
}

// Generator hands out the next number inside the caller's transaction.
type Generator interface {
	Next(ctx context.Context, tx *gorm.DB, req Request) (string, error)
}

type service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService builds a generator dating numbers in loc.
func NewService(repo Repository, loc *time.Location) (Generator, error) {
	if repo == nil {
		return nil, fmt.Errorf("numbering repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{repo: repo, loc: loc, now: time.Now}, nil
}

func (s *service) Next(ctx context.Context, tx *gorm.DB, req Request) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "transaction required for document numbering")
	}
	if !req.Type.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid document type")
	}

	prefix, scope := prefixFor(req)
	day := s.now().In(s.loc).Format("20060102")
	seq, err := s.repo.WithTx(tx).Increment(ctx, models.DocumentSequence{
		OrganizationID: req.OrganizationID,
		DocumentType:   req.Type,
		Scope:          scope,
		SeqDate:        day,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance document sequence")
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day, seq), nil
}

func prefixFor(req Request) (prefix, scope string) {
	if req.Type != enums.DocumentSalesOrder {
		return req.Type.Prefix(), ""
	}
	code := strings.ToUpper(strings.TrimSpace(req.OutletCode))
	if code == "" {
		code = defaultSalesPrefix
	}
	return code, code
}
