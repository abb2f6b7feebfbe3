package disputes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/internal/orders"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/mealmesh/mealmesh-backend/pkg/types"
	"gorm.io/gorm"
)

// Actor identifies the caller for scoping checks.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CreateInput files a dispute against an order.
type CreateInput struct {
	UserID      uuid.UUID
	OrderID     uuid.UUID
	Subject     string
	Description string
}

// ResolveInput is the admin's settlement decision.
type ResolveInput struct {
	AdminID           uuid.UUID
	DisputeID         uuid.UUID
	Resolution        enums.DisputeResolution
	Notes             string
	RefundAmountCents *int64
}

// statusTransitions covers triage moves. Resolved is reachable only through
// Resolve, which runs the refund side effects.
var statusTransitions = map[enums.DisputeStatus][]enums.DisputeStatus{
	enums.DisputeStatusOpen:        {enums.DisputeStatusUnderReview, enums.DisputeStatusEscalated, enums.DisputeStatusClosed},
	enums.DisputeStatusUnderReview: {enums.DisputeStatusEscalated, enums.DisputeStatusClosed},
	enums.DisputeStatusEscalated:   {enums.DisputeStatusClosed},
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	storesRepo stores.Repository
	refunder   orders.PaymentRefunder
	tx         txRunner
	now        func() time.Time
}

// NewService builds the disputes service.
func NewService(repo Repository, ordersRepo orders.Repository, storesRepo stores.Repository, refunder orders.PaymentRefunder, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if storesRepo == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if refunder == nil {
		return nil, fmt.Errorf("payment refunder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		storesRepo: storesRepo,
		refunder:   refunder,
		tx:         tx,
		now:        time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Dispute, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject and description required")
	}

	order, err := s.ordersRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}

	dispute := &models.Dispute{
		OrderID:     order.ID,
		UserID:      order.UserID,
		StoreID:     order.StoreID,
		Subject:     subject,
		Description: description,
		Status:      enums.DisputeStatusOpen,
		Timeline: []types.DisputeEvent{{
			At:     s.now().UTC(),
			Actor:  "customer",
			Action: "opened",
			Note:   subject,
		}},
	}
	created, err := s.repo.Create(ctx, dispute)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating dispute")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, actor Actor, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.load(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, dispute); err != nil {
		return nil, err
	}
	return dispute, nil
}

// AddComment appends a timeline entry. Closed and resolved disputes are
// read only.
func (s *service) AddComment(ctx context.Context, actor Actor, disputeID uuid.UUID, note string) (*models.Dispute, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment required")
	}

	dispute, err := s.load(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, dispute); err != nil {
		return nil, err
	}
	if dispute.Status == enums.DisputeStatusResolved || dispute.Status == enums.DisputeStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is settled")
	}

	dispute.Timeline = append(dispute.Timeline, types.DisputeEvent{
		At:     s.now().UTC(),
		Actor:  string(actor.Role),
		Action: "comment",
		Note:   note,
	})
	if err := s.repo.Save(ctx, dispute); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving dispute")
	}
	return dispute, nil
}

func (s *service) UpdateStatus(ctx context.Context, adminID, disputeID uuid.UUID, status enums.DisputeStatus) (*models.Dispute, error) {
	if !status.IsValid() || status == enums.DisputeStatusResolved {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute status")
	}

	dispute, err := s.load(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !canTransition(dispute.Status, status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move dispute from %s to %s", dispute.Status, status))
	}

	dispute.Status = status
	dispute.Timeline = append(dispute.Timeline, types.DisputeEvent{
		At:     s.now().UTC(),
		Actor:  string(enums.UserRoleAdmin),
		Action: "status_changed",
		Note:   string(status),
	})
	if err := s.repo.Save(ctx, dispute); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving dispute")
	}
	return dispute, nil
}

// Resolve settles the dispute. Refund resolutions reverse the order's
// payment inside the same transaction.
func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error) {
	if !input.Resolution.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute resolution")
	}
	if input.Resolution == enums.DisputeResolutionRefundPartial {
		if input.RefundAmountCents == nil || *input.RefundAmountCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "partial refunds need a positive amount")
		}
	}

	dispute, err := s.load(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status == enums.DisputeStatusResolved || dispute.Status == enums.DisputeStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "dispute already settled")
	}

	now := s.now().UTC()
	resolution := input.Resolution
	notes := strings.TrimSpace(input.Notes)

	dispute.Status = enums.DisputeStatusResolved
	dispute.Resolution = &resolution
	dispute.ResolvedBy = &input.AdminID
	dispute.ResolvedAt = &now
	if notes != "" {
		dispute.ResolutionNotes = &notes
	}
	if resolution == enums.DisputeResolutionRefundPartial {
		dispute.RefundAmountCents = input.RefundAmountCents
	}
	dispute.Timeline = append(dispute.Timeline, types.DisputeEvent{
		At:     now,
		Actor:  string(enums.UserRoleAdmin),
		Action: "resolved",
		Note:   string(resolution),
	})

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving dispute")
		}
		if resolution.IsRefund() {
			reason := "dispute " + string(resolution)
			if err := s.refunder.RefundForOrderInTx(ctx, tx, dispute.OrderID, reason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Dispute, *pagination.Page, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	page = page.Normalize()
	disputes, total, err := s.repo.List(ctx, ListFilter{UserID: &userID}, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing disputes")
	}
	meta := pagination.NewPage(page, total)
	return disputes, &meta, nil
}

func (s *service) ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, page pagination.Params) ([]models.Dispute, *pagination.Page, error) {
	store, err := s.storesRepo.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	if store.OwnerID != ownerID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "store not owned by caller")
	}

	page = page.Normalize()
	disputes, total, err := s.repo.List(ctx, ListFilter{StoreID: &storeID}, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing disputes")
	}
	meta := pagination.NewPage(page, total)
	return disputes, &meta, nil
}

func (s *service) ListAll(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Dispute, *pagination.Page, error) {
	page = page.Normalize()
	disputes, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing disputes")
	}
	meta := pagination.NewPage(page, total)
	return disputes, &meta, nil
}

func (s *service) authorize(ctx context.Context, actor Actor, dispute *models.Dispute) error {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return nil
	case enums.UserRoleCustomer:
		if dispute.UserID == actor.UserID {
			return nil
		}
	case enums.UserRoleStoreOwner:
		store, err := s.storesRepo.FindByID(ctx, dispute.StoreID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
		}
		if store.OwnerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "dispute belongs to another user")
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	dispute, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading dispute")
	}
	return dispute, nil
}

func canTransition(from, to enums.DisputeStatus) bool {
	for _, candidate := range statusTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
