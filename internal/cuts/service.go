package cuts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlas-ops/atlas-ops/internal/notify"
	"github.com/atlas-ops/atlas-ops/internal/orders"
	"github.com/atlas-ops/atlas-ops/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, orderID int64) (orders.WorkOrder, error)
	Concepts(ctx context.Context, orderID int64, period shared.Period) ([]Concept, error)
	GetCut(ctx context.Context, cutID int64) (Cut, []CutDetail, error)
	ListCuts(ctx context.Context, orderID int64) ([]Cut, error)
	SetCutStatus(ctx context.Context, cutID int64, from, to CutStatus) error
}

// TxRepository exposes the operations available inside the cut
// transaction. Line rows returned by ConceptsForUpdate are locked until
// commit.
type TxRepository interface {
	LockOrder(ctx context.Context, orderID int64) (orders.WorkOrder, error)
	GetOrder(ctx context.Context, orderID int64) (orders.WorkOrder, error)
	ConceptsForUpdate(ctx context.Context, orderID int64, period shared.Period) ([]Concept, error)
	NextCutSequence(ctx context.Context, orderID int64) (int, error)
	InsertCut(ctx context.Context, cut Cut) (int64, error)
	InsertCutDetail(ctx context.Context, detail CutDetail) error
	SetCutChild(ctx context.Context, cutID, childOrderID int64) error
	NextSplitIndex(ctx context.Context, rootID int64) (int, error)
	InsertChildOrder(ctx context.Context, o orders.WorkOrder) (int64, error)
	InsertChildLine(ctx context.Context, line orders.ServiceLine) (int64, error)
	InsertChildSubItem(ctx context.Context, sub orders.ServiceSubItem) error
	InsertChildItem(ctx context.Context, item orders.LegacyItem) (int64, error)
	UpdateOrderTotals(ctx context.Context, orderID int64, subtotal, tax, total float64) error
	SetSplitStatus(ctx context.Context, orderID int64, status orders.SplitStatus) error
	SetWorkflowStatus(ctx context.Context, orderID int64, status orders.WorkOrderStatus) error
	InitQualityResult(ctx context.Context, orderID int64) error
	InsertOutbox(ctx context.Context, msg notify.Message) error
}

// AuditPort records billing actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DispatcherPort hands committed outbox messages to the queue.
type DispatcherPort interface {
	Dispatch(ctx context.Context, outboxIDs []string)
}

// Service orchestrates the partial-billing flow.
type Service struct {
	repo        RepositoryPort
	dispatcher  DispatcherPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	cache       *ListCache
	logger      *slog.Logger
	baseURL     string
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	BaseURL string
}

// NewService builds Service. Dispatcher, audit, idempotency and cache
// are optional.
func NewService(repo RepositoryPort, dispatcher DispatcherPort, audit AuditPort, idem *shared.IdempotencyStore, cache *ListCache, logger *slog.Logger, cfg ServiceConfig) *Service {
	return &Service{
		repo:        repo,
		dispatcher:  dispatcher,
		audit:       audit,
		idempotency: idem,
		cache:       cache,
		logger:      logger,
		baseURL:     cfg.BaseURL,
	}
}

// CutDetailInput is one requested (line, quantity) pair.
type CutDetailInput struct {
	Line     orders.LineRef
	Quantity float64
}

// CreateCutInput describes a cut-creation request.
type CreateCutInput struct {
	OrderID    int64
	Period     shared.Period
	Details    []CutDetailInput
	SpawnChild bool
	ActorID    int64
	// RequestID guards against duplicate submissions. Optional.
	RequestID string
}

const (
	createAttempts = 3
	retryBackoff   = 50 * time.Millisecond
)

// CreateCut validates and persists a billing cut in one serializable
// transaction: line rows are locked, aggregates recomputed under the
// lock, the cut and its detail snapshots written, the remainder child
// order spawned and the parent's statuses coordinated. Notifications go
// to the outbox inside the transaction and are dispatched after commit,
// best-effort.
func (s *Service) CreateCut(ctx context.Context, input CreateCutInput) (*CutResult, error) {
	if len(input.Details) == 0 {
		return nil, ErrEmptyCut
	}

	idemKey := ""
	inserted := false
	if input.RequestID != "" && s.idempotency != nil {
		idemKey = "CUT:" + input.RequestID
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "cuts.create"); err != nil {
			return nil, err
		}
		inserted = true
	}

	cutID, outboxIDs, err := s.createCutWithRetry(ctx, input)
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return nil, err
	}

	// Post-commit side effects: never fail the committed cut.
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, outboxIDs)
	}
	s.recordAudit(ctx, input.ActorID, "CUT_CREATE", cutID, map[string]any{"order_id": input.OrderID})
	if s.cache != nil {
		s.cache.Invalidate(ctx, input.OrderID)
	}

	return s.GetCut(ctx, cutID)
}

// createCutWithRetry retries the whole transaction on folio collisions
// and serialization conflicts, a small bounded number of times. Nothing
// is committed on a failed attempt, so the retry starts clean.
func (s *Service) createCutWithRetry(ctx context.Context, input CreateCutInput) (int64, []string, error) {
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
		cutID, outboxIDs, err := s.createCutOnce(ctx, input)
		if err == nil {
			return cutID, outboxIDs, nil
		}
		if !errors.Is(err, ErrFolioTaken) && !IsSerializationFailure(err) {
			return 0, nil, err
		}
		s.logger.Warn("cut creation conflict, retrying",
			slog.Int64("order_id", input.OrderID),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
		lastErr = err
	}
	return 0, nil, fmt.Errorf("cut creation retries exhausted: %w", lastErr)
}

func (s *Service) createCutOnce(ctx context.Context, input CreateCutInput) (int64, []string, error) {
	var cutID int64
	var outboxIDs []string

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrder(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order.SplitStatus == orders.SplitCanceled {
			return &InputError{Reason: fmt.Sprintf("order %s is canceled", order.Folio)}
		}

		concepts, err := tx.ConceptsForUpdate(ctx, input.OrderID, input.Period)
		if err != nil {
			return err
		}
		byRef := make(map[orders.LineRef]Concept, len(concepts))
		for _, c := range concepts {
			byRef[c.Ref] = c
		}

		var details []CutDetail
		cutNow := make(map[orders.LineRef]float64)
		var total float64
		for _, req := range input.Details {
			c, ok := byRef[req.Line]
			if !ok {
				return &InputError{Reason: fmt.Sprintf("line %s/%d does not belong to order %s", req.Line.Kind, req.Line.ID, order.Folio)}
			}
			if req.Quantity <= 0 {
				continue
			}
			// A line may appear on several detail rows; every bound is
			// checked against what this cut has already claimed for it.
			if available := c.ExecutedNotCut() - cutNow[c.Ref]; req.Quantity > available {
				return &OverCutError{Line: c.Ref, Label: c.Label, Requested: req.Quantity, Available: available}
			}
			if claimed := cutNow[c.Ref] + req.Quantity; claimed > c.Contracted {
				return &OverContractError{Line: c.Ref, Label: c.Label, Requested: claimed, Contracted: c.Contracted}
			}
			amount := round2(req.Quantity * c.UnitPrice)
			total += amount
			cutNow[c.Ref] += req.Quantity
			details = append(details, CutDetail{
				Line:      c.Ref,
				Label:     c.Label,
				Quantity:  req.Quantity,
				UnitPrice: c.UnitPrice,
				Amount:    amount,
			})
		}
		if len(details) == 0 {
			return ErrEmptyCut
		}

		seq, err := tx.NextCutSequence(ctx, input.OrderID)
		if err != nil {
			return err
		}
		cut := Cut{
			OrderID:     input.OrderID,
			Folio:       CutFolio(order.Folio, seq),
			PeriodStart: input.Period.Start,
			PeriodEnd:   input.Period.End,
			Status:      CutStatusReadyToBill,
			TotalAmount: round2(total),
			CreatedBy:   input.ActorID,
		}
		cutID, err = tx.InsertCut(ctx, cut)
		if err != nil {
			return err
		}
		for i := range details {
			details[i].CutID = cutID
			if err := tx.InsertCutDetail(ctx, details[i]); err != nil {
				return err
			}
		}

		hasRemainder := false
		for _, c := range concepts {
			if c.Contracted-(c.CutPreviously+cutNow[c.Ref]) > remainderEpsilon {
				hasRemainder = true
				break
			}
		}

		var child *orders.WorkOrder
		if input.SpawnChild {
			child, err = s.spawnChild(ctx, tx, order, concepts, cutNow, input.ActorID)
			if err != nil {
				return err
			}
			if child != nil {
				if err := tx.SetCutChild(ctx, cutID, child.ID); err != nil {
					return err
				}
			}
		}

		if err := s.applyParentChanges(ctx, tx, order, hasRemainder); err != nil {
			return err
		}

		msgs := s.buildNotifications(order, cut, child)
		for _, m := range msgs {
			if err := tx.InsertOutbox(ctx, m); err != nil {
				return err
			}
			outboxIDs = append(outboxIDs, m.ID)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return cutID, outboxIDs, nil
}

func (s *Service) applyParentChanges(ctx context.Context, tx TxRepository, order orders.WorkOrder, hasRemainder bool) error {
	ch := coordinateParent(order, hasRemainder)
	if ch.SplitChanged {
		if err := tx.SetSplitStatus(ctx, order.ID, ch.SplitStatus); err != nil {
			return err
		}
	}
	if ch.AdvanceWorkflow {
		if err := tx.SetWorkflowStatus(ctx, order.ID, orders.StatusCompleted); err != nil {
			return err
		}
	}
	if ch.InitQuality {
		if err := tx.InitQualityResult(ctx, order.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) buildNotifications(order orders.WorkOrder, cut Cut, child *orders.WorkOrder) []notify.Message {
	link := fmt.Sprintf("%s/orders/%d/cuts", s.baseURL, order.ID)
	body := fmt.Sprintf("Cut %s for order %s is ready to bill (total %.2f).", cut.Folio, order.Folio, cut.TotalAmount)
	if child != nil {
		body += fmt.Sprintf(" Remainder carried into order %s.", child.Folio)
	}
	msgs := []notify.Message{
		notify.ForRole("billing", order.CentroID, "Billing cut ready", body, link),
	}
	if order.TeamLeadID != 0 {
		msgs = append(msgs, notify.ForUser(order.TeamLeadID, "Billing cut created", body, link))
	}
	return msgs
}

// GetCut returns the full cut result.
func (s *Service) GetCut(ctx context.Context, cutID int64) (*CutResult, error) {
	cut, details, err := s.repo.GetCut(ctx, cutID)
	if err != nil {
		return nil, err
	}
	return s.buildResult(ctx, cut, details)
}

// ListCuts returns all cuts of an order, newest first.
func (s *Service) ListCuts(ctx context.Context, orderID int64) ([]CutResult, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, orderID); ok {
			return cached, nil
		}
	}
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	cuts, err := s.repo.ListCuts(ctx, orderID)
	if err != nil {
		return nil, err
	}
	results := make([]CutResult, 0, len(cuts))
	for _, c := range cuts {
		_, details, err := s.repo.GetCut(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		res, err := s.buildResult(ctx, c, details)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	if s.cache != nil {
		s.cache.Set(ctx, orderID, results)
	}
	return results, nil
}

// UpdateStatus applies a cut status transition. Voiding a cut does not
// reopen the parent order or remove the spawned child: operators handle
// the remainder manually.
func (s *Service) UpdateStatus(ctx context.Context, cutID int64, target CutStatus, actorID int64) (*CutResult, error) {
	cut, _, err := s.repo.GetCut(ctx, cutID)
	if err != nil {
		return nil, err
	}
	if err := ValidateCutTransition(cut.Status, target); err != nil {
		return nil, err
	}
	if err := s.repo.SetCutStatus(ctx, cutID, cut.Status, target); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "CUT_STATUS", cutID, map[string]any{"from": string(cut.Status), "to": string(target)})
	if s.cache != nil {
		s.cache.Invalidate(ctx, cut.OrderID)
	}
	return s.GetCut(ctx, cutID)
}

func (s *Service) buildResult(ctx context.Context, cut Cut, details []CutDetail) (*CutResult, error) {
	res := &CutResult{
		ID:          cut.ID,
		Folio:       cut.Folio,
		OrderID:     cut.OrderID,
		PeriodStart: cut.PeriodStart,
		PeriodEnd:   cut.PeriodEnd,
		Status:      cut.Status,
		TotalAmount: cut.TotalAmount,
		CreatedBy:   cut.CreatedBy,
		Details:     details,
		CreatedAt:   cut.CreatedAt,
	}
	if res.Details == nil {
		res.Details = []CutDetail{}
	}
	if cut.ChildOrderID != nil {
		child, err := s.repo.GetOrder(ctx, *cut.ChildOrderID)
		if err != nil {
			return nil, fmt.Errorf("get child order: %w", err)
		}
		res.ChildOrder = &ChildOrderRef{ID: child.ID, Folio: child.Folio, SplitStatus: child.SplitStatus}
	}
	return res, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, cutID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "cut",
		EntityID: fmt.Sprintf("%d", cutID),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}
