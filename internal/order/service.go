package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"go.uber.org/zap"
)

// CartSource resolves the cart checkout reads from and invalidates its cached
// summary once the cart was emptied.
type CartSource interface {
	View(ctx context.Context, id cart.Identity) (cart.Resolution, error)
	Invalidate(id cart.Identity)
}

// Notifier sends the order confirmation.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
}

// Publisher announces a placed order to other services.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o *Order) error
}

const replayBatch = 500

type Service struct {
	repo      Repository
	carts     CartSource
	notifier  Notifier
	publisher Publisher
	logger    *zap.Logger
}

func NewService(repo Repository, carts CartSource, notifier Notifier, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		carts:     carts,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger.Named("order"),
	}
}

// Precheck reports the checkout precondition that fails for id, if any.
func (s *Service) Precheck(ctx context.Context, id cart.Identity) (cart.Resolution, error) {
	res, err := s.carts.View(ctx, id)
	if err != nil {
		return cart.Resolution{}, err
	}
	if res.Cart.IsEmpty() {
		return res, ErrEmptyCart
	}
	if !id.Authenticated() {
		return res, ErrUnauthenticated
	}
	return res, nil
}

// CheckoutDefaults pre-fills the checkout form with the customer details of the
// user's most recent order. Anonymous users and first-time buyers get an empty form.
func (s *Service) CheckoutDefaults(ctx context.Context, id cart.Identity) (CheckoutRequest, error) {
	if !id.Authenticated() {
		return CheckoutRequest{}, nil
	}
	last, err := s.repo.LatestByUser(ctx, id.UserID)
	if errors.Is(err, ErrNotFound) {
		return CheckoutRequest{}, nil
	}
	if err != nil {
		return CheckoutRequest{}, fmt.Errorf("load latest order: %w", err)
	}
	return CheckoutRequest{
		CustomerName:    last.CustomerName,
		CustomerEmail:   last.CustomerEmail,
		CustomerPhone:   last.CustomerPhone,
		DeliveryAddress: last.DeliveryAddress,
	}, nil
}

// PlaceOrder converts the identity's cart into a pending order and empties the
// cart. Confirmation and event publishing happen after commit and never fail
// the order.
func (s *Service) PlaceOrder(ctx context.Context, id cart.Identity, req CheckoutRequest) (*Order, error) {
	res, err := s.Precheck(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	o := &Order{
		UserID:          id.UserID,
		CartID:          res.Cart.ID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	}
	if err := s.repo.Place(ctx, o); err != nil {
		if errors.Is(err, ErrEmptyCart) {
			return nil, err
		}
		return nil, fmt.Errorf("place order: %w", err)
	}

	s.carts.Invalidate(id)
	s.logger.Info("order placed",
		zap.String("order_number", o.Number),
		zap.String("user_id", o.UserID),
		zap.String("total", o.Total.StringFixed(2)),
		zap.Int("items", o.TotalItems()),
	)

	s.afterCommit(ctx, o)
	return o, nil
}

func (s *Service) afterCommit(ctx context.Context, o *Order) {
	// the request may already be cancelled; best-effort work gets its own deadline
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(bg, o); err != nil {
			s.logger.Warn("order confirmation failed", zap.String("order_number", o.Number), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publish(bg, o); err != nil {
			s.logger.Warn("publish OrderPlaced failed, left for replay",
				zap.String("order_number", o.Number),
				zap.Int64("sequence", o.EventSequence),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) publish(ctx context.Context, o *Order) error {
	if err := s.publisher.PublishOrderPlaced(ctx, o); err != nil {
		return err
	}
	return s.repo.MarkEventPublished(ctx, o.ID)
}

// RepublishPending publishes OrderPlaced for orders whose event never reached
// the broker, reusing each order's reserved sequence. It stops at the first
// failure so a partition is never published out of order.
func (s *Service) RepublishPending(ctx context.Context) (int, error) {
	if s.publisher == nil {
		return 0, nil
	}

	pending, err := s.repo.ListUnpublished(ctx, replayBatch)
	if err != nil {
		return 0, err
	}

	for i := range pending {
		if err := s.publish(ctx, &pending[i]); err != nil {
			return i, fmt.Errorf("republish %s: %w", pending[i].Number, err)
		}
	}
	if len(pending) > 0 {
		s.logger.Info("republished OrderPlaced events", zap.Int("count", len(pending)))
	}
	return len(pending), nil
}

func (s *Service) ListOrders(ctx context.Context, id cart.Identity) ([]Order, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, id.UserID)
}

// GetOrder only returns orders owned by the identity; anything else is ErrNotFound.
func (s *Service) GetOrder(ctx context.Context, id cart.Identity, number string) (*Order, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return s.repo.GetByNumber(ctx, id.UserID, number)
}

func (s *Service) CancelOrder(ctx context.Context, id cart.Identity, number string) (*Order, error) {
	o, err := s.GetOrder(ctx, id, number)
	if err != nil {
		return nil, err
	}
	if !o.Cancellable() {
		return o, ErrNotCancellable
	}

	ok, err := s.repo.UpdateStatus(ctx, o.ID, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return o, ErrNotCancellable
	}
	o.Status = StatusCancelled

	s.logger.Info("order cancelled", zap.String("order_number", o.Number), zap.String("user_id", o.UserID))
	return o, nil
}
