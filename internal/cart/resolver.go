package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome tags the result of a find-or-create attempt.
type Outcome int

const (
	Existing Outcome = iota
	Created
	Conflict
)

func (o Outcome) String() string {
	switch o {
	case Existing:
		return "existing"
	case Created:
		return "created"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Resolution is the cart a request acts on, plus what happened while resolving it.
type Resolution struct {
	Cart *Cart
	// SessionToken is the token in effect; it differs from the inbound one when a token was minted.
	SessionToken string
	Minted       bool
	Outcome      Outcome
	Merged       bool
}

type Resolver struct {
	store  Store
	logger *zap.Logger
	newID  func() string
}

func NewResolver(store Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger.Named("cart.resolver"), newID: uuid.NewString}
}

// Resolve maps an identity to exactly one cart, creating it lazily. The first
// time a user's cart comes into existence, the anonymous cart held under the
// request's session token is merged into it and deleted.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (Resolution, error) {
	res := Resolution{SessionToken: id.SessionToken}

	if !id.Authenticated() {
		if res.SessionToken == "" {
			res.SessionToken = r.newID()
			res.Minted = true
		}
		c, outcome, err := r.findOrCreate(ctx, &Cart{SessionKey: res.SessionToken})
		if err != nil {
			return Resolution{}, err
		}
		res.Cart, res.Outcome = c, outcome
		return res, r.loadLines(ctx, res.Cart)
	}

	c, outcome, err := r.findOrCreate(ctx, &Cart{UserID: id.UserID, SessionKey: id.SessionToken})
	if err != nil {
		return Resolution{}, err
	}
	res.Cart, res.Outcome = c, outcome

	if outcome == Created && id.SessionToken != "" {
		merged, err := r.merge(ctx, id.SessionToken, c)
		if err != nil {
			return Resolution{}, err
		}
		res.Merged = merged
	}

	return res, r.loadLines(ctx, res.Cart)
}

// Lookup finds the cart an identity would resolve to without creating one. A
// user without a cart sees the anonymous cart that resolving would merge. A nil
// cart with a nil error means there is nothing yet.
func (r *Resolver) Lookup(ctx context.Context, id Identity) (*Cart, error) {
	var (
		c   *Cart
		err = ErrCartNotFound
	)
	if id.Authenticated() {
		c, err = r.store.FindUserCart(ctx, id.UserID)
	}
	if errors.Is(err, ErrCartNotFound) && id.SessionToken != "" {
		c, err = r.store.FindSessionCart(ctx, id.SessionToken)
	}
	if errors.Is(err, ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	return c, r.loadLines(ctx, c)
}

// findOrCreate retries once when creation loses a race against a concurrent
// request for the same identity.
func (r *Resolver) findOrCreate(ctx context.Context, want *Cart) (*Cart, Outcome, error) {
	for attempt := 0; attempt < 2; attempt++ {
		c, outcome, err := r.tryFindOrCreate(ctx, want)
		if err != nil {
			return nil, outcome, err
		}
		if outcome != Conflict {
			return c, outcome, nil
		}
		r.logger.Info("cart creation conflict",
			zap.String("user_id", want.UserID),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, Conflict, ErrConflict
}

func (r *Resolver) tryFindOrCreate(ctx context.Context, want *Cart) (*Cart, Outcome, error) {
	var (
		c   *Cart
		err error
	)
	if want.UserID != "" {
		c, err = r.store.FindUserCart(ctx, want.UserID)
	} else {
		c, err = r.store.FindSessionCart(ctx, want.SessionKey)
	}
	switch {
	case err == nil:
		return c, Existing, nil
	case !errors.Is(err, ErrCartNotFound):
		return nil, Existing, fmt.Errorf("find cart: %w", err)
	}

	created := &Cart{ID: r.newID(), UserID: want.UserID, SessionKey: want.SessionKey}
	err = r.store.CreateCart(ctx, created)
	if errors.Is(err, ErrConflict) {
		return nil, Conflict, nil
	}
	if err != nil {
		return nil, Created, fmt.Errorf("create cart: %w", err)
	}
	return created, Created, nil
}

// merge moves every line of the anonymous cart keyed by sessionKey into target
// and then deletes the anonymous cart. A missing anonymous cart is a no-op.
func (r *Resolver) merge(ctx context.Context, sessionKey string, target *Cart) (bool, error) {
	anon, err := r.store.FindSessionCart(ctx, sessionKey)
	if errors.Is(err, ErrCartNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find session cart: %w", err)
	}
	if anon.ID == target.ID {
		return false, nil
	}

	lines, err := r.store.Lines(ctx, anon.ID)
	if err != nil {
		return false, fmt.Errorf("load session cart lines: %w", err)
	}
	for _, l := range lines {
		if _, _, err := r.store.AddQuantity(ctx, target.ID, l.ProductID, l.Quantity); err != nil {
			return false, fmt.Errorf("merge line %s: %w", l.ProductID, err)
		}
	}

	if err := r.store.DeleteCart(ctx, anon.ID); err != nil {
		return false, fmt.Errorf("delete session cart: %w", err)
	}

	r.logger.Info("merged session cart",
		zap.String("cart_id", target.ID),
		zap.String("session_cart_id", anon.ID),
		zap.Int("lines", len(lines)),
	)
	return true, nil
}

func (r *Resolver) loadLines(ctx context.Context, c *Cart) error {
	lines, err := r.store.Lines(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load cart lines: %w", err)
	}
	c.Lines = lines
	return nil
}
