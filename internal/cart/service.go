package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProductLookup is the slice of the catalog the cart needs.
type ProductLookup interface {
	GetPublishedProduct(ctx context.Context, productID string) (catalog.Product, error)
}

// Result describes a cart mutation for the response layer.
type Result struct {
	Resolution
	Message string
	Summary Summary
	// Line is the affected line when it still exists after the mutation.
	Line    *Line
	Removed bool
}

type Service struct {
	resolver *Resolver
	store    Store
	products ProductLookup
	cache    SummaryCache
	logger   *zap.Logger
	sfg      singleflight.Group
}

func NewService(store Store, products ProductLookup, cache SummaryCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{
		resolver: NewResolver(store, logger),
		store:    store,
		products: products,
		cache:    cache,
		logger:   logger.Named("cart"),
	}
}

func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// View resolves the identity's cart, creating it when needed.
func (s *Service) View(ctx context.Context, id Identity) (Resolution, error) {
	res, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return Resolution{}, err
	}
	if res.Outcome == Created {
		s.Invalidate(id)
	}
	return res, nil
}

func (s *Service) AddItem(ctx context.Context, id Identity, req AddItemRequest) (Result, error) {
	p, err := s.products.GetPublishedProduct(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrNotFound) {
		return Result{}, ErrProductUnavailable
	}
	if err != nil {
		return Result{}, fmt.Errorf("load product: %w", err)
	}

	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}

	res, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}

	line, inserted, err := s.store.AddQuantity(ctx, res.Cart.ID, p.ID, qty)
	if err != nil {
		return Result{}, err
	}

	var msg string
	if inserted {
		msg = addMessage(qty, p.Name)
	} else {
		msg = quantityChangeMessage(line.Quantity-qty, line.Quantity, p.Name)
	}

	out, err := s.finish(ctx, id, res, msg)
	if err != nil {
		return Result{}, err
	}
	out.Line = out.findLine(line.ID)
	return out, nil
}

// SetItemQuantity sets a line's quantity exactly; below 1 removes the line.
func (s *Service) SetItemQuantity(ctx context.Context, id Identity, req UpdateItemRequest) (Result, error) {
	res, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}

	line, err := s.store.GetLine(ctx, res.Cart.ID, req.LineID)
	if err != nil {
		return Result{}, err
	}

	var (
		msg     string
		removed bool
	)
	if req.Quantity < 1 {
		if err := s.store.DeleteLine(ctx, res.Cart.ID, line.ID); err != nil {
			return Result{}, err
		}
		msg, removed = removeMessage(line.ProductName), true
	} else {
		if err := s.store.SetQuantity(ctx, res.Cart.ID, line.ID, req.Quantity); err != nil {
			return Result{}, err
		}
		msg = quantityChangeMessage(line.Quantity, req.Quantity, line.ProductName)
	}

	out, err := s.finish(ctx, id, res, msg)
	if err != nil {
		return Result{}, err
	}
	out.Removed = removed
	if !removed {
		out.Line = out.findLine(line.ID)
	}
	return out, nil
}

func (s *Service) RemoveItem(ctx context.Context, id Identity, lineID string) (Result, error) {
	res, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}

	line, err := s.store.GetLine(ctx, res.Cart.ID, lineID)
	if err != nil {
		return Result{}, err
	}
	if err := s.store.DeleteLine(ctx, res.Cart.ID, line.ID); err != nil {
		return Result{}, err
	}

	out, err := s.finish(ctx, id, res, removeMessage(line.ProductName))
	if err != nil {
		return Result{}, err
	}
	out.Removed = true
	return out, nil
}

// Clear empties the cart but keeps it for reuse by the same identity.
func (s *Service) Clear(ctx context.Context, id Identity) (Result, error) {
	res, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return Result{}, err
	}

	msg := "Cart is already empty"
	if !res.Cart.IsEmpty() {
		if err := s.store.ClearLines(ctx, res.Cart.ID); err != nil {
			return Result{}, err
		}
		msg = "Cart cleared"
	}
	return s.finish(ctx, id, res, msg)
}

// Summary returns count and total without creating a cart. Concurrent misses
// for the same identity share one database read.
func (s *Service) Summary(ctx context.Context, id Identity) (Summary, error) {
	key := summaryKey(id)
	if key == "" {
		return Summary{}, nil
	}

	v, err, _ := s.sfg.Do(strings.Join(SummaryKeys(id), "|"), func() (any, error) {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("summary cache get failed", zap.String("key", key), zap.Error(err))
		}

		version, verr := s.cache.Version(ctx, key)
		if verr != nil {
			s.logger.Warn("summary cache version failed", zap.String("key", key), zap.Error(verr))
		}

		c, err := s.resolver.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		var sum Summary
		if c != nil {
			sum = c.Summary()
		}

		if verr == nil && cacheable(id, c) {
			s.storeSummary(ctx, key, version, sum)
		}
		return sum, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

// cacheable reports whether a looked-up cart may be cached under the identity's
// summary key. A signed-in user without a cart of their own sees the session's
// anonymous cart, which differs per browser and so is never stored under the
// user key.
func cacheable(id Identity, c *Cart) bool {
	if !id.Authenticated() {
		return true
	}
	return c != nil && c.UserID == id.UserID
}

func (s *Service) storeSummary(ctx context.Context, key string, version int64, sum Summary) {
	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	stored, err := s.cache.SetIfVersion(setCtx, key, version, sum)
	if err != nil {
		s.logger.Warn("summary cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !stored {
		s.logger.Debug("summary invalidated during read", zap.String("key", key))
	}
}

// Invalidate drops every cached summary the identity may be served from.
func (s *Service) Invalidate(id Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, SummaryKeys(id)...); err != nil {
		s.logger.Warn("summary cache invalidate failed", zap.Error(err))
	}
}

func (s *Service) finish(ctx context.Context, id Identity, res Resolution, msg string) (Result, error) {
	lines, err := s.store.Lines(ctx, res.Cart.ID)
	if err != nil {
		return Result{}, fmt.Errorf("reload cart lines: %w", err)
	}
	res.Cart.Lines = lines

	if res.Minted {
		id.SessionToken = res.SessionToken
	}
	s.Invalidate(id)

	return Result{Resolution: res, Message: msg, Summary: res.Cart.Summary()}, nil
}

func (r Result) findLine(lineID string) *Line {
	if r.Cart == nil {
		return nil
	}
	for i := range r.Cart.Lines {
		if r.Cart.Lines[i].ID == lineID {
			return &r.Cart.Lines[i]
		}
	}
	return nil
}

func addMessage(qty int, name string) string {
	if qty == 1 {
		return fmt.Sprintf("Added %s to cart", name)
	}
	return fmt.Sprintf("Added %d %s to cart", qty, name)
}

func quantityChangeMessage(oldQty, newQty int, name string) string {
	switch {
	case newQty > oldQty && newQty-oldQty == 1:
		return fmt.Sprintf("Added 1 more %s", name)
	case newQty > oldQty:
		return fmt.Sprintf("Added %d more %s", newQty-oldQty, name)
	case oldQty-newQty == 1:
		return fmt.Sprintf("Removed 1 %s", name)
	default:
		return fmt.Sprintf("Removed %d %s", oldQty-newQty, name)
	}
}

func removeMessage(name string) string {
	return fmt.Sprintf("Removed %s from cart", name)
}
