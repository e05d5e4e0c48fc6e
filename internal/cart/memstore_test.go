package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory Store enforcing the same uniqueness rules as the
// Postgres schema.
type memStore struct {
	mu       sync.Mutex
	carts    map[string]*Cart
	lines    map[string][]Line
	products map[string]catalog.Product
	seq      int
	clock    time.Time

	// createErrs are returned by successive CreateCart calls before any real insert.
	createErrs []error
	// onCreateConflict runs when a queued ErrConflict is returned, e.g. to persist the racing cart.
	onCreateConflict func(c *Cart)
}

func newMemStore(products ...catalog.Product) *memStore {
	s := &memStore{
		carts:    map[string]*Cart{},
		lines:    map[string][]Line{},
		products: map[string]catalog.Product{},
		clock:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) GetPublishedProduct(_ context.Context, id string) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || !p.IsPublished {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) FindUserCart(_ context.Context, userID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCartNotFound
}

func (s *memStore) FindSessionCart(_ context.Context, key string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.UserID == "" && c.SessionKey == key {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCartNotFound
}

func (s *memStore) CreateCart(_ context.Context, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err == ErrConflict && s.onCreateConflict != nil {
			s.onCreateConflict(c)
		}
		return err
	}

	for _, existing := range s.carts {
		if c.UserID != "" && existing.UserID == c.UserID {
			return ErrConflict
		}
		if c.UserID == "" && existing.UserID == "" && existing.SessionKey == c.SessionKey {
			return ErrConflict
		}
	}
	s.putCartLocked(c)
	return nil
}

func (s *memStore) putCartLocked(c *Cart) {
	if c.ID == "" {
		s.seq++
		c.ID = fmt.Sprintf("cart-%d", s.seq)
	}
	now := s.tick()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	cp.Lines = nil
	s.carts[c.ID] = &cp
}

// seedCart stores a cart with lines directly, bypassing the resolver.
func (s *memStore) seedCart(c *Cart, qty map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCartLocked(c)

	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s.addLocked(c.ID, id, qty[id])
	}
}

func (s *memStore) DeleteCart(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cartID)
	delete(s.lines, cartID)
	return nil
}

func (s *memStore) Lines(_ context.Context, cartID string) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.lines[cartID]
	out := make([]Line, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, s.hydrateLocked(src[i]))
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (s *memStore) hydrateLocked(l Line) Line {
	p := s.products[l.ProductID]
	l.ProductName, l.ProductSKU, l.ProductSlug, l.UnitPrice = p.Name, p.SKU, p.Slug, p.Price
	return l
}

func (s *memStore) GetLine(_ context.Context, cartID, lineID string) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines[cartID] {
		if l.ID == lineID {
			return s.hydrateLocked(l), nil
		}
	}
	return Line{}, ErrLineNotFound
}

func (s *memStore) AddQuantity(_ context.Context, cartID, productID string, qty int) (Line, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, inserted := s.addLocked(cartID, productID, qty)
	return l, inserted, nil
}

func (s *memStore) addLocked(cartID, productID string, qty int) (Line, bool) {
	lines := s.lines[cartID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += qty
			return lines[i], false
		}
	}
	s.seq++
	l := Line{ID: fmt.Sprintf("line-%d", s.seq), CartID: cartID, ProductID: productID, Quantity: qty, AddedAt: s.tick()}
	s.lines[cartID] = append(lines, l)
	return l, true
}

func (s *memStore) SetQuantity(_ context.Context, cartID, lineID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.lines[cartID]
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i].Quantity = qty
			return nil
		}
	}
	return ErrLineNotFound
}

func (s *memStore) DeleteLine(_ context.Context, cartID, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.lines[cartID]
	for i := range lines {
		if lines[i].ID == lineID {
			s.lines[cartID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

func (s *memStore) ClearLines(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, cartID)
	return nil
}

func (s *memStore) cartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

// quantities returns product id -> quantity for a cart.
func (s *memStore) quantities(cartID string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, l := range s.lines[cartID] {
		out[l.ProductID] = l.Quantity
	}
	return out
}

func product(id, name, price string) catalog.Product {
	return catalog.Product{
		ID:          id,
		SKU:         "SKU-" + id,
		Name:        name,
		Slug:        id,
		Price:       decimal.RequireFromString(price),
		IsPublished: true,
	}
}
