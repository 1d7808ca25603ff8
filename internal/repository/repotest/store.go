// Package repotest provides an in-memory repository.Store for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

type state struct {
	users     map[int64]*domain.User
	tokens    map[string]*domain.RefreshToken
	products  map[int64]*domain.Product
	carts     map[int64]*domain.CartItem
	orders    map[int64]*domain.Order
	wishlists map[int64]*domain.WishlistItem
	nextUser  int64
	nextProd  int64
	nextCart  int64
	nextOrder int64
	nextLine  int64
	nextWish  int64
}

func newState() *state {
	return &state{
		users:     map[int64]*domain.User{},
		tokens:    map[string]*domain.RefreshToken{},
		products:  map[int64]*domain.Product{},
		carts:     map[int64]*domain.CartItem{},
		orders:    map[int64]*domain.Order{},
		wishlists: map[int64]*domain.WishlistItem{},
	}
}

func (st *state) clone() *state {
	c := *st
	c.users = make(map[int64]*domain.User, len(st.users))
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	c.tokens = make(map[string]*domain.RefreshToken, len(st.tokens))
	for k, v := range st.tokens {
		t := *v
		c.tokens[k] = &t
	}
	c.products = make(map[int64]*domain.Product, len(st.products))
	for k, v := range st.products {
		p := *v
		c.products[k] = &p
	}
	c.carts = make(map[int64]*domain.CartItem, len(st.carts))
	for k, v := range st.carts {
		i := *v
		c.carts[k] = &i
	}
	c.orders = make(map[int64]*domain.Order, len(st.orders))
	for k, v := range st.orders {
		c.orders[k] = copyOrder(v)
	}
	c.wishlists = make(map[int64]*domain.WishlistItem, len(st.wishlists))
	for k, v := range st.wishlists {
		w := *v
		c.wishlists[k] = &w
	}
	return &c
}

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem{}, o.Items...)
	return &c
}

// Store is an in-memory repository.Store. WithTx snapshots the whole state
// and restores it when the callback fails, so it mirrors the commit and
// rollback behaviour of the SQL store.
type Store struct {
	mu       *sync.Mutex
	st       **state
	failures map[string]error
	inTx     bool
	now      func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	st := newState()
	return &Store{
		mu:       &sync.Mutex{},
		st:       &st,
		failures: map[string]error{},
		now:      time.Now,
	}
}

// FailOn makes the named operation, for example "Orders.CreateItems", return
// err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// lock acquires the store mutex and returns the current state and the
// injected failure for op, if any.
func (s *Store) lock(op string) (*state, error) {
	s.mu.Lock()
	return *s.st, s.failures[op]
}

func (s *Store) unlock() { s.mu.Unlock() }

func (s *Store) Users() repository.UserRepository                 { return users{s} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return tokens{s} }
func (s *Store) Products() repository.ProductRepository           { return products{s} }
func (s *Store) Carts() repository.CartRepository                 { return carts{s} }
func (s *Store) Orders() repository.OrderRepository               { return orders{s} }
func (s *Store) Wishlists() repository.WishlistRepository         { return wishlists{s} }

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	snapshot := (*s.st).clone()
	s.mu.Unlock()

	tx := &Store{mu: s.mu, st: s.st, failures: s.failures, inTx: true, now: s.now}

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(tx)
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.st = snapshot
}

type users struct{ s *Store }

func (r users) Create(_ context.Context, user *domain.User) error {
	st, err := r.s.lock("Users.Create")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	for _, u := range st.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	st.nextUser++
	user.ID = st.nextUser
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt
	u := *user
	st.users[u.ID] = &u
	return nil
}

func (r users) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	st, err := r.s.lock("Users.FindByEmail")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	for _, u := range st.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r users) FindByID(_ context.Context, id int64) (*domain.User, error) {
	st, err := r.s.lock("Users.FindByID")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	u, ok := st.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r users) List(_ context.Context) ([]*domain.User, error) {
	st, err := r.s.lock("Users.List")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	out := []*domain.User{}
	for _, u := range st.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r users) SetApproved(_ context.Context, id int64, approved bool) error {
	st, err := r.s.lock("Users.SetApproved")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	u, ok := st.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Approved = approved
	u.UpdatedAt = r.s.now()
	return nil
}

func (r users) Delete(_ context.Context, id int64) error {
	st, err := r.s.lock("Users.Delete")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	if _, ok := st.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(st.users, id)
	for k, t := range st.tokens {
		if t.UserID == id {
			delete(st.tokens, k)
		}
	}
	for k, c := range st.carts {
		if c.UserID == id {
			delete(st.carts, k)
		}
	}
	for k, o := range st.orders {
		if o.UserID == id {
			delete(st.orders, k)
		}
	}
	for k, w := range st.wishlists {
		if w.UserID == id {
			delete(st.wishlists, k)
		}
	}
	return nil
}

type tokens struct{ s *Store }

func (r tokens) Create(_ context.Context, token *domain.RefreshToken) error {
	st, err := r.s.lock("RefreshTokens.Create")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	t := *token
	st.tokens[t.Token] = &t
	return nil
}

func (r tokens) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	st, err := r.s.lock("RefreshTokens.FindByToken")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	t, ok := st.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	c := *t
	return &c, nil
}

func (r tokens) Revoke(_ context.Context, userID int64, token string) error {
	st, err := r.s.lock("RefreshTokens.Revoke")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	t, ok := st.tokens[token]
	if !ok || t.UserID != userID {
		return repository.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	return nil
}

type products struct{ s *Store }

func (r products) Create(_ context.Context, product *domain.Product) error {
	st, err := r.s.lock("Products.Create")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	for _, p := range st.products {
		if p.SKU == product.SKU {
			return repository.ErrProductSKUDuplicate
		}
	}
	st.nextProd++
	product.ID = st.nextProd
	product.CreatedAt = r.s.now()
	product.UpdatedAt = product.CreatedAt
	p := *product
	st.products[p.ID] = &p
	return nil
}

func (r products) Update(_ context.Context, product *domain.Product) error {
	st, err := r.s.lock("Products.Update")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	existing, ok := st.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	for _, p := range st.products {
		if p.ID != product.ID && p.SKU == product.SKU {
			return repository.ErrProductSKUDuplicate
		}
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = r.s.now()
	p := *product
	st.products[p.ID] = &p
	return nil
}

func (r products) Delete(_ context.Context, id int64) error {
	st, err := r.s.lock("Products.Delete")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	if _, ok := st.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	for _, o := range st.orders {
		for _, item := range o.Items {
			if item.ProductID == id {
				return repository.ErrProductInUse
			}
		}
	}
	delete(st.products, id)
	for k, c := range st.carts {
		if c.ProductID == id {
			delete(st.carts, k)
		}
	}
	for k, w := range st.wishlists {
		if w.ProductID == id {
			delete(st.wishlists, k)
		}
	}
	return nil
}

func (r products) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	st, err := r.s.lock("Products.FindByID")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	p, ok := st.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	c := *p
	return &c, nil
}

func (r products) List(_ context.Context) ([]*domain.Product, error) {
	return r.filter("Products.List", func(*domain.Product) bool { return true })
}

func (r products) Search(_ context.Context, term string) ([]*domain.Product, error) {
	needle := strings.ToLower(term)
	return r.filter("Products.Search", func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle)
	})
}

func (r products) filter(op string, keep func(*domain.Product) bool) ([]*domain.Product, error) {
	st, err := r.s.lock(op)
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	out := []*domain.Product{}
	for _, p := range st.products {
		if keep(p) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type carts struct{ s *Store }

func (r carts) Upsert(_ context.Context, userID, productID int64, quantity int) (*domain.CartItem, error) {
	st, err := r.s.lock("Carts.Upsert")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	if _, ok := st.products[productID]; !ok {
		return nil, repository.ErrProductNotFound
	}
	if _, ok := st.users[userID]; !ok {
		return nil, repository.ErrUserNotFound
	}
	for _, c := range st.carts {
		if c.UserID == userID && c.ProductID == productID {
			c.Quantity += quantity
			c.UpdatedAt = r.s.now()
			out := *c
			return &out, nil
		}
	}
	st.nextCart++
	now := r.s.now()
	item := &domain.CartItem{ID: st.nextCart, UserID: userID, ProductID: productID, Quantity: quantity, CreatedAt: now, UpdatedAt: now}
	st.carts[item.ID] = item
	out := *item
	return &out, nil
}

func (r carts) FindByID(_ context.Context, id int64) (*domain.CartItem, error) {
	st, err := r.s.lock("Carts.FindByID")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	c, ok := st.carts[id]
	if !ok {
		return nil, repository.ErrCartItemNotFound
	}
	out := *c
	return &out, nil
}

func (r carts) UpdateQuantity(_ context.Context, id int64, quantity int) (*domain.CartItem, error) {
	st, err := r.s.lock("Carts.UpdateQuantity")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	c, ok := st.carts[id]
	if !ok {
		return nil, repository.ErrCartItemNotFound
	}
	c.Quantity = quantity
	c.UpdatedAt = r.s.now()
	out := *c
	return &out, nil
}

func (r carts) Delete(_ context.Context, id int64) error {
	st, err := r.s.lock("Carts.Delete")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	if _, ok := st.carts[id]; !ok {
		return repository.ErrCartItemNotFound
	}
	delete(st.carts, id)
	return nil
}

func (r carts) ListByUser(_ context.Context, userID int64) ([]*domain.CartItem, error) {
	return r.list("Carts.ListByUser", userID)
}

func (r carts) ListByUserForUpdate(_ context.Context, userID int64) ([]*domain.CartItem, error) {
	return r.list("Carts.ListByUserForUpdate", userID)
}

func (r carts) list(op string, userID int64) ([]*domain.CartItem, error) {
	st, err := r.s.lock(op)
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	out := []*domain.CartItem{}
	for _, c := range st.carts {
		if c.UserID != userID {
			continue
		}
		p, ok := st.products[c.ProductID]
		if !ok {
			continue
		}
		item := *c
		product := *p
		item.Product = &product
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r carts) DeleteItems(_ context.Context, userID int64, ids []int64) (int64, error) {
	st, err := r.s.lock("Carts.DeleteItems")
	defer r.s.unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if c, ok := st.carts[id]; ok && c.UserID == userID {
			delete(st.carts, id)
			n++
		}
	}
	return n, nil
}

type orders struct{ s *Store }

func (r orders) Create(_ context.Context, order *domain.Order) error {
	st, err := r.s.lock("Orders.Create")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	if _, ok := st.users[order.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	st.nextOrder++
	order.ID = st.nextOrder
	order.CreatedAt = r.s.now()
	order.UpdatedAt = order.CreatedAt
	stored := copyOrder(order)
	stored.Items = []domain.OrderItem{}
	st.orders[order.ID] = stored
	return nil
}

func (r orders) CreateItems(_ context.Context, orderID int64, items []domain.OrderItem) ([]domain.OrderItem, error) {
	st, err := r.s.lock("Orders.CreateItems")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	o, ok := st.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	created := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		st.nextLine++
		item.ID = st.nextLine
		item.OrderID = orderID
		o.Items = append(o.Items, item)
		created = append(created, item)
	}
	return created, nil
}

func (r orders) ListByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	st, err := r.s.lock("Orders.ListByUser")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	out := []*domain.Order{}
	for _, o := range st.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r orders) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	st, err := r.s.lock("Orders.FindByID")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	o, ok := st.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (r orders) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	st, err := r.s.lock("Orders.UpdateStatus")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	o, ok := st.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = r.s.now()
	out := copyOrder(o)
	out.Items = []domain.OrderItem{}
	return out, nil
}

type wishlists struct{ s *Store }

func (r wishlists) Find(_ context.Context, userID, productID int64) (*domain.WishlistItem, error) {
	st, err := r.s.lock("Wishlists.Find")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	for _, w := range st.wishlists {
		if w.UserID == userID && w.ProductID == productID {
			c := *w
			return &c, nil
		}
	}
	return nil, repository.ErrWishlistItemNotFound
}

func (r wishlists) Create(_ context.Context, item *domain.WishlistItem) error {
	st, err := r.s.lock("Wishlists.Create")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	if _, ok := st.products[item.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	if _, ok := st.users[item.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, w := range st.wishlists {
		if w.UserID == item.UserID && w.ProductID == item.ProductID {
			return repository.ErrWishlistItemExists
		}
	}
	st.nextWish++
	item.ID = st.nextWish
	item.CreatedAt = r.s.now()
	c := *item
	c.Product = nil
	st.wishlists[c.ID] = &c
	return nil
}

func (r wishlists) Delete(_ context.Context, id int64) error {
	st, err := r.s.lock("Wishlists.Delete")
	defer r.s.unlock()
	if err != nil {
		return err
	}
	if _, ok := st.wishlists[id]; !ok {
		return repository.ErrWishlistItemNotFound
	}
	delete(st.wishlists, id)
	return nil
}

func (r wishlists) ListByUser(_ context.Context, userID int64) ([]*domain.WishlistItem, error) {
	st, err := r.s.lock("Wishlists.ListByUser")
	defer r.s.unlock()
	if err != nil {
		return nil, err
	}
	out := []*domain.WishlistItem{}
	for _, w := range st.wishlists {
		if w.UserID != userID {
			continue
		}
		p, ok := st.products[w.ProductID]
		if !ok {
			continue
		}
		item := *w
		product := *p
		item.Product = &product
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
