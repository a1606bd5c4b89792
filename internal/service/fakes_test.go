package service

import (
	"context"
	"database/sql"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"takkeh/internal/domain"
	"takkeh/internal/repo"

	"github.com/google/uuid"
)

type pair [2]int64

// memStore backs every fake repository. memTx snapshots it on begin and
// restores the snapshot when the transaction function fails.
type memStore struct {
	mu sync.Mutex

	nextID   int64
	users    map[int64]domain.User
	shops    map[int64]domain.Shop
	drivers  map[int64]domain.Driver
	menus    map[int64]domain.Menu
	meals    map[int64]domain.Meal
	orders   map[int64]domain.Order
	follows  map[pair]time.Time
	posts    map[int64]domain.Post
	comments map[int64]domain.Comment
	likes    map[pair]time.Time
	cats     map[int64]domain.Category

	calls  int
	failOn map[string]error
	// beforeLock runs inside the order transaction, ahead of LockExisting.
	beforeLock func()
}

func newMemStore() *memStore {
	return &memStore{
		nextID:   1000,
		users:    map[int64]domain.User{},
		shops:    map[int64]domain.Shop{},
		drivers:  map[int64]domain.Driver{},
		menus:    map[int64]domain.Menu{},
		meals:    map[int64]domain.Meal{},
		orders:   map[int64]domain.Order{},
		follows:  map[pair]time.Time{},
		posts:    map[int64]domain.Post{},
		comments: map[int64]domain.Comment{},
		likes:    map[pair]time.Time{},
		cats:     map[int64]domain.Category{},
		failOn:   map[string]error{},
	}
}

// op counts a repository call and returns any injected failure. Callers hold mu.
func (s *memStore) op(name string) error {
	s.calls++
	return s.failOn[name]
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type snapshot struct {
	users    map[int64]domain.User
	shops    map[int64]domain.Shop
	drivers  map[int64]domain.Driver
	menus    map[int64]domain.Menu
	meals    map[int64]domain.Meal
	orders   map[int64]domain.Order
	follows  map[pair]time.Time
	posts    map[int64]domain.Post
	comments map[int64]domain.Comment
	likes    map[pair]time.Time
	cats     map[int64]domain.Category
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		users: maps.Clone(s.users), shops: maps.Clone(s.shops), drivers: maps.Clone(s.drivers),
		menus: maps.Clone(s.menus), meals: maps.Clone(s.meals), orders: maps.Clone(s.orders),
		follows: maps.Clone(s.follows), posts: maps.Clone(s.posts), comments: maps.Clone(s.comments),
		likes: maps.Clone(s.likes), cats: maps.Clone(s.cats),
	}
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users, s.shops, s.drivers = snap.users, snap.shops, snap.drivers
	s.menus, s.meals, s.orders = snap.menus, snap.meals, snap.orders
	s.follows, s.posts, s.comments, s.likes = snap.follows, snap.posts, snap.comments, snap.likes
	s.cats = snap.cats
}

// seed helpers write straight into the store without counting calls.

func (s *memStore) addUser(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.users[id] = domain.User{ID: id, Name: name, Phone: name}
	return id
}

func (s *memStore) addShop(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.shops[id] = domain.Shop{ID: id, Name: name, Email: name + "@shop.test"}
	return id
}

func (s *memStore) addMenu(shopID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.menus[id] = domain.Menu{ID: id, ShopID: shopID, Name: "Menu"}
	return id
}

func (s *memStore) addMeal(menuID int64, price string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.meals[id] = domain.Meal{ID: id, MenuID: menuID, ShopID: s.menus[menuID].ShopID, Name: "Meal", Price: dec(price)}
	return id
}

func (s *memStore) shop(id int64) domain.Shop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shops[id]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type memTx struct {
	s  *memStore
	mu sync.Mutex

	commits, rollbacks int
}

func (t *memTx) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.s.snapshot()
	err := fn(nil)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		t.s.restore(snap)
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

type memOrders struct{ s *memStore }

var _ repo.OrderRepo = memOrders{}

func (r memOrders) FindById(ctx context.Context, id int64) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("orders.FindById"); err != nil {
		return nil, err
	}
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r memOrders) FindByIdempotencyKey(ctx context.Context, buyerId int64, key uuid.UUID) (*repo.IdempotencyRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("orders.FindByIdempotencyKey"); err != nil {
		return nil, err
	}
	for _, o := range r.s.orders {
		if o.BuyerID == buyerId && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return &repo.IdempotencyRecord{OrderID: o.ID, Fingerprint: o.RequestFingerprint}, nil
		}
	}
	return nil, nil
}

func (r memOrders) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("orders.CreateOrder"); err != nil {
		return 0, false, err
	}
	if order.IdempotencyKey != nil {
		for _, o := range r.s.orders {
			if o.BuyerID == order.BuyerID && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				if o.RequestFingerprint != order.RequestFingerprint {
					return 0, false, domain.ErrConflict
				}
				return o.ID, false, nil
			}
		}
	}
	o := *order
	o.ID = r.s.id()
	o.Lines = nil
	o.CreatedAt = time.Now()
	r.s.orders[o.ID] = o
	order.ID = o.ID
	return o.ID, true, nil
}

func (r memOrders) CreateOrderLines(ctx context.Context, tx *sql.Tx, orderId int64, lines []domain.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("orders.CreateOrderLines"); err != nil {
		return err
	}
	o := r.s.orders[orderId]
	o.Lines = append([]domain.OrderLine(nil), lines...)
	r.s.orders[orderId] = o
	return nil
}

func (r memOrders) list(match func(domain.Order) bool, limit int) []domain.Order {
	var out []domain.Order
	for _, o := range r.s.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r memOrders) ListByShop(ctx context.Context, shopId int64, limit int) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("orders.ListByShop"); err != nil {
		return nil, err
	}
	return r.list(func(o domain.Order) bool { return o.ShopID == shopId }, limit), nil
}

func (r memOrders) ListOpen(ctx context.Context, address string, limit int) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("orders.ListOpen"); err != nil {
		return nil, err
	}
	return r.list(func(o domain.Order) bool {
		return o.Address != nil && *o.Address == address && !o.Taken && o.Status != domain.OrderCancelled
	}, limit), nil
}

func (r memOrders) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, id int64, status domain.OrderStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("orders.UpdateOrderStatus"); err != nil {
		return false, err
	}
	o, ok := r.s.orders[id]
	if !ok {
		return false, nil
	}
	o.Status = status
	r.s.orders[id] = o
	return true, nil
}

func (r memOrders) Take(ctx context.Context, tx *sql.Tx, id, driverId int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("orders.Take"); err != nil {
		return false, err
	}
	o, ok := r.s.orders[id]
	if !ok || o.Taken || o.Status == domain.OrderCancelled {
		return false, nil
	}
	o.Taken = true
	o.DriverID = &driverId
	r.s.orders[id] = o
	return true, nil
}

type memCatalog struct{ s *memStore }

var _ repo.CatalogRepo = memCatalog{}

func (r memCatalog) CreateMenu(ctx context.Context, menu *domain.Menu) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.CreateMenu"); err != nil {
		return 0, err
	}
	menu.ID = r.s.id()
	r.s.menus[menu.ID] = *menu
	return menu.ID, nil
}

func (r memCatalog) FindMenu(ctx context.Context, id int64) (*domain.Menu, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.FindMenu"); err != nil {
		return nil, err
	}
	m, ok := r.s.menus[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r memCatalog) ListMenus(ctx context.Context, shopId int64) ([]domain.Menu, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.ListMenus"); err != nil {
		return nil, err
	}
	var out []domain.Menu
	for _, m := range r.s.menus {
		if m.ShopID == shopId {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memCatalog) DeleteMenu(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.DeleteMenu"); err != nil {
		return false, err
	}
	_, ok := r.s.menus[id]
	delete(r.s.menus, id)
	return ok, nil
}

func (r memCatalog) CreateMeal(ctx context.Context, meal *domain.Meal) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.CreateMeal"); err != nil {
		return 0, err
	}
	meal.ID = r.s.id()
	r.s.meals[meal.ID] = *meal
	return meal.ID, nil
}

func (r memCatalog) FindMeal(ctx context.Context, id int64) (*domain.Meal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.FindMeal"); err != nil {
		return nil, err
	}
	m, ok := r.s.meals[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r memCatalog) ListMeals(ctx context.Context, menuId int64) ([]domain.Meal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.ListMeals"); err != nil {
		return nil, err
	}
	var out []domain.Meal
	for _, m := range r.s.meals {
		if m.MenuID == menuId {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memCatalog) UpdateMeal(ctx context.Context, id int64, patch domain.MealPatch) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.UpdateMeal"); err != nil {
		return false, err
	}
	m, ok := r.s.meals[id]
	if !ok {
		return false, nil
	}
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.PhotoURL != nil {
		m.PhotoURL = *patch.PhotoURL
	}
	if patch.Content != nil {
		m.Content = *patch.Content
	}
	if patch.Price != nil {
		m.Price = *patch.Price
	}
	r.s.meals[id] = m
	return true, nil
}

func (r memCatalog) DeleteMeal(ctx context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.DeleteMeal"); err != nil {
		return false, err
	}
	_, ok := r.s.meals[id]
	delete(r.s.meals, id)
	return ok, nil
}

func (r memCatalog) DeleteMealsByMenu(ctx context.Context, tx *sql.Tx, menuId int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.DeleteMealsByMenu"); err != nil {
		return 0, err
	}
	var n int64
	for id, m := range r.s.meals {
		if m.MenuID == menuId {
			delete(r.s.meals, id)
			n++
		}
	}
	return n, nil
}

func (r memCatalog) FindPriced(ctx context.Context, ids []int64) (map[int64]domain.PricedItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.FindPriced"); err != nil {
		return nil, err
	}
	out := make(map[int64]domain.PricedItem, len(ids))
	for _, id := range ids {
		if m, ok := r.s.meals[id]; ok {
			out[id] = domain.PricedItem{ID: m.ID, ShopID: m.ShopID, Price: m.Price}
		}
	}
	return out, nil
}

func (r memCatalog) LockExisting(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]bool, error) {
	if hook := r.s.beforeLock; hook != nil {
		hook()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("catalog.LockExisting"); err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.s.meals[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

type memShops struct{ s *memStore }

var _ repo.ShopRepo = memShops{}

func (r memShops) FindById(ctx context.Context, id int64) (*domain.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("shops.FindById"); err != nil {
		return nil, err
	}
	sh, ok := r.s.shops[id]
	if !ok {
		return nil, nil
	}
	return &sh, nil
}

func (r memShops) List(ctx context.Context, limit, offset int) ([]domain.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("shops.List"); err != nil {
		return nil, err
	}
	out := make([]domain.Shop, 0, len(r.s.shops))
	for _, sh := range r.s.shops {
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memShops) Update(ctx context.Context, id int64, patch domain.ShopPatch) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("shops.Update"); err != nil {
		return false, err
	}
	sh, ok := r.s.shops[id]
	if !ok {
		return false, nil
	}
	if patch.Name != nil {
		sh.Name = *patch.Name
	}
	if patch.Description != nil {
		sh.Description = *patch.Description
	}
	if patch.Lat != nil {
		sh.Lat = patch.Lat
	}
	if patch.Lon != nil {
		sh.Lon = patch.Lon
	}
	r.s.shops[id] = sh
	return true, nil
}

func (r memShops) IncrementOrderCount(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("shops.IncrementOrderCount"); err != nil {
		return false, err
	}
	sh, ok := r.s.shops[id]
	if !ok {
		return false, nil
	}
	sh.NumOrders++
	r.s.shops[id] = sh
	return true, nil
}

func (r memShops) AdjustFollowers(ctx context.Context, tx *sql.Tx, id int64, delta int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("shops.AdjustFollowers"); err != nil {
		return false, err
	}
	sh, ok := r.s.shops[id]
	if !ok {
		return false, nil
	}
	sh.Followers = max(sh.Followers+int64(delta), 0)
	r.s.shops[id] = sh
	return true, nil
}

func (r memShops) FindCounterDrift(ctx context.Context, limit int) ([]repo.CounterDrift, error) {
	return nil, nil
}

func (r memShops) ReconcileOrderCount(ctx context.Context, tx *sql.Tx, id int64) (int64, int64, error) {
	return 0, 0, nil
}

type memSocial struct{ s *memStore }

var _ repo.SocialRepo = memSocial{}

func (r memSocial) Follow(ctx context.Context, tx *sql.Tx, userId, shopId int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.Follow"); err != nil {
		return false, err
	}
	if _, ok := r.s.shops[shopId]; !ok {
		return false, domain.ErrNotFound
	}
	k := pair{userId, shopId}
	if _, ok := r.s.follows[k]; ok {
		return false, nil
	}
	r.s.follows[k] = time.Now()
	return true, nil
}

func (r memSocial) Unfollow(ctx context.Context, tx *sql.Tx, userId, shopId int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.Unfollow"); err != nil {
		return false, err
	}
	k := pair{userId, shopId}
	_, ok := r.s.follows[k]
	delete(r.s.follows, k)
	return ok, nil
}

func (r memSocial) ListFollowers(ctx context.Context, shopId int64) ([]domain.Follower, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.ListFollowers"); err != nil {
		return nil, err
	}
	var out []domain.Follower
	for k, at := range r.s.follows {
		if k[1] == shopId {
			out = append(out, domain.Follower{UserID: k[0], Name: r.s.users[k[0]].Name, FollowedAt: at})
		}
	}
	return out, nil
}

func (r memSocial) CreatePost(ctx context.Context, tx *sql.Tx, post *domain.Post) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.CreatePost"); err != nil {
		return 0, err
	}
	post.ID = r.s.id()
	post.CreatedAt = time.Now()
	r.s.posts[post.ID] = *post
	return post.ID, nil
}

func (r memSocial) SetPostCategory(ctx context.Context, tx *sql.Tx, postId, categoryId int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.SetPostCategory"); err != nil {
		return err
	}
	if _, ok := r.s.cats[categoryId]; !ok {
		return domain.ErrNotFound
	}
	p := r.s.posts[postId]
	p.CategoryID = &categoryId
	r.s.posts[postId] = p
	return nil
}

func (r memSocial) FindPost(ctx context.Context, id int64) (*domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.FindPost"); err != nil {
		return nil, err
	}
	p, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memSocial) ListPosts(ctx context.Context, shopId int64, limit int) ([]domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Post
	for _, p := range r.s.posts {
		if p.ShopID == shopId {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memSocial) ListRecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Post, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		out = append(out, p)
	}
	return out, nil
}

func (r memSocial) AddComment(ctx context.Context, c *domain.Comment) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.AddComment"); err != nil {
		return 0, err
	}
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.comments[c.ID] = *c
	return c.ID, nil
}

func (r memSocial) FindComment(ctx context.Context, id int64) (*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r memSocial) DeleteComment(ctx context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.comments[id]
	delete(r.s.comments, id)
	return ok, nil
}

func (r memSocial) ListComments(ctx context.Context, postId int64) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Comment
	for _, c := range r.s.comments {
		if c.PostID == postId {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r memSocial) Like(ctx context.Context, postId, userId int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.Like"); err != nil {
		return false, err
	}
	k := pair{postId, userId}
	if _, ok := r.s.likes[k]; ok {
		return false, nil
	}
	r.s.likes[k] = time.Now()
	return true, nil
}

func (r memSocial) Unlike(ctx context.Context, postId, userId int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := pair{postId, userId}
	_, ok := r.s.likes[k]
	delete(r.s.likes, k)
	return ok, nil
}

func (r memSocial) LikeCount(ctx context.Context, postId int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k := range r.s.likes {
		if k[0] == postId {
			n++
		}
	}
	return n, nil
}

func (r memSocial) ListLikers(ctx context.Context, postId int64) ([]domain.Liker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.ListLikers"); err != nil {
		return nil, err
	}
	var out []domain.Liker
	for k, at := range r.s.likes {
		if k[0] == postId {
			out = append(out, domain.Liker{UserID: k[1], Name: r.s.users[k[1]].Name, LikedAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r memSocial) CommentCount(ctx context.Context, postId int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.CommentCount"); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range r.s.comments {
		if c.PostID == postId {
			n++
		}
	}
	return n, nil
}

func (r memSocial) CreateCategory(ctx context.Context, c *domain.Category) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("social.CreateCategory"); err != nil {
		return 0, err
	}
	for _, existing := range r.s.cats {
		if strings.EqualFold(existing.Name, c.Name) {
			return 0, domain.ErrConflict
		}
	}
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.cats[c.ID] = *c
	return c.ID, nil
}

func (r memSocial) ListCategories(ctx context.Context) ([]domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Category, 0, len(r.s.cats))
	for _, c := range r.s.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memAccounts struct{ s *memStore }

var _ repo.AccountRepo = memAccounts{}

func (r memAccounts) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("accounts.CreateUser"); err != nil {
		return 0, err
	}
	for _, existing := range r.s.users {
		if existing.Phone == u.Phone {
			return 0, domain.ErrConflict
		}
	}
	u.ID = r.s.id()
	r.s.users[u.ID] = *u
	return u.ID, nil
}

func (r memAccounts) CreateShop(ctx context.Context, sh *domain.Shop) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("accounts.CreateShop"); err != nil {
		return 0, err
	}
	for _, existing := range r.s.shops {
		if existing.Email == sh.Email {
			return 0, domain.ErrConflict
		}
	}
	sh.ID = r.s.id()
	r.s.shops[sh.ID] = *sh
	return sh.ID, nil
}

func (r memAccounts) CreateDriver(ctx context.Context, d *domain.Driver) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("accounts.CreateDriver"); err != nil {
		return 0, err
	}
	for _, existing := range r.s.drivers {
		if existing.Phone == d.Phone {
			return 0, domain.ErrConflict
		}
	}
	d.ID = r.s.id()
	r.s.drivers[d.ID] = *d
	return d.ID, nil
}

func (r memAccounts) FindCredential(ctx context.Context, kind domain.PrincipalKind, handle string) (*domain.Credential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("accounts.FindCredential"); err != nil {
		return nil, err
	}
	switch kind {
	case domain.KindUser:
		for _, u := range r.s.users {
			if u.Phone == handle {
				return &domain.Credential{ID: u.ID, Kind: kind, PasswordHash: u.PasswordHash}, nil
			}
		}
	case domain.KindShop:
		for _, sh := range r.s.shops {
			if sh.Email == handle {
				return &domain.Credential{ID: sh.ID, Kind: kind, PasswordHash: sh.PasswordHash}, nil
			}
		}
	case domain.KindDriver:
		for _, d := range r.s.drivers {
			if d.Phone == handle {
				return &domain.Credential{ID: d.ID, Kind: kind, PasswordHash: d.PasswordHash}, nil
			}
		}
	}
	return nil, nil
}

func (r memAccounts) UpdatePasswordHash(ctx context.Context, kind domain.PrincipalKind, id int64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.op("accounts.UpdatePasswordHash"); err != nil {
		return err
	}
	switch kind {
	case domain.KindUser:
		u := r.s.users[id]
		u.PasswordHash = hash
		r.s.users[id] = u
	case domain.KindShop:
		sh := r.s.shops[id]
		sh.PasswordHash = hash
		r.s.shops[id] = sh
	case domain.KindDriver:
		d := r.s.drivers[id]
		d.PasswordHash = hash
		r.s.drivers[id] = d
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
