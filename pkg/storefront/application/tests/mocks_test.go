package tests

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/common/domain"
	"storefront/pkg/storefront/domain/model"
)

// memDB backs every mock repository so that cross-aggregate writes such as
// stock reservation during Place see one consistent state.
type memDB struct {
	mu sync.Mutex

	products      map[uuid.UUID]*model.Product
	carts         map[uuid.UUID]map[uuid.UUID]*model.CartItem
	orders        map[uuid.UUID]*model.Order
	payments      map[uuid.UUID]*model.Payment
	notifications map[uuid.UUID]*model.Notification
	wishlist      map[uuid.UUID][]model.WishlistItem
	codes         map[uuid.UUID]string
	referrals     map[uuid.UUID]*model.Referral
	loyalty       []model.LoyaltyEntry
	content       []model.GeneratedContent
	roles         map[uuid.UUID][]model.Role
	emails        map[uuid.UUID]string

	failPlace error
	failClear error
}

func newMemDB() *memDB {
	return &memDB{
		products:      make(map[uuid.UUID]*model.Product),
		carts:         make(map[uuid.UUID]map[uuid.UUID]*model.CartItem),
		orders:        make(map[uuid.UUID]*model.Order),
		payments:      make(map[uuid.UUID]*model.Payment),
		notifications: make(map[uuid.UUID]*model.Notification),
		wishlist:      make(map[uuid.UUID][]model.WishlistItem),
		codes:         make(map[uuid.UUID]string),
		referrals:     make(map[uuid.UUID]*model.Referral),
		roles:         make(map[uuid.UUID][]model.Role),
		emails:        make(map[uuid.UUID]string),
	}
}

func (db *memDB) newUser(email string, roles ...model.Role) model.Identity {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := uuid.New()
	db.roles[id] = roles
	db.emails[id] = email
	return model.Identity{UserID: id}
}

func (db *memDB) seedProduct(name string, priceCents int64, stock int) *model.Product {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := time.Now().UTC()
	p := &model.Product{
		ID:          uuid.New(),
		Name:        model.LocalizedText{Fr: name},
		Description: model.LocalizedText{Fr: name + " description"},
		PriceCents:  priceCents,
		Stock:       stock,
		IsActive:    true,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	db.products[p.ID] = p
	clone := *p
	return &clone
}

func (db *memDB) stockOf(id uuid.UUID) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.products[id].Stock
}

func (db *memDB) notificationsFor(userID uuid.UUID, typ model.NotificationType) []model.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	var result []model.Notification
	for _, n := range db.notifications {
		if n.UserID == userID && n.Type == typ {
			result = append(result, *n)
		}
	}
	return result
}

func (db *memDB) orderCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.orders)
}

func contains(statuses []model.OrderStatus, s model.OrderStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

type mockProductRepository struct{ db *memDB }

func (m *mockProductRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockProductRepository) Create(_ context.Context, p *model.Product) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	clone := *p
	m.db.products[p.ID] = &clone
	return nil
}

func (m *mockProductRepository) Update(_ context.Context, p *model.Product) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	existing, ok := m.db.products[p.ID]
	if !ok {
		return model.ErrProductNotFound
	}
	if existing.Version != p.Version-1 {
		return model.ErrOptimisticLock
	}
	clone := *p
	clone.Stock = existing.Stock
	m.db.products[p.ID] = &clone
	return nil
}

func (m *mockProductRepository) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if p, ok := m.db.products[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, model.ErrProductNotFound
}

func (m *mockProductRepository) FindMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	result := make(map[uuid.UUID]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.db.products[id]; ok {
			result[id] = *p
		}
	}
	return result, nil
}

func (m *mockProductRepository) List(_ context.Context, filter model.ProductFilter) ([]model.Product, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []model.Product
	for _, p := range m.db.products {
		if !p.IsActive && !filter.IncludeInactive {
			continue
		}
		if filter.VendorID != nil && !p.OwnedBy(*filter.VendorID) {
			continue
		}
		result = append(result, *p)
	}
	return result, nil
}

func (m *mockProductRepository) AdjustStock(_ context.Context, id uuid.UUID, delta int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.products[id]
	if !ok {
		return model.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return model.ErrInsufficientStock
	}
	p.Stock += delta
	return nil
}

type mockCartRepository struct{ db *memDB }

func (m *mockCartRepository) Items(_ context.Context, userID uuid.UUID) ([]model.CartItem, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var items []model.CartItem
	for _, item := range m.db.carts[userID] {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AddedAt.Before(items[j].AddedAt) })
	return items, nil
}

func (m *mockCartRepository) Add(_ context.Context, userID, productID uuid.UUID, quantity int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.carts[userID] == nil {
		m.db.carts[userID] = make(map[uuid.UUID]*model.CartItem)
	}
	if item, ok := m.db.carts[userID][productID]; ok {
		item.Quantity += quantity
		return nil
	}
	m.db.carts[userID][productID] = &model.CartItem{UserID: userID, ProductID: productID, Quantity: quantity, AddedAt: time.Now()}
	return nil
}

func (m *mockCartRepository) SetQuantity(_ context.Context, userID, productID uuid.UUID, quantity int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	item, ok := m.db.carts[userID][productID]
	if !ok {
		return model.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (m *mockCartRepository) Remove(_ context.Context, userID, productID uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	delete(m.db.carts[userID], productID)
	return nil
}

func (m *mockCartRepository) Clear(_ context.Context, userID uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.failClear != nil {
		return m.db.failClear
	}
	delete(m.db.carts, userID)
	return nil
}

type mockOrderRepository struct{ db *memDB }

func (m *mockOrderRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockOrderRepository) Place(_ context.Context, order *model.Order) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.failPlace != nil {
		return m.db.failPlace
	}

	var shortages []model.StockShortage
	for _, item := range order.Items {
		p := m.db.products[item.ProductID]
		if p == nil || !p.IsActive || p.Stock < item.Quantity {
			line := model.StockShortage{ProductID: item.ProductID, ProductName: item.ProductName, Requested: item.Quantity}
			if p != nil {
				line.Available = p.Stock
				line.Inactive = !p.IsActive
			}
			shortages = append(shortages, line)
		}
	}
	if len(shortages) > 0 {
		return &model.InsufficientStockError{Lines: shortages}
	}
	for _, item := range order.Items {
		m.db.products[item.ProductID].Stock -= item.Quantity
	}
	clone := *order
	clone.Items = append([]model.OrderItem(nil), order.Items...)
	m.db.orders[order.ID] = &clone
	return nil
}

func (m *mockOrderRepository) Find(_ context.Context, id uuid.UUID) (*model.Order, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if o, ok := m.db.orders[id]; ok {
		clone := *o
		return &clone, nil
	}
	return nil, model.ErrOrderNotFound
}

func (m *mockOrderRepository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	o, err := m.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, model.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrderRepository) filter(match func(o *model.Order) bool) []model.Order {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []model.Order
	for _, o := range m.db.orders {
		if match(o) {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

func (m *mockOrderRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	return m.filter(func(o *model.Order) bool { return o.UserID == userID }), nil
}

func (m *mockOrderRepository) ListByDeliveryUser(_ context.Context, deliveryUserID uuid.UUID) ([]model.Order, error) {
	return m.filter(func(o *model.Order) bool {
		return o.DeliveryUserID != nil && *o.DeliveryUserID == deliveryUserID
	}), nil
}

func (m *mockOrderRepository) List(_ context.Context, filter model.OrderFilter) ([]model.Order, error) {
	m.db.mu.Lock()
	products := make(map[uuid.UUID]*model.Product, len(m.db.products))
	for id, p := range m.db.products {
		products[id] = p
	}
	m.db.mu.Unlock()

	return m.filter(func(o *model.Order) bool {
		if filter.Status != nil && o.Status != *filter.Status {
			return false
		}
		if filter.VendorID == nil {
			return true
		}
		for _, item := range o.Items {
			if p, ok := products[item.ProductID]; ok && p.OwnedBy(*filter.VendorID) {
				return true
			}
		}
		return false
	}), nil
}

func (m *mockOrderRepository) CountByUserAndStatus(_ context.Context, userID uuid.UUID, statuses []model.OrderStatus) (int, error) {
	return len(m.filter(func(o *model.Order) bool { return o.UserID == userID && contains(statuses, o.Status) })), nil
}

func (m *mockOrderRepository) ChangeStatus(_ context.Context, id uuid.UUID, change model.StatusChange) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	o, ok := m.db.orders[id]
	if !ok {
		return false, model.ErrOrderNotFound
	}
	if !contains(change.From, o.Status) {
		return false, nil
	}
	if change.DeliveryUserID != nil && (o.DeliveryUserID == nil || *o.DeliveryUserID != *change.DeliveryUserID) {
		return false, nil
	}

	at := change.At
	o.Status = change.To
	o.UpdatedAt = at
	switch change.To {
	case model.OrderConfirmed:
		o.ConfirmedAt = &at
	case model.OrderShipped:
		o.ShippedAt = &at
		o.ShippedEvidence = change.Evidence
	case model.OrderDelivered:
		o.DeliveredAt = &at
		o.DeliveredEvidence = change.Evidence
	case model.OrderCancelled:
		o.CancelledAt = &at
		o.CancelReason = change.Reason
	}
	if change.RestoreStock {
		for _, item := range o.Items {
			if p, ok := m.db.products[item.ProductID]; ok {
				p.Stock += item.Quantity
			}
		}
	}
	return true, nil
}

func (m *mockOrderRepository) AssignDelivery(_ context.Context, id, deliveryUserID uuid.UUID, from []model.OrderStatus) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	o, ok := m.db.orders[id]
	if !ok {
		return false, model.ErrOrderNotFound
	}
	if !contains(from, o.Status) {
		return false, nil
	}
	if o.DeliveryUserID != nil && *o.DeliveryUserID == deliveryUserID {
		return false, nil
	}
	courier := deliveryUserID
	o.DeliveryUserID = &courier
	return true, nil
}

func (m *mockOrderRepository) ConfirmReceipt(_ context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	o, ok := m.db.orders[id]
	if !ok || o.UserID != userID || o.Status != model.OrderDelivered || o.CustomerConfirmedAt != nil {
		return false, nil
	}
	o.CustomerConfirmedAt = &at
	return true, nil
}

type mockPaymentRepository struct{ db *memDB }

func (m *mockPaymentRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockPaymentRepository) Create(_ context.Context, p *model.Payment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	clone := *p
	m.db.payments[p.ID] = &clone
	return nil
}

func (m *mockPaymentRepository) Find(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if p, ok := m.db.payments[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, model.ErrPaymentNotFound
}

func (m *mockPaymentRepository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*model.Payment, error) {
	p, err := m.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, model.ErrPaymentNotFound
	}
	return p, nil
}

func (m *mockPaymentRepository) ListByOrder(_ context.Context, orderID, userID uuid.UUID) ([]model.Payment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []model.Payment
	for _, p := range m.db.payments {
		if p.OrderID == orderID && p.UserID == userID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockPaymentRepository) Confirm(_ context.Context, c model.PaymentConfirmation) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.payments[c.PaymentID]
	if !ok || p.UserID != c.UserID || p.Status != model.PaymentPending {
		return false, nil
	}
	if c.Status == model.PaymentCompleted {
		for _, other := range m.db.payments {
			if other.OrderID == p.OrderID && other.Status == model.PaymentCompleted {
				return false, model.ErrOrderAlreadyPaid
			}
		}
		at := c.At
		p.CompletedAt = &at
	}
	p.Status = c.Status
	p.TransactionID = c.TransactionID
	p.UpdatedAt = c.At
	return true, nil
}

type mockNotificationRepository struct{ db *memDB }

func (m *mockNotificationRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockNotificationRepository) Create(_ context.Context, n *model.Notification) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	clone := *n
	m.db.notifications[n.ID] = &clone
	return nil
}

func (m *mockNotificationRepository) UpdateEmailStatus(_ context.Context, id uuid.UUID, status model.EmailStatus, reason string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n, ok := m.db.notifications[id]
	if !ok {
		return model.ErrNotificationNotFound
	}
	n.EmailStatus = status
	n.FailureReason = reason
	return nil
}

func (m *mockNotificationRepository) ListForUser(_ context.Context, userID uuid.UUID, unreadOnly bool) ([]model.Notification, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []model.Notification
	for _, n := range m.db.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			result = append(result, *n)
		}
	}
	return result, nil
}

func (m *mockNotificationRepository) MarkRead(_ context.Context, id, userID uuid.UUID) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n, ok := m.db.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

type mockUserDirectory struct{ db *memDB }

func (m *mockUserDirectory) HasRole(ctx context.Context, userID uuid.UUID, role model.Role) (bool, error) {
	roles, _ := m.Roles(ctx, userID)
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserDirectory) Roles(_ context.Context, userID uuid.UUID) ([]model.Role, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.roles[userID], nil
}

func (m *mockUserDirectory) UsersWithRole(_ context.Context, role model.Role) ([]uuid.UUID, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []uuid.UUID
	for id, roles := range m.db.roles {
		for _, r := range roles {
			if r == role {
				result = append(result, id)
			}
		}
	}
	return result, nil
}

func (m *mockUserDirectory) Email(_ context.Context, userID uuid.UUID) (string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	email, ok := m.db.emails[userID]
	if !ok {
		return "", model.ErrUserNotFound
	}
	return email, nil
}

type mockWishlistRepository struct{ db *memDB }

func (m *mockWishlistRepository) Toggle(_ context.Context, userID, productID uuid.UUID, at time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	items := m.db.wishlist[userID]
	for i, item := range items {
		if item.ProductID == productID {
			m.db.wishlist[userID] = append(items[:i], items[i+1:]...)
			return false, nil
		}
	}
	m.db.wishlist[userID] = append(items, model.WishlistItem{UserID: userID, ProductID: productID, AddedAt: at})
	return true, nil
}

func (m *mockWishlistRepository) List(_ context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return append([]model.WishlistItem(nil), m.db.wishlist[userID]...), nil
}

type mockReferralRepository struct {
	db *memDB
	// taken simulates codes that collide with existing ones.
	taken map[string]bool
}

func (m *mockReferralRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockReferralRepository) CodeFor(_ context.Context, userID uuid.UUID) (string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if code, ok := m.db.codes[userID]; ok {
		return code, nil
	}
	return "", model.ErrReferralNotFound
}

func (m *mockReferralRepository) CreateCode(_ context.Context, userID uuid.UUID, code string) (string, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if existing, ok := m.db.codes[userID]; ok {
		return existing, nil
	}
	if m.taken[code] {
		delete(m.taken, code)
		return "", model.ErrDuplicateReferralCode
	}
	for _, c := range m.db.codes {
		if c == code {
			return "", model.ErrDuplicateReferralCode
		}
	}
	m.db.codes[userID] = code
	return code, nil
}

func (m *mockReferralRepository) CodeOwner(_ context.Context, code string) (uuid.UUID, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for userID, c := range m.db.codes {
		if c == code {
			return userID, nil
		}
	}
	return uuid.Nil, model.ErrReferralNotFound
}

func (m *mockReferralRepository) Create(_ context.Context, r *model.Referral) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, existing := range m.db.referrals {
		if existing.ReferredID != nil && r.ReferredID != nil && *existing.ReferredID == *r.ReferredID {
			return model.ErrReferralAlreadyClaimed
		}
	}
	clone := *r
	m.db.referrals[r.ID] = &clone
	return nil
}

func (m *mockReferralRepository) FindPendingByReferred(_ context.Context, referredID uuid.UUID) (*model.Referral, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, r := range m.db.referrals {
		if r.ReferredID != nil && *r.ReferredID == referredID && r.Status == model.ReferralPending {
			clone := *r
			return &clone, nil
		}
	}
	return nil, model.ErrReferralNotFound
}

func (m *mockReferralRepository) ListByReferrer(_ context.Context, referrerID uuid.UUID) ([]model.Referral, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []model.Referral
	for _, r := range m.db.referrals {
		if r.ReferrerID == referrerID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReferralRepository) Complete(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r, ok := m.db.referrals[id]
	if !ok || r.Status != model.ReferralPending {
		return false, nil
	}
	r.Status = model.ReferralCompleted
	r.CompletedAt = &at
	return true, nil
}

type mockLoyaltyRepository struct{ db *memDB }

func (m *mockLoyaltyRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockLoyaltyRepository) Award(_ context.Context, e *model.LoyaltyEntry) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, existing := range m.db.loyalty {
		if existing.UserID == e.UserID && existing.Reason == e.Reason && existing.SourceID == e.SourceID {
			return false, nil
		}
	}
	m.db.loyalty = append(m.db.loyalty, *e)
	return true, nil
}

func (m *mockLoyaltyRepository) Balance(_ context.Context, userID uuid.UUID) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var total int64
	for _, e := range m.db.loyalty {
		if e.UserID == userID {
			total += e.Points
		}
	}
	return total, nil
}

func (m *mockLoyaltyRepository) Entries(_ context.Context, userID uuid.UUID) ([]model.LoyaltyEntry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []model.LoyaltyEntry
	for _, e := range m.db.loyalty {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	return result, nil
}

type mockContentRepository struct{ db *memDB }

func (m *mockContentRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockContentRepository) Create(_ context.Context, c *model.GeneratedContent) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.content = append(m.db.content, *c)
	return nil
}

func (m *mockContentRepository) List(_ context.Context, kind model.ContentKind) ([]model.GeneratedContent, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var result []model.GeneratedContent
	for _, c := range m.db.content {
		if kind == "" || c.Kind == kind {
			result = append(result, c)
		}
	}
	return result, nil
}

type mockContentGateway struct {
	response json.RawMessage
	err      error
	requests []model.GenerationRequest
}

func (m *mockContentGateway) Generate(_ context.Context, req model.GenerationRequest) (json.RawMessage, error) {
	m.requests = append(m.requests, req)
	return m.response, m.err
}

type mockSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (m *mockSender) Send(_ context.Context, recipient, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, recipient)
	return nil
}

type mockIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]uuid.UUID
}

func (m *mockIdempotencyStore) Reserve(_ context.Context, key string) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.keys[key]; ok {
		return existing, false, nil
	}
	m.keys[key] = uuid.Nil
	return uuid.Nil, true, nil
}

func (m *mockIdempotencyStore) Complete(_ context.Context, key string, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = orderID
	return nil
}

func (m *mockIdempotencyStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockEventDispatcher) Dispatch(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockEventDispatcher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, 0, len(m.events))
	for _, e := range m.events {
		result = append(result, e.Type())
	}
	return result
}
