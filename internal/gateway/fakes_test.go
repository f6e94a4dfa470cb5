package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/PortNumber53/payarc-mid/backend/internal/config"
	"github.com/PortNumber53/payarc-mid/backend/internal/models"
	"github.com/PortNumber53/payarc-mid/backend/internal/payarc"
)

func testGateway() config.Gateway {
	return config.Gateway{
		Enabled:         true,
		Title:           "PayArc.Mid",
		TestMode:        true,
		TestAPIKey:      "test-key",
		WebhookSecret:   "whsec",
		TransactionType: config.TransactionSale,
	}
}

type planCall struct {
	Amount   decimal.Decimal
	Interval string
	Name     string
	Code     string
}

type fakeProcessor struct {
	mu sync.Mutex

	customers     int
	tokens        int
	attaches      int
	plans         []planCall
	subscriptions int
	cancelled     []string

	customerErr     error
	tokenErr        error
	attachErr       error
	planErr         error
	subscriptionErr error
	cancelErr       error

	// block, when set, is waited on inside CreateCustomer.
	block chan struct{}
}

func (f *fakeProcessor) CreateCustomer(ctx context.Context, email, name string, address *payarc.Address) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.customerErr != nil {
		return "", f.customerErr
	}
	f.customers++
	return fmt.Sprintf("cus_%d", f.customers), nil
}

func (f *fakeProcessor) TokenizeCard(ctx context.Context, card models.CardInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	f.tokens++
	return fmt.Sprintf("tok_%d", f.tokens), nil
}

func (f *fakeProcessor) AttachToken(ctx context.Context, customerID, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attaches++
	return nil
}

func (f *fakeProcessor) CreatePlan(ctx context.Context, amount decimal.Decimal, interval, name, planCode string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.planErr != nil {
		return "", f.planErr
	}
	f.plans = append(f.plans, planCall{Amount: amount, Interval: interval, Name: name, Code: planCode})
	return fmt.Sprintf("plan_remote_%d", len(f.plans)), nil
}

func (f *fakeProcessor) CreateSubscription(ctx context.Context, customerID, planID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscriptionErr != nil {
		return "", f.subscriptionErr
	}
	f.subscriptions++
	return fmt.Sprintf("sub_remote_%d", f.subscriptions), nil
}

func (f *fakeProcessor) CancelSubscription(ctx context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, subscriptionID)
	return nil
}

type recordedNote struct {
	ID              int64
	Note            string
	CustomerVisible bool
}

// fakePlatform implements Orders, Subscriptions and PaymentHooks.
type fakePlatform struct {
	mu sync.Mutex

	orders map[int64]*models.Order
	subs   map[int64]*models.Subscription

	orderNotes []recordedNote
	subNotes   []recordedNote

	subStatusWrites int
	successCalls    []int64
	failureCalls    []int64
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		orders: make(map[int64]*models.Order),
		subs:   make(map[int64]*models.Subscription),
	}
}

func (p *fakePlatform) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (p *fakePlatform) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus, note string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	o.Status = status
	p.orderNotes = append(p.orderNotes, recordedNote{ID: id, Note: note})
	return nil
}

func (p *fakePlatform) AddOrderNote(ctx context.Context, id int64, note string, customerVisible bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orderNotes = append(p.orderNotes, recordedNote{ID: id, Note: note, CustomerVisible: customerVisible})
	return nil
}

func (p *fakePlatform) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.subs[id]
	if !ok {
		return nil, models.ErrSubscriptionNotFound
	}
	cp := *s
	return &cp, nil
}

func (p *fakePlatform) UpdateSubscriptionStatus(ctx context.Context, id int64, status models.SubscriptionStatus, note string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.subs[id]
	if !ok {
		return models.ErrSubscriptionNotFound
	}
	s.Status = status
	p.subStatusWrites++
	p.subNotes = append(p.subNotes, recordedNote{ID: id, Note: note})
	return nil
}

func (p *fakePlatform) AddSubscriptionNote(ctx context.Context, id int64, note string, customerVisible bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subNotes = append(p.subNotes, recordedNote{ID: id, Note: note, CustomerVisible: customerVisible})
	return nil
}

func (p *fakePlatform) ProcessPaymentSuccess(ctx context.Context, orderID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.successCalls = append(p.successCalls, orderID)
	if o, ok := p.orders[orderID]; ok {
		o.Status = models.OrderStatusProcessing
	}
	return nil
}

func (p *fakePlatform) ProcessPaymentFailure(ctx context.Context, orderID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failureCalls = append(p.failureCalls, orderID)
	if o, ok := p.orders[orderID]; ok {
		o.Status = models.OrderStatusFailed
	}
	return nil
}

func (p *fakePlatform) orderStatus(id int64) models.OrderStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orders[id].Status
}

func (p *fakePlatform) subStatus(id int64) models.SubscriptionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs[id].Status
}
