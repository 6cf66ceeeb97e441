// Package checkout turns the cart into a paid order: it creates the order,
// hands out the SBP payment payload, waits for the payment and then submits
// the staged photos.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/config"
	"github.com/ashendes/neurophoto-storefront/internal/metrics"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/ashendes/neurophoto-storefront/internal/patterns"
	"github.com/ashendes/neurophoto-storefront/internal/telegram"
	log "github.com/sirupsen/logrus"
)

// State is where a checkout stands
type State string

const (
	StateIdle           State = "idle"
	StateCreating       State = "creating"
	StateWaitingPayment State = "waiting_payment"
	StatePaid           State = "paid"
	StateFailed         State = "failed"
)

// ResultsPerStyle is how many processed images each style yields.
const ResultsPerStyle = 5

var (
	ErrEmptyCart       = errors.New("checkout: cart is empty")
	ErrInvalidTotal    = errors.New("checkout: order total must be greater than 0")
	ErrNoPhotos        = errors.New("checkout: upload at least one photo first")
	ErrInProgress      = errors.New("checkout: an order is already in progress")
	ErrNotWaiting      = errors.New("checkout: no order is waiting for payment")
	ErrPaymentFailed   = errors.New("checkout: payment failed")
	ErrPhotoSubmission = errors.New("checkout: payment succeeded but photo upload failed")
	ErrPollExhausted   = errors.New("checkout: gave up checking payment status")
)

// OrdersAPI is the part of the backend checkout talks to
type OrdersAPI interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error)
	GetOrderStatus(ctx context.Context, id int64) (*models.OrderStatusResponse, error)
}

type Cart interface {
	Items() []models.Style
	Total() models.Price
	Clear() error
}

// Photos is the pending upload set
type Photos interface {
	Len() int
	Clear() error
}

type PhotoSubmitter interface {
	Submit(ctx context.Context, orderID int64) (*models.UploadPhotosResponse, error)
}

// Session remembers the order being paid across restarts
type Session interface {
	ActiveOrder() (*models.ActiveOrder, error)
	SaveActiveOrder(models.ActiveOrder) error
	ClearActiveOrder() error
}

// Navigator is told when an order has been paid and its photos accepted
type Navigator interface {
	OrderSucceeded(orderID int64)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(orderID int64)

func (f NavigatorFunc) OrderSucceeded(orderID int64) { f(orderID) }

// Deps are the collaborators of a Flow
type Deps struct {
	Orders    OrdersAPI
	Cart      Cart
	Photos    Photos
	Submitter PhotoSubmitter
	Session   Session
	Navigator Navigator
}

// PollConfig bounds the payment status poller
type PollConfig struct {
	// Interval is the wait between polls while the payment is pending and
	// the first backoff step after an error.
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
	// MaxErrors is how many failed polls in a row end the wait.
	MaxErrors int
}

// DefaultPollConfig polls every 3s for up to 15 minutes.
var DefaultPollConfig = PollConfig{
	Interval:    3 * time.Second,
	MaxInterval: 30 * time.Second,
	Timeout:     patterns.DefaultPollTimeout,
	MaxErrors:   20,
}

type Options struct {
	Poll PollConfig
	// UploadMode is config.UploadAfterPayment or config.UploadImmediate.
	UploadMode string
	Identity   telegram.Identity
}

// Payment is what the customer needs to pay for a created order
type Payment struct {
	OrderID   int64
	QRCodeURL string
	QRID      string
	DeepLink  string
}

// Summary describes what the customer is about to pay for
type Summary struct {
	Styles          int
	Photos          int
	Total           models.Price
	ExpectedResults int
}

// Flow drives one checkout at a time
type Flow struct {
	deps Deps
	opts Options

	mu        sync.Mutex
	state     State
	active    *models.ActiveOrder
	status    string
	finalized bool
	awaiting  bool
}

func New(deps Deps, opts Options) *Flow {
	if opts.Poll.Interval <= 0 {
		opts.Poll.Interval = DefaultPollConfig.Interval
	}
	if opts.Poll.MaxInterval < opts.Poll.Interval {
		opts.Poll.MaxInterval = opts.Poll.Interval
	}
	if opts.Poll.MaxErrors < 1 {
		opts.Poll.MaxErrors = DefaultPollConfig.MaxErrors
	}
	if opts.UploadMode == "" {
		opts.UploadMode = config.UploadAfterPayment
	}
	if opts.Identity.TelegramUserID == "" {
		opts.Identity = telegram.FallbackIdentity
	}
	return &Flow{deps: deps, opts: opts, state: StateIdle}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Active returns the order being paid, if any.
func (f *Flow) Active() *Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return nil
	}
	return paymentFor(*f.active)
}

func (f *Flow) Summary() Summary {
	styles := f.deps.Cart.Items()
	return Summary{
		Styles:          len(styles),
		Photos:          f.deps.Photos.Len(),
		Total:           f.deps.Cart.Total(),
		ExpectedResults: len(styles) * ResultsPerStyle,
	}
}

// Start creates an order for the current cart.
func (f *Flow) Start(ctx context.Context) (*Payment, error) {
	f.mu.Lock()
	if err := f.checkStart(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.state = StateCreating
	f.mu.Unlock()

	styles := f.deps.Cart.Items()
	total := f.deps.Cart.Total()
	req := models.CreateOrderRequest{
		TelegramUserID: f.opts.Identity.TelegramUserID,
		Username:       f.opts.Identity.Username,
		FirstName:      f.opts.Identity.FirstName,
		Styles:         styles,
		Price:          total,
	}

	createCtx, cancel := patterns.WithTimeout(ctx, patterns.DefaultTimeout)
	defer cancel()

	resp, err := f.deps.Orders.CreateOrder(createCtx, req)
	if err != nil {
		f.setState(StateFailed)
		metrics.OrdersTotal.WithLabelValues("create_failed").Inc()
		log.WithField("total", total.String()).Error("Failed to create order: ", err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	active := models.ActiveOrder{
		OrderID:   resp.ID,
		QRCodeURL: resp.QRCodeURL,
		QRID:      resp.QRID,
		CreatedAt: time.Now(),
	}
	if err := f.deps.Session.SaveActiveOrder(active); err != nil {
		log.WithField("order_id", resp.ID).Warn("Order will not survive a restart: ", err)
	}

	f.mu.Lock()
	f.state = StateWaitingPayment
	f.active = &active
	f.status = ""
	f.finalized = false
	f.mu.Unlock()

	metrics.OrdersTotal.WithLabelValues("created").Inc()
	log.WithFields(log.Fields{
		"order_id": resp.ID,
		"styles":   len(styles),
		"total":    total.String(),
	}).Info("Waiting for payment")

	return paymentFor(active), nil
}

// checkStart validates the guards of Start. The caller holds f.mu.
func (f *Flow) checkStart() error {
	switch f.state {
	case StateCreating, StateWaitingPayment:
		return ErrInProgress
	case StatePaid:
		if !f.finalized {
			return ErrInProgress
		}
	}

	if len(f.deps.Cart.Items()) == 0 {
		return ErrEmptyCart
	}
	if !f.deps.Cart.Total().IsPositive() {
		return ErrInvalidTotal
	}
	if f.opts.UploadMode == config.UploadAfterPayment && f.deps.Photos.Len() == 0 {
		return ErrNoPhotos
	}
	return nil
}

// Resume picks up the order saved by an earlier run. It returns nil when
// there is none.
func (f *Flow) Resume() (*Payment, error) {
	active, err := f.deps.Session.ActiveOrder()
	if err != nil {
		return nil, fmt.Errorf("resume checkout: %w", err)
	}
	if active == nil {
		return nil, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateCreating || f.awaiting {
		return nil, ErrInProgress
	}
	f.state = StateWaitingPayment
	f.active = active
	f.status = ""
	f.finalized = false

	log.WithField("order_id", active.OrderID).Info("Resumed order waiting for payment")
	return paymentFor(*active), nil
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func paymentFor(a models.ActiveOrder) *Payment {
	return &Payment{
		OrderID:   a.OrderID,
		QRCodeURL: a.QRCodeURL,
		QRID:      a.QRID,
		DeepLink:  DeepLink(a.QRCodeURL),
	}
}
