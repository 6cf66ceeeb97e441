package checkout_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/api"
	"github.com/ashendes/neurophoto-storefront/internal/cart"
	"github.com/ashendes/neurophoto-storefront/internal/checkout"
	"github.com/ashendes/neurophoto-storefront/internal/config"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/ashendes/neurophoto-storefront/internal/store"
	"github.com/ashendes/neurophoto-storefront/internal/telegram"
	"github.com/ashendes/neurophoto-storefront/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	status string
	err    error
}

type scriptedAPI struct {
	mu        sync.Mutex
	replies   []reply
	polls     int
	createErr error
	requests  []models.CreateOrderRequest
}

func (s *scriptedAPI) CreateOrder(_ context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.requests = append(s.requests, req)
	return &models.CreateOrderResponse{
		ID:        int64(100 + len(s.requests)),
		QRCodeURL: "https://qr.nspk.ru/AD10000?type=02&bank=100000000111",
		QRID:      "AD10000",
	}, nil
}

func (s *scriptedAPI) GetOrderStatus(_ context.Context, _ int64) (*models.OrderStatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.polls
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	s.polls++
	r := s.replies[i]
	if r.err != nil {
		return nil, r.err
	}
	return &models.OrderStatusResponse{PaymentStatus: r.status}, nil
}

type countingSubmitter struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (c *countingSubmitter) Submit(_ context.Context, orderID int64) (*models.UploadPhotosResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail != nil {
		return nil, c.fail
	}
	return &models.UploadPhotosResponse{Success: true}, nil
}

type recordingNavigator struct {
	mu     sync.Mutex
	orders []int64
}

func (r *recordingNavigator) OrderSucceeded(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, id)
}

type fixture struct {
	api       *scriptedAPI
	store     *store.Store
	cart      *cart.Store
	stager    *upload.Stager
	submitter *countingSubmitter
	navigator *recordingNavigator
	path      string
}

var fastPoll = checkout.PollConfig{
	Interval:    time.Millisecond,
	MaxInterval: 5 * time.Millisecond,
	Timeout:     5 * time.Second,
	MaxErrors:   5,
}

func newFixture(t *testing.T, replies ...reply) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkout.db")
	s, err := store.Open(path, "tab")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	c, err := cart.New(s)
	require.NoError(t, err)
	_, err = c.Add(models.Style{ID: 1, Name: "Studio Noir", Price: models.NewPrice(299)})
	require.NoError(t, err)

	stager, err := upload.NewStager(s)
	require.NoError(t, err)
	require.NoError(t, stager.Add(models.StagedPhoto{
		FileName: "me.jpg",
		MimeType: "image/jpeg",
		DataURL:  upload.EncodeDataURL("image/jpeg", []byte{0xff, 0xd8, 0xff}),
	}))

	return &fixture{
		api:       &scriptedAPI{replies: replies},
		store:     s,
		cart:      c,
		stager:    stager,
		submitter: &countingSubmitter{},
		navigator: &recordingNavigator{},
		path:      path,
	}
}

func (fx *fixture) flow(opts checkout.Options) *checkout.Flow {
	if opts.Poll == (checkout.PollConfig{}) {
		opts.Poll = fastPoll
	}
	return checkout.New(checkout.Deps{
		Orders:    fx.api,
		Cart:      fx.cart,
		Photos:    fx.stager,
		Submitter: fx.submitter,
		Session:   fx.store,
		Navigator: fx.navigator,
	}, opts)
}

func TestAwait_ProcessingThenPaid(t *testing.T) {
	fx := newFixture(t, reply{status: "processing"}, reply{status: "paid"})
	flow := fx.flow(checkout.Options{})

	payment, err := flow.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, checkout.StateWaitingPayment, flow.State())

	require.NoError(t, flow.Await(context.Background()))
	assert.Equal(t, checkout.StatePaid, flow.State())
	assert.Equal(t, 1, fx.submitter.calls)
	assert.Equal(t, []int64{payment.OrderID}, fx.navigator.orders)

	assert.Equal(t, 0, fx.cart.Len())
	assert.Equal(t, 0, fx.stager.Len())
	active, err := fx.store.ActiveOrder()
	require.NoError(t, err)
	assert.Nil(t, active)

	assert.ErrorIs(t, flow.Await(context.Background()), checkout.ErrNotWaiting)
	assert.Equal(t, 1, fx.submitter.calls)
	assert.Len(t, fx.navigator.orders, 1)
}

func TestAwait_FailedStopsWithoutSubmission(t *testing.T) {
	fx := newFixture(t, reply{status: "pending"}, reply{status: "failed"}, reply{status: "paid"})
	flow := fx.flow(checkout.Options{})

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, flow.Await(context.Background()), checkout.ErrPaymentFailed)
	assert.Equal(t, checkout.StateFailed, flow.State())
	assert.Equal(t, 2, fx.api.polls)
	assert.Zero(t, fx.submitter.calls)
	assert.Empty(t, fx.navigator.orders)
	assert.Equal(t, 1, fx.cart.Len())
	assert.Equal(t, 1, fx.stager.Len())
}

func TestAwait_TransientErrorsKeepPolling(t *testing.T) {
	flaky := errors.New("connection reset by peer")
	fx := newFixture(t,
		reply{err: flaky},
		reply{err: &api.Error{StatusCode: http.StatusBadGateway}},
		reply{status: "pending"},
		reply{err: flaky},
		reply{status: "paid"},
	)
	flow := fx.flow(checkout.Options{})

	_, err := flow.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, flow.Await(context.Background()))
	assert.Equal(t, 5, fx.api.polls)
	assert.Len(t, fx.navigator.orders, 1)
}

func TestAwait_ErrorBudgetExhausted(t *testing.T) {
	fx := newFixture(t, reply{err: errors.New("dial tcp: connection refused")})
	poll := fastPoll
	poll.MaxErrors = 3
	flow := fx.flow(checkout.Options{Poll: poll})

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	err = flow.Await(context.Background())
	assert.ErrorIs(t, err, checkout.ErrPollExhausted)
	assert.Equal(t, 3, fx.api.polls)
	assert.Equal(t, checkout.StateWaitingPayment, flow.State())
	assert.Zero(t, fx.submitter.calls)
}

func TestAwait_NonTransientErrorStops(t *testing.T) {
	fx := newFixture(t, reply{err: &api.Error{StatusCode: http.StatusNotFound}})
	flow := fx.flow(checkout.Options{})

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	err = flow.Await(context.Background())
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, 1, fx.api.polls)
}

func TestAwait_TimeoutLeavesOrderWaiting(t *testing.T) {
	fx := newFixture(t, reply{status: "pending"})
	poll := fastPoll
	poll.Timeout = 30 * time.Millisecond
	flow := fx.flow(checkout.Options{Poll: poll})

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, flow.Await(context.Background()), context.DeadlineExceeded)
	assert.Equal(t, checkout.StateWaitingPayment, flow.State())
	assert.NotNil(t, flow.Active())
}

func TestAwait_IgnoresStatusRegression(t *testing.T) {
	fx := newFixture(t, reply{status: "processing"}, reply{status: "pending"}, reply{status: "completed"})
	flow := fx.flow(checkout.Options{})

	_, err := flow.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, flow.Await(context.Background()))
	assert.Len(t, fx.navigator.orders, 1)
}

func TestAwait_PhotoFailureKeepsStateForRetry(t *testing.T) {
	fx := newFixture(t, reply{status: "paid"})
	fx.submitter.fail = errors.New("413 request entity too large")
	flow := fx.flow(checkout.Options{})

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, flow.Await(context.Background()), checkout.ErrPhotoSubmission)
	assert.Equal(t, checkout.StatePaid, flow.State())
	assert.Equal(t, 1, fx.cart.Len())
	assert.Equal(t, 1, fx.stager.Len())
	assert.Empty(t, fx.navigator.orders)

	fx.submitter.fail = nil
	require.NoError(t, flow.Await(context.Background()))
	assert.Equal(t, 2, fx.submitter.calls)
	assert.Len(t, fx.navigator.orders, 1)
	assert.Equal(t, 1, fx.api.polls)
}

func TestStart_Guards(t *testing.T) {
	fx := newFixture(t, reply{status: "pending"})
	flow := fx.flow(checkout.Options{})

	require.NoError(t, fx.stager.Clear())
	_, err := flow.Start(context.Background())
	assert.ErrorIs(t, err, checkout.ErrNoPhotos)

	immediate := fx.flow(checkout.Options{UploadMode: config.UploadImmediate})
	_, err = immediate.Start(context.Background())
	require.NoError(t, err)
	_, err = immediate.Start(context.Background())
	assert.ErrorIs(t, err, checkout.ErrInProgress)

	require.NoError(t, fx.cart.Clear())
	_, err = fx.flow(checkout.Options{UploadMode: config.UploadImmediate}).Start(context.Background())
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)

	_, err = fx.cart.Add(models.Style{ID: 9, Name: "Free", Price: models.NewPrice(0)})
	require.NoError(t, err)
	_, err = fx.flow(checkout.Options{UploadMode: config.UploadImmediate}).Start(context.Background())
	assert.ErrorIs(t, err, checkout.ErrInvalidTotal)
}

func TestStart_SendsIdentityAndCart(t *testing.T) {
	fx := newFixture(t, reply{status: "pending"})
	flow := fx.flow(checkout.Options{
		Identity: telegram.Identity{TelegramUserID: "42", Username: "ann", FirstName: "Ann"},
	})

	payment, err := flow.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payment.QRCodeURL, payment.DeepLink)

	require.Len(t, fx.api.requests, 1)
	req := fx.api.requests[0]
	assert.Equal(t, "42", req.TelegramUserID)
	assert.Equal(t, "Ann", req.FirstName)
	assert.Equal(t, "299", req.Price.String())
	require.Len(t, req.Styles, 1)

	summary := flow.Summary()
	assert.Equal(t, 1, summary.Styles)
	assert.Equal(t, 1, summary.Photos)
	assert.Equal(t, checkout.ResultsPerStyle, summary.ExpectedResults)
}

func TestStart_FallbackIdentity(t *testing.T) {
	fx := newFixture(t, reply{status: "pending"})
	_, err := fx.flow(checkout.Options{}).Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, telegram.FallbackIdentity.TelegramUserID, fx.api.requests[0].TelegramUserID)
}

func TestStart_CreateFailure(t *testing.T) {
	fx := newFixture(t, reply{status: "pending"})
	fx.api.createErr = errors.New("backend down")
	flow := fx.flow(checkout.Options{})

	_, err := flow.Start(context.Background())
	assert.Error(t, err)
	assert.Equal(t, checkout.StateFailed, flow.State())

	fx.api.createErr = nil
	_, err = flow.Start(context.Background())
	assert.NoError(t, err)
}

func TestResume_RestoresSessionOrder(t *testing.T) {
	fx := newFixture(t, reply{status: "paid"})
	payment, err := fx.flow(checkout.Options{}).Start(context.Background())
	require.NoError(t, err)

	resumed := fx.flow(checkout.Options{})
	got, err := resumed.Resume()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, payment.OrderID, got.OrderID)

	require.NoError(t, resumed.Await(context.Background()))
	assert.Equal(t, []int64{payment.OrderID}, fx.navigator.orders)

	none, err := fx.flow(checkout.Options{}).Resume()
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestResume_AfterRestartWithoutSessionID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restart.db")
	scripted := &scriptedAPI{replies: []reply{{status: "pending"}}}

	open := func() (*store.Store, *checkout.Flow) {
		s, err := store.Open(path, "")
		require.NoError(t, err)
		c, err := cart.New(s)
		require.NoError(t, err)
		stager, err := upload.NewStager(s)
		require.NoError(t, err)
		return s, checkout.New(checkout.Deps{
			Orders:    scripted,
			Cart:      c,
			Photos:    stager,
			Submitter: &countingSubmitter{},
			Session:   s,
		}, checkout.Options{Poll: fastPoll, UploadMode: config.UploadImmediate})
	}

	seed, err := store.Open(path, "")
	require.NoError(t, err)
	require.NoError(t, seed.SaveCart([]models.Style{{ID: 1, Name: "Studio Noir", Price: models.NewPrice(299)}}))
	require.NoError(t, seed.Close())

	first, flow := open()
	payment, err := flow.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, restarted := open()
	t.Cleanup(func() { second.Close() })

	got, err := restarted.Resume()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, payment.OrderID, got.OrderID)
	assert.Equal(t, checkout.StateWaitingPayment, restarted.State())
	assert.Len(t, scripted.requests, 1)
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "bank100000000111://pay?id=1",
		checkout.DeepLink("https://bank.example/redirect?link=bank100000000111%3A%2F%2Fpay%3Fid%3D1"))
	assert.Equal(t, "https://qr.nspk.ru/AD1?type=02", checkout.DeepLink("https://qr.nspk.ru/AD1?type=02"))
	assert.Equal(t, "bank100000000111://x", checkout.DeepLink("bank100000000111://x"))
}

func TestDeepLink_KeepsPlusInSignature(t *testing.T) {
	assert.Equal(t, "https://qr.nspk.ru/AD1?sign=a+b",
		checkout.DeepLink("https://bank.example/redirect?link=https%3A%2F%2Fqr.nspk.ru%2FAD1%3Fsign%3Da%252Bb"))
	assert.Equal(t, "https://qr.nspk.ru/AD1?sign=a+b",
		checkout.DeepLink("https://bank.example/redirect?link=https%3A%2F%2Fqr.nspk.ru%2FAD1%3Fsign%3Da%2Bb"))
}

func TestRenderQR(t *testing.T) {
	art, err := checkout.RenderQR("https://qr.nspk.ru/AD1")
	require.NoError(t, err)
	assert.Greater(t, strings.Count(art, "\n"), 10)

	path := filepath.Join(t.TempDir(), "qr.png")
	require.NoError(t, checkout.WriteQRPNG("https://qr.nspk.ru/AD1", path, 128))
}
