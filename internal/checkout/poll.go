package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/api"
	"github.com/ashendes/neurophoto-storefront/internal/metrics"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/ashendes/neurophoto-storefront/internal/patterns"
	log "github.com/sirupsen/logrus"
)

// Await polls the payment status of the active order until it is paid or
// failed. Polls run one at a time. On a paid order the staged photos are
// submitted, local state is cleared and the navigator is told, once.
//
// When ctx ends or the poll timeout passes, Await returns the context error
// and the order stays waiting so a later Await can pick it up.
func (f *Flow) Await(ctx context.Context) error {
	f.mu.Lock()
	if f.awaiting {
		f.mu.Unlock()
		return ErrInProgress
	}
	f.awaiting = true
	state, active := f.state, f.active
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.awaiting = false
		f.mu.Unlock()
	}()

	if active == nil {
		return ErrNotWaiting
	}
	switch state {
	case StatePaid:
		// a previous photo submission failed
		return f.finalize(ctx, active.OrderID)
	case StateWaitingPayment:
	default:
		return ErrNotWaiting
	}

	outcome, err := f.poll(ctx, active.OrderID)
	if err != nil {
		return err
	}

	if outcome == models.PaymentOutcomeFailed {
		f.setState(StateFailed)
		metrics.OrdersTotal.WithLabelValues("payment_failed").Inc()
		log.WithField("order_id", active.OrderID).Error("Payment failed")
		if err := f.deps.Session.ClearActiveOrder(); err != nil {
			log.WithField("order_id", active.OrderID).Warn("Failed to clear session order: ", err)
		}
		return ErrPaymentFailed
	}

	f.setState(StatePaid)
	metrics.OrdersTotal.WithLabelValues("paid").Inc()
	return f.finalize(ctx, active.OrderID)
}

// poll loops until the status is terminal. Transient errors back off
// exponentially; MaxErrors failures in a row give up.
func (f *Flow) poll(ctx context.Context, orderID int64) (models.PaymentOutcome, error) {
	ctx, cancel := patterns.WithTimeout(ctx, f.opts.Poll.Timeout)
	defer cancel()

	backoff := patterns.Backoff{
		Initial:    f.opts.Poll.Interval,
		Max:        f.opts.Poll.MaxInterval,
		Multiplier: patterns.DefaultBackoff.Multiplier,
		Jitter:     patterns.DefaultBackoff.Jitter,
	}

	failures := 0
	for attempt := 1; ; attempt++ {
		var delay time.Duration

		resp, err := f.fetchStatus(ctx, orderID)
		switch {
		case err != nil && ctx.Err() != nil:
			return models.PaymentOutcomeWaiting, ctx.Err()

		case err != nil && !api.IsTransient(err):
			metrics.StatusPollsTotal.WithLabelValues("error").Inc()
			return models.PaymentOutcomeWaiting, fmt.Errorf("check payment of order %d: %w", orderID, err)

		case err != nil:
			failures++
			metrics.StatusPollsTotal.WithLabelValues("error").Inc()
			if failures >= f.opts.Poll.MaxErrors {
				log.WithFields(log.Fields{
					"order_id": orderID,
					"failures": failures,
				}).Error("Giving up on payment status")
				return models.PaymentOutcomeWaiting, fmt.Errorf("%w after %d failed attempts: %v", ErrPollExhausted, failures, err)
			}
			delay = backoff.Delay(failures - 1)
			log.WithFields(log.Fields{
				"order_id": orderID,
				"attempt":  attempt,
				"retry_in": delay.String(),
			}).Warn("Payment status check failed: ", err)

		default:
			failures = 0
			outcome := models.ClassifyPayment(f.observe(orderID, resp.Effective()))
			metrics.StatusPollsTotal.WithLabelValues(outcome.String()).Inc()
			if outcome != models.PaymentOutcomeWaiting {
				return outcome, nil
			}
			delay = f.opts.Poll.Interval
		}

		if err := patterns.Sleep(ctx, delay); err != nil {
			return models.PaymentOutcomeWaiting, err
		}
	}
}

func (f *Flow) fetchStatus(ctx context.Context, orderID int64) (*models.OrderStatusResponse, error) {
	reqCtx, cancel := patterns.WithTimeout(ctx, patterns.DefaultTimeout)
	defer cancel()
	return f.deps.Orders.GetOrderStatus(reqCtx, orderID)
}

// observe records status and returns the status to act on. A status
// ranked below the last one seen is ignored.
func (f *Flow) observe(orderID int64, status string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if models.StatusRank(status) < models.StatusRank(f.status) {
		log.WithFields(log.Fields{
			"order_id": orderID,
			"previous": f.status,
			"status":   status,
		}).Warn("Ignoring status regression")
		return f.status
	}
	if status != f.status {
		log.WithFields(log.Fields{
			"order_id": orderID,
			"status":   status,
		}).Debug("Payment status changed")
	}
	f.status = status
	return status
}

// finalize submits the staged photos and clears local state. It runs its
// side effects at most once per order.
func (f *Flow) finalize(ctx context.Context, orderID int64) error {
	f.mu.Lock()
	if f.finalized {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	if f.deps.Photos.Len() > 0 {
		if _, err := f.deps.Submitter.Submit(ctx, orderID); err != nil {
			metrics.OrdersTotal.WithLabelValues("photo_upload_failed").Inc()
			log.WithField("order_id", orderID).Error("Paid order kept its photos: ", err)
			return fmt.Errorf("%w: %v", ErrPhotoSubmission, err)
		}
	} else {
		log.WithField("order_id", orderID).Warn("Paid order has no staged photos to submit")
	}

	f.mu.Lock()
	f.finalized = true
	f.active = nil
	f.mu.Unlock()

	fields := log.Fields{"order_id": orderID}
	if err := f.deps.Cart.Clear(); err != nil {
		log.WithFields(fields).Error("Failed to clear cart: ", err)
	}
	if err := f.deps.Photos.Clear(); err != nil {
		log.WithFields(fields).Error("Failed to clear staged photos: ", err)
	}
	if err := f.deps.Session.ClearActiveOrder(); err != nil {
		log.WithFields(fields).Error("Failed to clear session order: ", err)
	}

	metrics.OrdersTotal.WithLabelValues("completed").Inc()
	log.WithFields(fields).Info("Order paid and photos submitted")

	if f.deps.Navigator != nil {
		f.deps.Navigator.OrderSucceeded(orderID)
	}
	return nil
}
