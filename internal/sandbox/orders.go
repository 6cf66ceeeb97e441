package sandbox

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/metrics"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/ashendes/neurophoto-storefront/internal/telegram"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MaxPhotos is how many source photos one upload may carry.
const MaxPhotos = 3

// createOrder validates the cart snapshot against the catalog and opens a
// pending SBP payment for it.
func (s *Server) createOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.OrdersTotal.WithLabelValues("validation_failed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	total, styles, err := s.validateOrder(&req)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues("validation_failed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: " + err.Error()})
		return
	}

	qrID := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))

	s.mutex.Lock()
	id := s.nextID
	s.nextID++
	o := &order{
		Order: models.Order{
			ID:             id,
			TelegramUserID: req.TelegramUserID,
			Username:       req.Username,
			FirstName:      req.FirstName,
			TotalPrice:     total,
			Status:         models.OrderStatusPending,
			Photos:         models.JSONList[string]{},
			ResultPhotos:   models.JSONList[string]{},
			Styles:         styles,
			CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		},
		paymentStatus: models.PaymentStatusPending,
		qrID:          qrID,
	}
	s.orders[id] = o
	s.mutex.Unlock()

	amount, _ := total.Float64()
	metrics.PaymentAmount.Observe(amount)
	metrics.OrdersTotal.WithLabelValues("created").Inc()

	log.WithFields(log.Fields{
		"order_id": id,
		"user_id":  req.TelegramUserID,
		"styles":   len(styles),
		"total":    total.String(),
	}).Info("Sandbox order created")

	c.JSON(http.StatusOK, models.CreateOrderResponse{
		ID:        id,
		QRCodeURL: qrURL(qrID, total),
		QRID:      qrID,
	})
}

// validateOrder prices the order from the catalog. The client's price must
// match the catalog total.
func (s *Server) validateOrder(req *models.CreateOrderRequest) (models.Price, models.JSONList[models.OrderStyle], error) {
	if strings.TrimSpace(req.TelegramUserID) == "" {
		return models.Price{}, nil, fmt.Errorf("telegramUserId is required")
	}
	if len(req.Styles) == 0 {
		return models.Price{}, nil, fmt.Errorf("order must contain at least one style")
	}

	seen := make(map[int64]bool, len(req.Styles))
	styles := make(models.JSONList[models.OrderStyle], 0, len(req.Styles))
	prices := make([]models.Price, 0, len(req.Styles))
	for _, st := range req.Styles {
		if seen[st.ID] {
			return models.Price{}, nil, fmt.Errorf("style %d: listed twice", st.ID)
		}
		seen[st.ID] = true

		known, ok := s.findStyle(st.ID)
		if !ok || !known.IsActive {
			return models.Price{}, nil, fmt.Errorf("unknown style %d", st.ID)
		}
		styles = append(styles, models.OrderStyle{ID: known.ID, Name: known.Name, Price: known.Price})
		prices = append(prices, known.Price)
	}

	total := models.SumPrices(prices...)
	if !total.Equal(req.Price.Decimal) {
		return models.Price{}, nil, fmt.Errorf("price %s does not match catalog total %s", req.Price.String(), total.String())
	}
	return total, styles, nil
}

func qrURL(qrID string, total models.Price) string {
	kopecks := total.Shift(2).IntPart()
	return fmt.Sprintf("https://qr.nspk.ru/%s?type=02&bank=100000000111&sum=%d&cur=RUB", qrID, kopecks)
}

func (s *Server) getOrder(c *gin.Context) {
	o, ok := s.lookup(c)
	if !ok {
		return
	}

	s.mutex.RLock()
	view := s.orderView(c, o)
	s.mutex.RUnlock()
	c.JSON(http.StatusOK, view)
}

// getOrderStatus reports the payment status. In auto and fail modes a
// pending order resolves once it has been polled AutoPayAfter times.
func (s *Server) getOrderStatus(c *gin.Context) {
	if s.getChaosEnabled() && rand.Float32() < 0.4 {
		log.Warn("Chaos: Simulated status failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status temporarily unavailable"})
		return
	}

	o, ok := s.lookup(c)
	if !ok {
		return
	}

	s.mutex.Lock()
	o.polls++
	if o.paymentStatus == models.PaymentStatusPending && s.opts.AutoPayAfter > 0 && o.polls >= s.opts.AutoPayAfter {
		switch s.getMode() {
		case PaymentModeAuto:
			s.markPaid(o)
		case PaymentModeFail:
			s.markFailed(o)
		}
	}
	resp := models.OrderStatusResponse{PaymentStatus: o.paymentStatus, Status: o.Status}
	s.mutex.Unlock()

	c.JSON(http.StatusOK, resp)
}

// uploadPhotos accepts one to three files in repeated "photos" fields.
func (s *Server) uploadPhotos(c *gin.Context) {
	o, ok := s.lookup(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "failed to parse multipart form: " + err.Error(),
		})
		return
	}

	var files []*multipart.FileHeader
	if form := c.Request.MultipartForm; form != nil {
		files = form.File["photos"]
	}
	if len(files) == 0 || len(files) > MaxPhotos {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": fmt.Sprintf("expected 1 to %d files in field photos, got %d", MaxPhotos, len(files)),
		})
		return
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, fmt.Sprintf("uploads/%d/%s", o.ID, f.Filename))
	}

	s.mutex.Lock()
	o.Photos = append(models.JSONList[string]{}, names...)
	s.mutex.Unlock()

	log.WithFields(log.Fields{
		"order_id": o.ID,
		"photos":   len(names),
	}).Info("Sandbox photos received")

	c.JSON(http.StatusOK, models.UploadPhotosResponse{Success: true, Photos: names})
}

// listUserOrders returns the user's orders newest first. Styles are sent as
// a JSON-encoded string, as the production backend does.
func (s *Server) listUserOrders(c *gin.Context) {
	userID := c.Param("telegramUserId")
	if v, ok := c.Get("telegram_user"); ok {
		if u := v.(telegram.User); strconv.FormatInt(u.ID, 10) != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "orders belong to another user"})
			return
		}
	}

	s.mutex.RLock()
	result := make([]gin.H, 0)
	for id := s.nextID - 1; id >= 1; id-- {
		o, ok := s.orders[id]
		if !ok || o.TelegramUserID != userID {
			continue
		}
		view := s.orderView(c, o)
		styles, _ := json.Marshal(view.Styles)
		result = append(result, gin.H{
			"id":               view.ID,
			"telegram_user_id": view.TelegramUserID,
			"username":         view.Username,
			"first_name":       view.FirstName,
			"total_price":      view.TotalPrice.String(),
			"status":           view.Status,
			"photos":           view.Photos,
			"result_photos":    view.ResultPhotos,
			"styles":           string(styles),
			"created_at":       view.CreatedAt,
		})
	}
	s.mutex.RUnlock()

	c.JSON(http.StatusOK, result)
}

// orderView resolves result photo paths against the request host. The
// caller holds s.mutex.
func (s *Server) orderView(c *gin.Context, o *order) models.Order {
	view := o.Order
	view.Photos = append(models.JSONList[string]{}, o.Photos...)
	view.Styles = append(models.JSONList[models.OrderStyle]{}, o.Styles...)
	view.ResultPhotos = make(models.JSONList[string], 0, len(o.ResultPhotos))
	for _, p := range o.ResultPhotos {
		view.ResultPhotos = append(view.ResultPhotos, baseURL(c)+p)
	}
	return view
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// lookup resolves :id, writing a 400 or 404 when it cannot.
func (s *Server) lookup(c *gin.Context) (*order, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return nil, false
	}

	s.mutex.RLock()
	o, exists := s.orders[id]
	s.mutex.RUnlock()
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Order not found",
			"order_id": id,
		})
		return nil, false
	}
	return o, true
}

// The caller holds s.mutex for the mark* helpers.

func (s *Server) markPaid(o *order) {
	o.paymentStatus = models.PaymentStatusPaid
	o.Status = models.OrderStatusProcessing
	metrics.OrdersTotal.WithLabelValues("paid").Inc()
	log.WithField("order_id", o.ID).Info("Sandbox order paid")
}

func (s *Server) markFailed(o *order) {
	o.paymentStatus = models.PaymentStatusFailed
	o.Status = models.OrderStatusCancelled
	metrics.OrdersTotal.WithLabelValues("failed").Inc()
	log.WithField("order_id", o.ID).Info("Sandbox order payment failed")
}

func (s *Server) markCompleted(o *order) {
	if o.paymentStatus != models.PaymentStatusPaid {
		s.markPaid(o)
	}
	o.Status = models.OrderStatusCompleted
	results := make(models.JSONList[string], 0, len(o.Styles)*ResultsPerStyle)
	for i := 1; i <= len(o.Styles)*ResultsPerStyle; i++ {
		results = append(results, fmt.Sprintf("/sandbox/results/%d/%d.jpg", o.ID, i))
	}
	o.ResultPhotos = results
	metrics.OrdersTotal.WithLabelValues("completed").Inc()
}
