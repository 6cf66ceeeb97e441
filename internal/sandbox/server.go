// Package sandbox is an in-memory stand-in for the neuro-photo backend. It
// serves the catalog and order routes the storefront uses, plus control
// endpoints that drive payment outcomes during local development and tests.
package sandbox

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/metrics"
	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/ashendes/neurophoto-storefront/internal/telegram"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const serviceName = "sandbox"

// Payment modes decide how pending orders resolve on status polls
const (
	PaymentModeAuto   = "auto"
	PaymentModeManual = "manual"
	PaymentModeFail   = "fail"
)

// ResultsPerStyle is how many processed images a completed order gets per style.
const ResultsPerStyle = 5

const initDataMaxAge = 24 * time.Hour

type Options struct {
	OrdersPrefix string
	// BotToken enables init data signature checks on order routes.
	BotToken string
	// AutoPayAfter resolves a pending order after this many status polls in
	// auto mode. Zero disables auto resolution.
	AutoPayAfter int
	Styles       []models.Style
	Categories   []models.Category
	AccessLog    bool
}

type order struct {
	models.Order
	paymentStatus string
	qrID          string
	polls         int
}

// Server holds the sandbox state
type Server struct {
	opts       Options
	styles     []models.Style
	categories []models.Category

	mutex  sync.RWMutex
	orders map[int64]*order
	nextID int64

	modeMutex    sync.RWMutex
	mode         string
	chaosEnabled bool
}

// New creates a sandbox seeded with opts.Styles and opts.Categories, or with
// the default catalog when both are empty.
func New(opts Options) *Server {
	styles, categories := opts.Styles, opts.Categories
	if len(styles) == 0 && len(categories) == 0 {
		styles, categories = DefaultCatalog()
	}

	s := &Server{
		opts:       opts,
		styles:     styles,
		categories: categories,
		orders:     make(map[int64]*order),
		nextID:     1,
	}
	s.setMode(PaymentModeAuto)
	return s
}

// Router builds the gin engine serving every sandbox route.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if s.opts.AccessLog {
		router.Use(gin.Logger())
	}
	router.Use(metrics.PrometheusMiddleware(serviceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/styles", s.listStyles)
	router.GET("/styles/search", s.searchStyles)
	router.GET("/styles/:id", s.getStyle)
	router.GET("/categories", s.listCategories)
	router.GET("/categories/active", s.listActiveCategories)

	orders := router.Group(ordersPrefix(s.opts.OrdersPrefix))
	orders.Use(s.initDataMiddleware())
	orders.POST("/orders", s.createOrder)
	orders.GET("/orders/user/:telegramUserId", s.listUserOrders)
	orders.GET("/orders/:id", s.getOrder)
	orders.GET("/orders/:id/status", s.getOrderStatus)
	orders.POST("/orders/:id/photos", s.uploadPhotos)

	control := router.Group("/sandbox")
	control.GET("/status", s.getStatus)
	control.POST("/payment-mode/:mode", s.setPaymentMode)
	control.POST("/chaos/enable", s.enableChaos)
	control.POST("/chaos/disable", s.disableChaos)
	control.POST("/orders/:id/pay", s.payOrder)
	control.POST("/orders/:id/fail", s.failOrder)
	control.POST("/orders/:id/complete", s.completeOrder)
	control.GET("/results/:id/:n", s.resultImage)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func ordersPrefix(p string) string {
	p = "/" + strings.Trim(p, "/")
	if p == "/" {
		return ""
	}
	return p
}

// initDataMiddleware checks x-telegram-init-data when a bot token is
// configured and stores the verified user in the context.
func (s *Server) initDataMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.BotToken == "" {
			c.Next()
			return
		}

		raw := c.GetHeader(telegram.HeaderInitData)
		data, err := telegram.Validate(raw, s.opts.BotToken, initDataMaxAge)
		if err != nil {
			log.WithField("path", c.FullPath()).Warn("Rejected init data: ", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid init data",
			})
			return
		}

		if data.User != nil {
			c.Set("telegram_user", *data.User)
		}
		c.Next()
	}
}

func (s *Server) getStatus(c *gin.Context) {
	s.mutex.RLock()
	count := len(s.orders)
	s.mutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"service":       serviceName,
		"status":        "healthy",
		"payment_mode":  s.getMode(),
		"chaos_enabled": s.getChaosEnabled(),
		"orders":        count,
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}

func (s *Server) setMode(mode string) {
	s.modeMutex.Lock()
	defer s.modeMutex.Unlock()
	s.mode = mode

	for _, m := range []string{PaymentModeAuto, PaymentModeManual, PaymentModeFail} {
		v := 0.0
		if m == mode {
			v = 1
		}
		metrics.SandboxPaymentMode.WithLabelValues(m).Set(v)
	}
}

func (s *Server) getMode() string {
	s.modeMutex.RLock()
	defer s.modeMutex.RUnlock()
	return s.mode
}

func (s *Server) setChaosEnabled(enabled bool) {
	s.modeMutex.Lock()
	defer s.modeMutex.Unlock()
	s.chaosEnabled = enabled
}

func (s *Server) getChaosEnabled() bool {
	s.modeMutex.RLock()
	defer s.modeMutex.RUnlock()
	return s.chaosEnabled
}
