package sandbox

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"

	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (s *Server) setPaymentMode(c *gin.Context) {
	mode := c.Param("mode")
	switch mode {
	case PaymentModeAuto, PaymentModeManual, PaymentModeFail:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment mode " + mode})
		return
	}

	s.setMode(mode)
	log.WithField("mode", mode).Info("Sandbox payment mode changed")
	c.JSON(http.StatusOK, gin.H{"message": "Payment mode set", "mode": mode})
}

func (s *Server) enableChaos(c *gin.Context) {
	s.setChaosEnabled(true)
	log.Info("Chaos mode ENABLED for sandbox status endpoint")
	c.JSON(http.StatusOK, gin.H{
		"message": "Chaos mode enabled",
		"info":    "40% of status requests will fail randomly",
	})
}

func (s *Server) disableChaos(c *gin.Context) {
	s.setChaosEnabled(false)
	log.Info("Chaos mode DISABLED for sandbox status endpoint")
	c.JSON(http.StatusOK, gin.H{"message": "Chaos mode disabled"})
}

func (s *Server) payOrder(c *gin.Context) {
	s.transition(c, func(o *order) bool {
		if o.paymentStatus != models.PaymentStatusPending {
			return false
		}
		s.markPaid(o)
		return true
	})
}

func (s *Server) failOrder(c *gin.Context) {
	s.transition(c, func(o *order) bool {
		if o.paymentStatus != models.PaymentStatusPending {
			return false
		}
		s.markFailed(o)
		return true
	})
}

// completeOrder finishes processing and attaches result images.
func (s *Server) completeOrder(c *gin.Context) {
	s.transition(c, func(o *order) bool {
		if o.paymentStatus == models.PaymentStatusFailed {
			return false
		}
		s.markCompleted(o)
		return true
	})
}

// transition applies fn to the order under the lock. fn reports false when
// the order is in a state the transition does not apply to.
func (s *Server) transition(c *gin.Context, fn func(*order) bool) {
	o, ok := s.lookup(c)
	if !ok {
		return
	}

	s.mutex.Lock()
	applied := fn(o)
	resp := gin.H{
		"id":            o.ID,
		"paymentStatus": o.paymentStatus,
		"status":        o.Status,
	}
	s.mutex.Unlock()

	if !applied {
		c.JSON(http.StatusConflict, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// resultImage serves a generated placeholder for a processed photo.
func (s *Server) resultImage(c *gin.Context) {
	if _, ok := s.lookup(c); !ok {
		return
	}

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}
