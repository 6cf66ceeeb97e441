package sandbox

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ashendes/neurophoto-storefront/internal/models"
	"github.com/gin-gonic/gin"
)

// DefaultCatalog is the catalog a sandbox starts with.
func DefaultCatalog() ([]models.Style, []models.Category) {
	categories := []models.Category{
		{ID: 1, Name: "Portraits", Order: 1, IsActive: true},
		{ID: 2, Name: "Fantasy", Order: 2, IsActive: true},
		{ID: 3, Name: "Retro", Order: 3, IsActive: false},
	}

	styles := []models.Style{
		{
			ID: 1, Name: "Studio Noir", CategoryID: 1, IsActive: true,
			Description:  "Black and white studio portrait with hard light",
			Price:        models.NewPrice(299),
			PreviewImage: "https://cdn.example.com/styles/noir.jpg",
			Tags:         []string{"portrait", "bw"},
			Category:     &models.CategoryRef{ID: 1, Name: "Portraits"},
		},
		{
			ID: 2, Name: "Business Headshot", CategoryID: 1, IsActive: true,
			Description: "Clean corporate headshot on a neutral background",
			Price:       models.NewPrice(349),
			Tags:        []string{"portrait", "linkedin"},
			Category:    &models.CategoryRef{ID: 1, Name: "Portraits"},
			Images: []models.StyleImage{
				{ID: 21, URL: "https://cdn.example.com/styles/headshot-2.jpg", SortOrder: 2},
				{ID: 20, URL: "https://cdn.example.com/styles/headshot-1.jpg", SortOrder: 1, IsPreview: true},
			},
		},
		{
			ID: 3, Name: "Elven Forest", CategoryID: 2, IsActive: true,
			Description:  "Fairy tale portrait among glowing trees",
			Price:        models.NewPrice(449),
			PreviewImage: "https://cdn.example.com/styles/elven.jpg",
			Tags:         []string{"fantasy"},
			Category:     &models.CategoryRef{ID: 2, Name: "Fantasy"},
		},
		{
			ID: 4, Name: "Cyberpunk City", CategoryID: 2, IsActive: true,
			Description:  "Neon night city with rain reflections",
			Price:        models.NewPrice(499),
			PreviewImage: "https://cdn.example.com/styles/cyber.jpg",
			Tags:         []string{"fantasy", "neon"},
			Category:     &models.CategoryRef{ID: 2, Name: "Fantasy"},
		},
		{
			ID: 5, Name: "Polaroid 1979", CategoryID: 3, IsActive: false,
			Description:  "Faded instant film look",
			Price:        models.NewPrice(199),
			PreviewImage: "https://cdn.example.com/styles/polaroid.jpg",
			Category:     &models.CategoryRef{ID: 3, Name: "Retro"},
		},
	}
	return styles, categories
}

func (s *Server) listStyles(c *gin.Context) {
	var categoryID int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		categoryID = id
	}

	result := make([]models.Style, 0, len(s.styles))
	for _, st := range s.styles {
		if !st.IsActive {
			continue
		}
		if categoryID != 0 && st.CategoryID != categoryID {
			continue
		}
		result = append(result, st)
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) searchStyles(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))

	result := make([]models.Style, 0)
	for _, st := range s.styles {
		if !st.IsActive {
			continue
		}
		if q == "" || matches(st, q) {
			result = append(result, st)
		}
	}
	c.JSON(http.StatusOK, result)
}

func matches(st models.Style, q string) bool {
	if strings.Contains(strings.ToLower(st.Name), q) ||
		strings.Contains(strings.ToLower(st.Description), q) {
		return true
	}
	for _, tag := range st.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (s *Server) getStyle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid style id"})
		return
	}

	st, ok := s.findStyle(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Style not found",
			"style_id": id,
		})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) findStyle(id int64) (models.Style, bool) {
	for _, st := range s.styles {
		if st.ID == id {
			return st, true
		}
	}
	return models.Style{}, false
}

func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.categories)
}

func (s *Server) listActiveCategories(c *gin.Context) {
	result := make([]models.Category, 0, len(s.categories))
	for _, cat := range s.categories {
		if cat.IsActive {
			result = append(result, cat)
		}
	}
	c.JSON(http.StatusOK, result)
}
