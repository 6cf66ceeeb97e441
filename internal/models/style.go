package models

import "sort"

// Category groups styles in the catalog
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
	IsActive bool   `json:"is_active"`
}

// CategoryRef is the short category form embedded in a style
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StyleImage is one example image attached to a style
type StyleImage struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	IsPreview bool   `json:"is_preview"`
	SortOrder int    `json:"sort_order"`
}

// Style is a purchasable AI photo-effect preset
type Style struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	CategoryID   int64        `json:"category_id"`
	Price        Price        `json:"price"`
	PreviewImage string       `json:"preview_image"`
	Tags         []string     `json:"tags,omitempty"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    string       `json:"created_at,omitempty"`
	Category     *CategoryRef `json:"category,omitempty"`
	Images       []StyleImage `json:"images,omitempty"`
}

// PreviewURL picks the image to show for the style: the explicit preview
// image, then a preview-flagged image, then the first image by sort order.
func (s Style) PreviewURL() string {
	if s.PreviewImage != "" {
		return s.PreviewImage
	}
	if len(s.Images) == 0 {
		return ""
	}

	images := make([]StyleImage, len(s.Images))
	copy(images, s.Images)
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].SortOrder < images[j].SortOrder
	})
	for _, img := range images {
		if img.IsPreview && img.URL != "" {
			return img.URL
		}
	}
	return images[0].URL
}
