package model

// Visual is a reusable image asset that can be printed on products.
type Visual struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name" validate:"required"`
	Image        string   `json:"image" validate:"required"`
	CategoryID   int64    `json:"categoryId"`
	CategoryName string   `json:"categoryName"`
	Tags         []string `json:"tags"`
}

// VisualCategory groups visuals.
type VisualCategory struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}
