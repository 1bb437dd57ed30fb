package dto

// PurchaseRequest starts a purchase for one catalog product.
type PurchaseRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// PauseRequest raises or drops the pause-screen cause.
type PauseRequest struct {
	Paused *bool `json:"paused" validate:"required"`
}
