// internal/domain/payment/dto.go
package payment

type SubmitPaymentRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Currency      string  `json:"currency" binding:"required,len=3"`
	TransactionID string  `json:"transaction_id" binding:"required,max=100"`
}

type ReviewPaymentRequest struct {
	Note string `json:"note" binding:"max=500"`
}

type PaymentListFilters struct {
	Status       *Status `form:"status"`
	RestaurantID *int64  `form:"restaurant_id"`
	Page         int     `form:"page"`
	PageSize     int     `form:"page_size"`
}

type PaymentListResponse struct {
	Payments   []ManualPayment `json:"payments"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}
