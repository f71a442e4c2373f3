package handler

type billingConfigResponse struct {
	ClientToken string            `json:"clientToken"`
	Environment string            `json:"environment"`
	Prices      map[string]string `json:"prices"`
}

type checkoutRequest struct {
	Plan   string `json:"plan"   validate:"required"`
	Period string `json:"period" validate:"required,oneof=monthly annual"`
}

type checkoutResponse struct {
	TransactionID string `json:"transactionId"`
	PriceID       string `json:"priceId"`
	PaymentType   string `json:"paymentType"`
}

type confirmRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
}
