package dto

import "encoding/json"

type UpdateSettingsRequest struct {
	Section string          `json:"section" validate:"required,oneof=general notification payment_methods security"`
	Data    json.RawMessage `json:"data" validate:"required"`
}

type FeePreviewRequest struct {
	Method string `json:"method" validate:"required"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

type FeePreviewResponse struct {
	Method string `json:"method"`
	Amount int64  `json:"amount"`
	Fee    int64  `json:"fee"`
	Total  int64  `json:"total"`
}
