package api

import "github.com/seenimoa/kospifeed/pkg/models"

// ItemsResponse is the body of /updates and /news.
type ItemsResponse struct {
	Items []models.Event `json:"items"`
}

// ErrorResponse is the body of every failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	OK bool   `json:"ok"`
	TZ string `json:"tz"`
}

// Fixed failure messages.
const (
	msgUnauthorized    = "Unauthorized"
	msgUpdatesInternal = "Internal Server Error"
	msgQueryRequired   = "query is required"
	msgRateLimited     = "naver rate limit"
	msgNewsInternal    = "internal_error"
)
