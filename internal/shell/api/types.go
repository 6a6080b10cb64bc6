package api

import (
	"github.com/artpar/lnstack/internal/core/domain"
)

// =============================================================================
// Request Types
// =============================================================================

// CreateNetworkRequest is the request body for creating a network.
type CreateNetworkRequest struct {
	Name       string `json:"name"`
	Bitcoind   int    `json:"bitcoind"`
	LND        int    `json:"lnd"`
	CLightning int    `json:"clightning"`
	Eclair     int    `json:"eclair"`
}

// Spec converts the request into a network spec.
func (r CreateNetworkRequest) Spec() domain.NetworkSpec {
	return domain.NetworkSpec{
		Bitcoind:   r.Bitcoind,
		LND:        r.LND,
		CLightning: r.CLightning,
		Eclair:     r.Eclair,
	}
}

// =============================================================================
// Response Types
// =============================================================================

// HealthResponse is the response for the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// ImagesResponse lists engine image tags.
type ImagesResponse struct {
	Images []string `json:"images"`
}

// ManifestResponse carries a rendered compose manifest.
type ManifestResponse struct {
	NetworkID int    `json:"network_id"`
	Manifest  string `json:"manifest"`
}

// ErrorResponse is the response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
