package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/harvest-gateway/internal/config"
	"github.com/fairyhunter13/harvest-gateway/internal/domain"
	"github.com/fairyhunter13/harvest-gateway/internal/usecase"
	"github.com/fairyhunter13/harvest-gateway/pkg/textx"
)

// Gateway is the facade surface the edge handlers need.
type Gateway interface {
	VerifyComponent(ctx context.Context, image []byte, mimeType, deviceName, expected string) (domain.VerificationResult, error)
	EstimatePricing(ctx context.Context, q domain.PricingQuery) (domain.PricingResult, error)
	EstimateWaste(ctx context.Context, components []domain.ComponentRef) domain.WasteEstimate
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg          config.Config
	Gateway      Gateway
	RedisCheck   func(ctx context.Context) error
	CatalogCheck func(ctx context.Context) error
}

// NewServer constructs the edge handlers. Nil checks are skipped by /readyz.
func NewServer(cfg config.Config, gw Gateway, redisCheck, catalogCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Gateway: gw, RedisCheck: redisCheck, CatalogCheck: catalogCheck}
}

const (
	maxJSONBody = 1 << 20 // 1MB for the text-only endpoints
	maxNameLen  = 200
)

func (s *Server) maxImageBytes() int64 {
	mb := s.Cfg.MaxImageMB
	if mb <= 0 {
		mb = 8
	}
	return mb << 20
}

// acceptsJSON rejects clients that explicitly refuse JSON.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || strings.Contains(a, "*/*") || strings.Contains(a, "application/json") {
		return true
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{
		Error:   "not acceptable",
		Code:    "INVALID_ARGUMENT",
		Details: map[string]string{"accept": a},
	})
	return false
}

// decodeBody caps, decodes and validates a JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, err, map[string]int64{"max_bytes": limit})
			return false
		}
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if verrs := validateStruct(dst); len(verrs) > 0 {
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

// decodeImage accepts plain base64 or a data URL. A data URL's media type is
// used when the caller did not declare one.
func decodeImage(encoded, declared string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("%w: image data URL must be base64", domain.ErrInvalidArgument)
		}
		if declared == "" {
			declared = strings.TrimSuffix(meta, ";base64")
		}
		encoded = payload
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidArgument)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: image is empty", domain.ErrInvalidArgument)
	}
	return data, declared, nil
}

type verifyComponentRequest struct {
	Image                 string `json:"image" validate:"required"`
	DeviceName            string `json:"deviceName" validate:"max=200"`
	ExpectedComponentName string `json:"expectedComponentName" validate:"required,max=200"`
	MimeType              string `json:"mimeType" validate:"omitempty,max=100"`
}

type verifyComponentResponse struct {
	domain.VerificationResult
	Verified bool `json:"verified"`
}

// VerifyComponentHandler checks that a photo shows the expected component.
func (s *Server) VerifyComponentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		// base64 inflates by 4/3; leave room for the other fields
		limit := s.maxImageBytes()*4/3 + 64<<10
		var req verifyComponentRequest
		if !decodeBody(w, r, limit, &req) {
			return
		}
		image, mimeType, err := decodeImage(req.Image, strings.TrimSpace(req.MimeType))
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "image"})
			return
		}
		if int64(len(image)) > s.maxImageBytes() {
			writeError(w, r, &http.MaxBytesError{Limit: s.maxImageBytes()}, map[string]int64{"max_mb": s.maxImageBytes() >> 20})
			return
		}
		res, err := s.Gateway.VerifyComponent(r.Context(), image, mimeType,
			SanitizeString(req.DeviceName, maxNameLen),
			SanitizeString(req.ExpectedComponentName, maxNameLen))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, verifyComponentResponse{VerificationResult: res, Verified: usecase.IsVerified(res, nil)})
	}
}

type listingPayload struct {
	ID    string  `json:"id" validate:"required,max=100,oneline"`
	Name  string  `json:"name" validate:"required,max=200"`
	Price float64 `json:"price" validate:"gte=0"`
}

type estimateValueRequest struct {
	Listings []listingPayload `json:"listings" validate:"required,min=1,max=200,dive"`
	Currency string           `json:"currency" validate:"omitempty,len=3,alpha"`
}

type pricedListing struct {
	ID       string `json:"id"`
	PriceINR int64  `json:"price_inr"`
}

type estimateValueResponse struct {
	Items    []pricedListing `json:"items"`
	TotalINR int64           `json:"total_inr"`
	Missing  []string        `json:"missing,omitempty"`
}

// EstimateValueHandler converts listing prices to whole INR.
func (s *Server) EstimateValueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req estimateValueRequest
		if !decodeBody(w, r, maxJSONBody, &req) {
			return
		}
		// ids go to the provider folded to one line; answers are keyed the same way
		listings := make([]domain.Listing, 0, len(req.Listings))
		ids := make([]string, 0, len(req.Listings))
		for _, l := range req.Listings {
			ids = append(ids, strings.TrimSpace(l.ID))
			listings = append(listings, domain.Listing{
				ID:    textx.SingleLine(l.ID),
				Name:  SanitizeString(l.Name, maxNameLen),
				Price: l.Price,
			})
		}
		res, err := s.Gateway.EstimatePricing(r.Context(), usecase.ListingsQuery(listings, strings.ToUpper(req.Currency)))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := estimateValueResponse{Items: make([]pricedListing, 0, len(listings))}
		for i, l := range listings {
			p, ok := res.Prices[l.ID]
			if !ok {
				out.Missing = append(out.Missing, ids[i])
				continue
			}
			out.Items = append(out.Items, pricedListing{ID: ids[i], PriceINR: p})
			out.TotalINR += p
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type estimateWasteRequest struct {
	Components []domain.ComponentRef `json:"components" validate:"max=500"`
}

// EstimateWasteHandler always answers 200 once the body is readable.
func (s *Server) EstimateWasteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req estimateWasteRequest
		if !decodeBody(w, r, maxJSONBody, &req) {
			return
		}
		comps := make([]domain.ComponentRef, 0, len(req.Components))
		for _, c := range req.Components {
			comps = append(comps, domain.ComponentRef{
				Name:   SanitizeString(c.Name, maxNameLen),
				Device: SanitizeString(c.Device, maxNameLen),
			})
		}
		writeJSON(w, http.StatusOK, s.Gateway.EstimateWaste(r.Context(), comps))
	}
}

type check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// ReadyzHandler probes Redis and the provider catalog when configured.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		for _, c := range []struct {
			name string
			fn   func(context.Context) error
		}{
			{"redis", s.RedisCheck},
			{"provider", s.CatalogCheck},
		} {
			if c.fn == nil {
				continue
			}
			if err := c.fn(ctx); err != nil {
				checks = append(checks, check{Name: c.name, OK: false, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: c.name, OK: true})
		}
		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// HealthzHandler reports liveness only.
func HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
