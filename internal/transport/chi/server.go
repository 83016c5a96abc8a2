package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearlot/internal/domain"
	"github.com/kailas-cloud/nearlot/internal/domain/geo"
	domlot "github.com/kailas-cloud/nearlot/internal/domain/lot"
	dompickup "github.com/kailas-cloud/nearlot/internal/domain/pickup"
	healthuc "github.com/kailas-cloud/nearlot/internal/usecase/health"
	lotuc "github.com/kailas-cloud/nearlot/internal/usecase/lot"
	pickupuc "github.com/kailas-cloud/nearlot/internal/usecase/pickup"
	proximityuc "github.com/kailas-cloud/nearlot/internal/usecase/proximity"
	"github.com/kailas-cloud/nearlot/internal/version"
)

// statusAny disables the status filter on GET /lots/nearby.
const statusAny = "any"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the lot HTTP API.
type Server struct {
	lots          *lotuc.Service
	pickups       *pickupuc.Service
	proximity     *proximityuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	lots *lotuc.Service,
	pickups *pickupuc.Service,
	proximity *proximityuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		lots:      lots,
		pickups:   pickups,
		proximity: proximity,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(dompickup.ErrNotFound, http.StatusNotFound, ErrorCodePickupNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeLotNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, ErrorCodeLotAlreadyExists),
		sentinelHandler(domain.ErrConflict, http.StatusConflict, ErrorCodeLotUnavailable),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, ErrorCodeForbidden),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable),
		sentinelHandler(domain.ErrDescriberError, http.StatusBadGateway, ErrorCodeDescriberError),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/lots", func(r chi.Router) {
		r.Post("/", s.RegisterLot)
		r.Get("/nearby", s.NearbyLots)
		r.Get("/{id}", s.GetLot)
		r.Delete("/{id}", s.DeleteLot)
		r.Patch("/{id}/location", s.UpdateLotLocation)
		r.Patch("/{id}/status", s.UpdateLotStatus)
		r.Post("/{id}/pickups", s.SchedulePickup)
	})
	r.Route("/pickups", func(r chi.Router) {
		r.Get("/", s.ListPickups)
		r.Get("/{id}", s.GetPickup)
	})
	r.Get("/merchants/{merchantID}/lots", s.ListMerchantLots)
}

// RegisterLot handles POST /lots.
func (s *Server) RegisterLot(w http.ResponseWriter, r *http.Request) {
	p, ok := s.requireWriter(w, r)
	if !ok {
		return
	}

	var req RegisterLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Location == nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "location is required")
		return
	}

	d := domlot.Draft{
		MerchantID:           req.MerchantID,
		MerchantName:         req.MerchantName,
		MerchantAddressShort: req.MerchantAddressShort,
		WeightKg:             req.WeightKg,
		ImageURL:             req.ImageURL,
		Description:          req.Description,
		LimitDate:            req.LimitDate,
		Location:             geo.Coordinate{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude},
	}
	if p.IsMerchant() {
		if d.MerchantID != "" && d.MerchantID != p.Subject {
			writeError(w, http.StatusForbidden, ErrorCodeForbidden, "cannot register lots for another merchant")
			return
		}
		d.MerchantID = p.Subject
		if d.MerchantName == "" {
			d.MerchantName = p.Name
		}
		if d.MerchantAddressShort == "" {
			d.MerchantAddressShort = p.AddressShort
		}
	}

	l, err := s.lots.Register(r.Context(), d)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lotToResponse(&l))
}

// GetLot handles GET /lots/{id}.
func (s *Server) GetLot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	l, err := s.lots.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lotToResponse(&l))
}

// DeleteLot handles DELETE /lots/{id}.
func (s *Server) DeleteLot(w http.ResponseWriter, r *http.Request) {
	p, ok := s.requireWriter(w, r)
	if !ok {
		return
	}
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.lots.Delete(r.Context(), p.MerchantScope(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateLotLocation handles PATCH /lots/{id}/location.
func (s *Server) UpdateLotLocation(w http.ResponseWriter, r *http.Request) {
	p, ok := s.requireWriter(w, r)
	if !ok {
		return
	}
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	var req Location
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	l, err := s.lots.UpdateLocation(r.Context(), p.MerchantScope(), id,
		geo.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lotToResponse(&l))
}

// UpdateLotStatus handles PATCH /lots/{id}/status.
func (s *Server) UpdateLotStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.requireWriter(w, r)
	if !ok {
		return
	}
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	st, err := domlot.ParseStatus(req.Status)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	l, err := s.lots.UpdateStatus(r.Context(), p.MerchantScope(), id, st)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lotToResponse(&l))
}

// NearbyLots handles GET /lots/nearby?latitude&longitude&radius_km[&status].
// Only active lots are returned unless another status (or "any") is requested.
func (s *Server) NearbyLots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var lat, lon, radius float64
	for _, p := range []struct {
		name string
		dest *float64
	}{
		{"latitude", &lat},
		{"longitude", &lon},
		{"radius_km", &radius},
	} {
		if err := runtime.BindQueryParameter("form", true, true, p.name, q, p.dest); err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter "+p.name)
			return
		}
	}

	var statusParam *string
	if err := runtime.BindQueryParameter("form", true, false, "status", q, &statusParam); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter status")
		return
	}
	status := domlot.StatusActive
	if statusParam != nil {
		switch v := strings.TrimSpace(*statusParam); v {
		case statusAny:
			status = ""
		default:
			st, err := domlot.ParseStatus(v)
			if err != nil {
				s.handleDomainError(w, err)
				return
			}
			status = st
		}
	}

	results, err := s.proximity.Search(r.Context(),
		geo.Coordinate{Latitude: lat, Longitude: lon}, radius, status)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]LotResponse, len(results))
	for i := range results {
		items[i] = resultToResponse(&results[i])
	}
	writeJSON(w, http.StatusOK, LotListResponse{Items: items, Count: len(items)})
}

// ListMerchantLots handles GET /merchants/{merchantID}/lots.
func (s *Server) ListMerchantLots(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := pathParam(w, r, "merchantID")
	if !ok {
		return
	}
	lots, err := s.lots.ListByMerchant(r.Context(), merchantID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lotsToList(lots))
}

// SchedulePickup handles POST /lots/{id}/pickups.
func (s *Server) SchedulePickup(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	if !p.CanSchedule() {
		writeError(w, http.StatusForbidden, ErrorCodeForbidden, "only producers can schedule pickups")
		return
	}
	lotID, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	var req SchedulePickupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	who := pickupuc.Producer{ID: req.ProducerID, Name: req.ProducerName}
	if p.IsProducer() {
		if who.ID != "" && who.ID != p.Subject {
			writeError(w, http.StatusForbidden, ErrorCodeForbidden, "cannot schedule pickups for another producer")
			return
		}
		who.ID = p.Subject
		if who.Name == "" {
			who.Name = p.Name
		}
	}

	pk, err := s.pickups.Schedule(r.Context(), who, lotID, req.ScheduledAt)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pickupToResponse(&pk))
}

// GetPickup handles GET /pickups/{id}.
func (s *Server) GetPickup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	pk, err := s.pickups.Get(r.Context(), pickupViewer(r), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pickupToResponse(&pk))
}

// ListPickups handles GET /pickups?status. Producers and merchants only see
// their own bookings.
func (s *Server) ListPickups(w http.ResponseWriter, r *http.Request) {
	var status string
	if err := runtime.BindQueryParameter("form", true, true, "status", r.URL.Query(), &status); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter status")
		return
	}
	st, err := dompickup.ParseStatus(strings.TrimSpace(status))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ps, err := s.pickups.List(r.Context(), pickupViewer(r), st)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pickupsToList(ps))
}

// HealthCheck handles GET /health. A degraded describer still reports 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// requireWriter rejects principals that may not modify lots.
func (s *Server) requireWriter(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	p, _ := PrincipalFromContext(r.Context())
	if !p.CanWrite() {
		writeError(w, http.StatusForbidden, ErrorCodeForbidden, "only merchants can modify lots")
		return Principal{}, false
	}
	return p, true
}

func pickupViewer(r *http.Request) pickupuc.Viewer {
	p, _ := PrincipalFromContext(r.Context())
	switch {
	case p.IsProducer():
		return pickupuc.Viewer{ProducerID: p.Subject}
	case p.IsMerchant():
		return pickupuc.Viewer{MerchantID: p.Subject}
	default:
		return pickupuc.Viewer{}
	}
}

func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || v == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter "+name)
		return "", false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-safe message without exposing internals.
// Validation errors carry their detail; everything else collapses to the sentinel text.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidArgument) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrConflict,
		domain.ErrForbidden,
		domain.ErrStoreUnavailable,
		domain.ErrDescriberError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
