package httpadapter

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsight/location-engine/internal/core/domain"
	"github.com/fieldsight/location-engine/internal/core/ports"
	"github.com/fieldsight/location-engine/internal/observability/metrics"
)

// DeviceBridge receives sensor pushes from the mobile client and settles
// pending detection waits.
type DeviceBridge interface {
	PushPermission(granted bool) bool
	PushFix(position domain.Position) bool
	PushFixFailure(reason string) bool
	SetFingerprint(fingerprint string)
}

// CatalogExporter renders the location catalog for download.
type CatalogExporter interface {
	Export(locations []domain.Location, w io.Writer) error
}

type Router struct {
	detector  ports.BusinessDetector
	places    ports.PlaceResolver
	directory ports.DirectorySearch
	matcher   ports.RecordMatcher
	catalog   ports.CatalogService
	records   ports.RecordStore
	queue     ports.EventQueue
	device    DeviceBridge
	exporter  CatalogExporter
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
	service   string
}

func NewRouter(
	detector ports.BusinessDetector,
	places ports.PlaceResolver,
	directory ports.DirectorySearch,
	matcher ports.RecordMatcher,
	catalog ports.CatalogService,
	records ports.RecordStore,
	queue ports.EventQueue,
	device DeviceBridge,
	exporter CatalogExporter,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	service string,
) *Router {
	return &Router{
		detector:  detector,
		places:    places,
		directory: directory,
		matcher:   matcher,
		catalog:   catalog,
		records:   records,
		queue:     queue,
		device:    device,
		exporter:  exporter,
		metrics:   httpMetrics,
		logger:    logger,
		service:   service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/detect", rt.detect)
	mux.HandleFunc("/v1/places/batch", rt.batchPlaces)
	mux.HandleFunc("/v1/places/search", rt.searchPlaces)
	mux.HandleFunc("/v1/places/", rt.placeByID)
	mux.HandleFunc("/v1/records", rt.createRecord)
	mux.HandleFunc("/v1/records/", rt.matchRecord)
	mux.HandleFunc("/v1/locations", rt.listLocations)
	mux.HandleFunc("/v1/locations/export", rt.exportLocations)
	mux.HandleFunc("/v1/device/permission", rt.devicePermission)
	mux.HandleFunc("/v1/device/fix", rt.deviceFix)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		return requestIDMiddleware(rt.metrics.Middleware(rt.service, accessLogMiddleware(mux)))
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) detect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	detection, err := rt.detector.DetectCurrentBusiness(r.Context())
	if err != nil {
		rt.logger.Warn("detection failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err.Error(),
		)
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, detection)
}

func (rt *Router) placeByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/places/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "place id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		detail, err := rt.places.Resolve(r.Context(), id)
		if err != nil {
			writeError(w, mapErrorToHTTPStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodDelete:
		if err := rt.places.Invalidate(r.Context(), id); err != nil {
			writeError(w, mapErrorToHTTPStatus(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) searchPlaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	var bias *domain.Coordinate
	latRaw, lonRaw := r.URL.Query().Get("lat"), r.URL.Query().Get("lon")
	if latRaw != "" || lonRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lon, lonErr := strconv.ParseFloat(lonRaw, 64)
		if latErr != nil || lonErr != nil {
			writeError(w, http.StatusBadRequest, "lat and lon must both be valid numbers")
			return
		}
		bias = &domain.Coordinate{Lat: lat, Lon: lon}
	}

	candidates, err := rt.directory.TextSearch(r.Context(), query, bias)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (rt *Router) batchPlaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	details, err := rt.places.ResolveBatch(r.Context(), req.IDs)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (rt *Router) createRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		BusinessID   string   `json:"business_id"`
		LocationID   string   `json:"location_id"`
		BusinessName string   `json:"business_name"`
		BusinessType string   `json:"business_type"`
		Lat          *float64 `json:"lat"`
		Lon          *float64 `json:"lon"`
		Description  string   `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.BusinessName) == "" {
		writeError(w, http.StatusBadRequest, "business_name is required")
		return
	}

	businessType := domain.BusinessType(req.BusinessType)
	if businessType == "" {
		businessType = domain.ClassifyName(req.BusinessName)
	}

	record := &domain.MaintenanceRecord{
		ID:           uuid.NewString(),
		BusinessID:   req.BusinessID,
		LocationID:   req.LocationID,
		BusinessName: req.BusinessName,
		BusinessType: businessType,
		Description:  req.Description,
		CreatedAt:    time.Now().UTC(),
	}
	if req.Lat != nil && req.Lon != nil {
		record.Coordinate = &domain.Coordinate{Lat: *req.Lat, Lon: *req.Lon}
	}

	if err := rt.records.Create(r.Context(), record); err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if err := rt.queue.PublishRecordIngested(r.Context(), record.ID); err != nil {
		// The record is persisted; the worker catches up on the next rebuild.
		rt.logger.Warn("publish record ingested failed",
			"request_id", requestIDFromContext(r.Context()),
			"record_id", record.ID,
			"error", err.Error(),
		)
	}

	writeJSON(w, http.StatusAccepted, record)
}

func (rt *Router) matchRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	id = strings.TrimSuffix(id, "/match")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "record id is required")
		return
	}

	record, err := rt.records.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	catalog, err := rt.catalog.Catalog(r.Context())
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	location, err := rt.matcher.MatchRecordToLocation(r.Context(), *record, catalog)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	if location == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (rt *Router) listLocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	locations, err := rt.catalog.Catalog(r.Context())
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

func (rt *Router) exportLocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	locations, err := rt.catalog.Catalog(r.Context())
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="locations.xlsx"`)
	if err := rt.exporter.Export(locations, w); err != nil {
		rt.logger.Error("catalog export failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err.Error(),
		)
	}
}

func (rt *Router) devicePermission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Granted bool `json:"granted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	delivered := rt.device.PushPermission(req.Granted)
	writeJSON(w, http.StatusAccepted, map[string]bool{"delivered": delivered})
}

func (rt *Router) deviceFix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Lat            *float64 `json:"lat"`
		Lon            *float64 `json:"lon"`
		AccuracyMeters float64  `json:"accuracy_m"`
		Fingerprint    string   `json:"fingerprint"`
		Error          string   `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.Fingerprint != "" {
		rt.device.SetFingerprint(req.Fingerprint)
	}

	if req.Error != "" {
		delivered := rt.device.PushFixFailure(req.Error)
		writeJSON(w, http.StatusAccepted, map[string]bool{"delivered": delivered})
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	delivered := rt.device.PushFix(domain.Position{
		Coordinate:     domain.Coordinate{Lat: *req.Lat, Lon: *req.Lon},
		AccuracyMeters: req.AccuracyMeters,
		Timestamp:      time.Now().UTC(),
	})
	writeJSON(w, http.StatusAccepted, map[string]bool{"delivered": delivered})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
