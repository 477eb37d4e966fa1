// Package server exposes the resolver and mass solver over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jejulab/landmass/internal/apperr"
	"github.com/jejulab/landmass/internal/config"
	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/store"
)

// LandResolver is the parcel resolution surface the server depends on.
type LandResolver interface {
	Resolve(ctx context.Context, address string) (*model.LandAttributes, error)
	ResolveByPNU(ctx context.Context, pnu string) (*model.LandAttributes, error)
	Regulation(ctx context.Context, pnu string) (*model.RegulationSummary, error)
	NearbyRoads(ctx context.Context, land *model.LandAttributes) ([]model.RoadInfo, error)
}

// MassSolver produces compliant mass studies for resolved parcels.
type MassSolver interface {
	Solve(land *model.LandAttributes, input model.MassDesignInput) (*model.MassStudy, error)
}

// Server wires the HTTP API.
type Server struct {
	resolver LandResolver
	solver   MassSolver
	store    store.Store
	cfg      config.ServerConfig
}

// New constructs a Server. store may be nil, in which case mass studies are
// computed but not persisted and lookups by id return 404.
func New(res LandResolver, solver MassSolver, st store.Store, cfg config.ServerConfig) *Server {
	return &Server{resolver: res, solver: solver, store: st, cfg: cfg}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/land/analyze", s.handleAnalyze)
		r.Get("/land/{pnu}", s.handleLand)
		r.Get("/land/{pnu}/regulation", s.handleRegulation)
		r.Post("/mass", s.handleMassCreate)
		r.Get("/mass", s.handleMassList)
		r.Get("/mass/{id}", s.handleMassGet)
		r.Get("/mass/{id}/geometry", s.handleMassGeometry)
	})

	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.AllowedOrigins
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	readTimeout := time.Duration(s.cfg.ReadTimeoutSecs) * time.Second
	writeTimeout := time.Duration(s.cfg.WriteTimeoutSecs) * time.Second
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server: shutdown")
		}
		return nil
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze resolves an address and attaches nearby road context.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, apperr.KindNotFound, "address query parameter is required")
		return
	}

	land, err := s.resolver.Resolve(r.Context(), address)
	if err != nil {
		writeAppError(w, err)
		return
	}

	roads, err := s.resolver.NearbyRoads(r.Context(), land)
	if err != nil {
		// Road context is best effort. The parcel itself resolved.
		zap.L().Warn("nearby roads lookup failed", zap.String("pnu", land.PNU), zap.Error(err))
	}

	writeData(w, http.StatusOK, map[string]any{
		"land":  land,
		"roads": roads,
	})
}

func (s *Server) handleLand(w http.ResponseWriter, r *http.Request) {
	land, err := s.resolver.ResolveByPNU(r.Context(), chi.URLParam(r, "pnu"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, land)
}

func (s *Server) handleRegulation(w http.ResponseWriter, r *http.Request) {
	summary, err := s.resolver.Regulation(r.Context(), chi.URLParam(r, "pnu"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

// massCreateRequest mirrors MassDesignInput with optional setback fields so
// omitted distances pick up the defaults instead of collapsing to zero.
type massCreateRequest struct {
	PNU          string           `json:"pnu"`
	BuildingType string           `json:"building_type"`
	TargetFloors int              `json:"target_floors"`
	Setbacks     *setbacksRequest `json:"setbacks"`
}

type setbacksRequest struct {
	Front *float64 `json:"front"`
	Back  *float64 `json:"back"`
	Left  *float64 `json:"left"`
	Right *float64 `json:"right"`
}

// design validates the request and folds in defaults for omitted setbacks.
func (r *massCreateRequest) design() (model.MassDesignInput, error) {
	if r.TargetFloors < 1 || r.TargetFloors > 50 {
		return model.MassDesignInput{}, apperr.New(apperr.KindInvalidInput,
			"target_floors must be between 1 and 50")
	}
	sb := model.DefaultSetbacks()
	if r.Setbacks != nil {
		if r.Setbacks.Front != nil {
			sb.Front = *r.Setbacks.Front
		}
		if r.Setbacks.Back != nil {
			sb.Back = *r.Setbacks.Back
		}
		if r.Setbacks.Left != nil {
			sb.Left = *r.Setbacks.Left
		}
		if r.Setbacks.Right != nil {
			sb.Right = *r.Setbacks.Right
		}
	}
	if sb.Front < 0 || sb.Back < 0 || sb.Left < 0 || sb.Right < 0 {
		return model.MassDesignInput{}, apperr.New(apperr.KindInvalidSetbacks,
			"setback distances must be non-negative")
	}
	return model.MassDesignInput{
		PNU:          r.PNU,
		BuildingType: r.BuildingType,
		TargetFloors: r.TargetFloors,
		Setbacks:     sb,
	}, nil
}

func (s *Server) handleMassCreate(w http.ResponseWriter, r *http.Request) {
	var req massCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindInvalidInput, "invalid request body")
		return
	}
	if req.PNU == "" {
		writeError(w, http.StatusBadRequest, apperr.KindInvalidInput, "pnu is required")
		return
	}
	input, err := req.design()
	if err != nil {
		writeAppError(w, err)
		return
	}

	land, err := s.resolver.ResolveByPNU(r.Context(), input.PNU)
	if err != nil {
		writeAppError(w, err)
		return
	}

	study, err := s.solver.Solve(land, input)
	if err != nil {
		writeAppError(w, err)
		return
	}

	if s.store != nil {
		if err := s.store.SaveMassStudy(r.Context(), study); err != nil {
			zap.L().Error("save mass study failed", zap.String("id", study.ID.String()), zap.Error(err))
		}
	}

	writeData(w, http.StatusCreated, study)
}

func (s *Server) handleMassList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeData(w, http.StatusOK, []model.MassStudy{})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, apperr.KindInvalidInput, "limit must be an integer")
			return
		}
		limit = n
	}

	studies, err := s.store.ListMassStudies(r.Context(), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if studies == nil {
		studies = []model.MassStudy{}
	}
	writeData(w, http.StatusOK, studies)
}

func (s *Server) loadStudy(w http.ResponseWriter, r *http.Request) *model.MassStudy {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, apperr.KindNotFound, "invalid study id")
		return nil
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, apperr.KindNotFound, "mass study not found")
		return nil
	}

	study, err := s.store.GetMassStudy(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return nil
	}
	if study == nil {
		writeError(w, http.StatusNotFound, apperr.KindNotFound, "mass study not found")
		return nil
	}
	return study
}

func (s *Server) handleMassGet(w http.ResponseWriter, r *http.Request) {
	if study := s.loadStudy(w, r); study != nil {
		writeData(w, http.StatusOK, study)
	}
}

func (s *Server) handleMassGeometry(w http.ResponseWriter, r *http.Request) {
	if study := s.loadStudy(w, r); study != nil {
		writeData(w, http.StatusOK, study.Geometry)
	}
}
