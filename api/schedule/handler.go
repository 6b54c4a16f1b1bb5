// Package schedule exposes the fleet and mission schedule over HTTP.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/fleetplan/core/flighttime"
	"github.com/kilianp07/fleetplan/core/geo"
	"github.com/kilianp07/fleetplan/core/mission"
	"github.com/kilianp07/fleetplan/core/model"
	"github.com/kilianp07/fleetplan/core/schedule"
	"github.com/kilianp07/fleetplan/core/schedule/logging"
)

// Scheduler is the state owner behind the API.
type Scheduler interface {
	State() schedule.Snapshot
	Types() []model.AircraftType
	Locator() geo.Locator
	PassStore() logging.PassStore
	AddAircraft(ctx context.Context, registration, typeCode string, maxPax int) (schedule.Snapshot, error)
	RemoveAircraft(ctx context.Context, registration string) schedule.Snapshot
	CreateMission(ctx context.Context, in mission.Input) (schedule.Snapshot, error)
	UpdateMission(ctx context.Context, id int, p mission.Patch) (schedule.Snapshot, error)
	DeleteMission(ctx context.Context, id int) schedule.Snapshot
}

type server struct {
	sched Scheduler
}

type aircraftRequest struct {
	Registration string `json:"registration"`
	Type         string `json:"type"`
	MaxPax       int    `json:"maxPax"`
}

type estimateResponse struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceNM float64 `json:"distanceNm"`
	SpeedKts   float64 `json:"speedKts"`
	Hours      int     `json:"hours"`
	Minutes    int     `json:"minutes"`
	FlightTime string  `json:"flightTime"`
}

// NewRouter returns the chi router serving the schedule API.
func NewRouter(s Scheduler) http.Handler {
	srv := &server{sched: s}
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/state", srv.handleState)
	r.Get("/types", srv.handleTypes)
	r.Get("/estimate", srv.handleEstimate)
	r.Get("/passes", srv.handlePasses)
	r.Post("/aircraft", srv.handleAddAircraft)
	r.Delete("/aircraft/{registration}", srv.handleRemoveAircraft)
	r.Post("/schedule", srv.handleCreateMission)
	r.Put("/schedule/{id}", srv.handleUpdateMission)
	r.Delete("/schedule/{id}", srv.handleDeleteMission)
	return r
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.State())
}

func (s *server) handleTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Types())
}

func (s *server) handleAddAircraft(w http.ResponseWriter, r *http.Request) {
	var req aircraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	snap, err := s.sched.AddAircraft(r.Context(), req.Registration, req.Type, req.MaxPax)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleRemoveAircraft(w http.ResponseWriter, r *http.Request) {
	reg := strings.ToUpper(chi.URLParam(r, "registration"))
	writeJSON(w, http.StatusOK, s.sched.RemoveAircraft(r.Context(), reg))
}

func (s *server) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	var in mission.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	snap, err := s.sched.CreateMission(r.Context(), in)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleUpdateMission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "mission not found")
		return
	}
	var p mission.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	snap, err := s.sched.UpdateMission(r.Context(), id, p)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleDeleteMission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusOK, s.sched.State())
		return
	}
	writeJSON(w, http.StatusOK, s.sched.DeleteMission(r.Context(), id))
}

// handleEstimate computes a point-to-point flight time. speed is in knots;
// type may be given instead to use the catalog cruise speed.
func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := strings.ToUpper(q.Get("from"))
	to := strings.ToUpper(q.Get("to"))
	if from == "" || to == "" {
		writeJSONError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	speed := 0.0
	if v := q.Get("speed"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid speed")
			return
		}
		speed = f
	} else if code := strings.ToUpper(q.Get("type")); code != "" {
		for _, t := range s.sched.Types() {
			if t.Code == code {
				speed = t.CruiseKts
			}
		}
	}
	if speed <= 0 {
		writeJSONError(w, http.StatusBadRequest, "a positive speed or a known type is required")
		return
	}
	dist, err := s.sched.Locator().DistanceNM(from, to)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	est := flighttime.Compute(dist, speed)
	writeJSON(w, http.StatusOK, estimateResponse{
		From: from, To: to, DistanceNM: dist, SpeedKts: speed,
		Hours: est.Hours, Minutes: est.Minutes, FlightTime: est.Text(),
	})
}

func (s *server) handlePasses(w http.ResponseWriter, r *http.Request) {
	store := s.sched.PassStore()
	if store == nil {
		writeJSON(w, http.StatusOK, []logging.PassRecord{})
		return
	}
	q := logging.PassQuery{Registration: strings.ToUpper(r.URL.Query().Get("registration"))}
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid start")
			return
		}
		q.Start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid end")
			return
		}
		q.End = t
	}
	records, err := store.Query(r.Context(), q)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []logging.PassRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeMutationError(w http.ResponseWriter, err error) {
	if errors.Is(err, mission.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
