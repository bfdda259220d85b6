package services

import (
	"context"
	"sync"
	"time"

	"vtc-platform/internal/config"
	"vtc-platform/internal/dispatch-service/core/domain/model"
	"vtc-platform/internal/dispatch-service/core/geo"
	"vtc-platform/internal/dispatch-service/core/ports"
	"vtc-platform/internal/mylogger"
)

// StatusService tracks live driver availability. The in-memory view feeds
// the geo search, every change is written through to the repo. Rows are
// created lazily on first use: an unknown driver id becomes a default
// OFFLINE record rather than an error, with a warning so the upsert does
// not mask bad ids silently.
type StatusService struct {
	log  mylogger.Logger
	repo ports.IDriverStatusRepo
	cfg  *config.Dispatchconfig

	mu   sync.RWMutex
	live map[string]model.DriverStatus
}

func NewStatusService(repo ports.IDriverStatusRepo, cfg *config.Dispatchconfig, log mylogger.Logger) *StatusService {
	return &StatusService{
		log:  log,
		repo: repo,
		cfg:  cfg,
		live: make(map[string]model.DriverStatus),
	}
}

func (s *StatusService) SetOnline(ctx context.Context, driverID, channelID, vehicleType string, lat, lng *float64) error {
	log := s.log.Action("SetOnline")

	cur, err := s.repo.GetOrCreate(ctx, driverID)
	if err != nil {
		return err
	}
	if cur.Status == model.DriverOnline && cur.ChannelID == channelID {
		// double-online from the same connection is a no-op
		return nil
	}

	now := time.Now()
	if err := s.repo.SetStatus(ctx, driverID, model.DriverOnline, channelID, now); err != nil {
		return err
	}

	st := cur
	st.DriverID = driverID
	st.Status = model.DriverOnline
	st.ChannelID = channelID
	st.UpdatedAt = now
	st.LastOnline = now
	if vehicleType != "" {
		st.VehicleType = vehicleType
	}
	if lat != nil && lng != nil {
		st.Latitude = *lat
		st.Longitude = *lng
		st.HasPosition = true
		if err := s.repo.UpdatePosition(ctx, driverID, *lat, *lng, now); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.live[driverID] = st
	s.mu.Unlock()

	log.Info("driver online", "driver_id", driverID)
	return nil
}

func (s *StatusService) SetOffline(ctx context.Context, driverID string) error {
	now := time.Now()
	if err := s.repo.SetStatus(ctx, driverID, model.DriverOffline, "", now); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.live, driverID)
	s.mu.Unlock()

	s.log.Action("SetOffline").Info("driver offline", "driver_id", driverID)
	return nil
}

// SetBusy is called by the dispatch engine when a ride is assigned.
func (s *StatusService) SetBusy(ctx context.Context, driverID string) error {
	return s.flip(ctx, driverID, model.DriverBusy)
}

// Release returns the driver to ONLINE after a completed or cancelled ride.
func (s *StatusService) Release(ctx context.Context, driverID string) error {
	return s.flip(ctx, driverID, model.DriverOnline)
}

func (s *StatusService) flip(ctx context.Context, driverID, status string) error {
	s.mu.Lock()
	st, ok := s.live[driverID]
	if ok {
		st.Status = status
		st.UpdatedAt = time.Now()
		s.live[driverID] = st
	}
	s.mu.Unlock()

	if !ok {
		s.log.Action("flip").Warn("status change for driver with no live record", "driver_id", driverID, "status", status)
		if _, err := s.repo.GetOrCreate(ctx, driverID); err != nil {
			return err
		}
	}
	return s.repo.SetStatus(ctx, driverID, status, "", time.Now())
}

// UpdatePosition overwrites the last known position. No history is kept
// here, OrderTracking is the append-only log.
func (s *StatusService) UpdatePosition(ctx context.Context, driverID string, lat, lng float64) error {
	now := time.Now()

	s.mu.Lock()
	st, ok := s.live[driverID]
	if ok {
		st.Latitude = lat
		st.Longitude = lng
		st.HasPosition = true
		st.UpdatedAt = now
		s.live[driverID] = st
	}
	s.mu.Unlock()

	if !ok {
		s.log.Action("UpdatePosition").Warn("position update for driver with no live record", "driver_id", driverID)
	}
	return s.repo.UpdatePosition(ctx, driverID, lat, lng, now)
}

// Position returns the driver's last known position and when it was set.
func (s *StatusService) Position(driverID string) (geo.Point, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.live[driverID]
	if !ok || !st.HasPosition {
		return geo.Point{}, time.Time{}, false
	}
	return geo.Point{Latitude: st.Latitude, Longitude: st.Longitude}, st.UpdatedAt, true
}

// Status returns the live status, falling back to OFFLINE when unknown.
func (s *StatusService) Status(driverID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.live[driverID]; ok {
		return st.Status
	}
	return model.DriverOffline
}

// FindNearby searches ONLINE drivers with a known position around pickup,
// widening the radius per the dispatch config. vehicleType filters the
// candidates when non-empty.
func (s *StatusService) FindNearby(pickup geo.Point, vehicleType string) geo.SearchResult {
	s.mu.RLock()
	candidates := make([]geo.Candidate, 0, len(s.live))
	for id, st := range s.live {
		if st.Status != model.DriverOnline || !st.HasPosition {
			continue
		}
		if vehicleType != "" && st.VehicleType != "" && st.VehicleType != vehicleType {
			continue
		}
		candidates = append(candidates, geo.Candidate{
			DriverID:    id,
			VehicleType: st.VehicleType,
			Position:    geo.Point{Latitude: st.Latitude, Longitude: st.Longitude},
		})
	}
	s.mu.RUnlock()

	return geo.Search(pickup, candidates, geo.SearchParams{
		StartRadiusKm: s.cfg.SearchRadiusKm,
		MaxRadiusKm:   s.cfg.MaxRadiusKm,
		StepKm:        s.cfg.RadiusStepKm,
		MinCandidates: s.cfg.MinCandidates,
	})
}

// OnlineCount is used by the admin overview.
func (s *StatusService) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, st := range s.live {
		if st.Status == model.DriverOnline {
			n++
		}
	}
	return n
}
