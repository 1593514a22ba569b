package memstore

import (
	"context"
	"sort"
	"time"

	"flight_delay_tracker/internal/domain/follow"
)

type SnapshotRepository struct{ s *Store }

func (r *SnapshotRepository) Create(_ context.Context, snap *follow.UserPrediction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	snap.ID = r.s.id()
	stored := *snap
	r.s.snapshots = append(r.s.snapshots, &stored)
	return nil
}

func (r *SnapshotRepository) GetByID(_ context.Context, id int64) (*follow.UserPrediction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, snap := range r.s.snapshots {
		if snap.ID == id {
			out := *snap
			return &out, nil
		}
	}
	return nil, follow.ErrSnapshotNotFound
}

// FindLatestByUserAndRequest orders by created_at, then id, matching the SQL driver.
func (r *SnapshotRepository) FindLatestByUserAndRequest(_ context.Context, userID, requestID int64) (*follow.UserPrediction, error) {
	return r.pick(userID, requestID, func(a, b *follow.UserPrediction) bool {
		return a.CreatedAt.After(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID > b.ID)
	})
}

func (r *SnapshotRepository) FindEarliestByUserAndRequest(_ context.Context, userID, requestID int64) (*follow.UserPrediction, error) {
	return r.pick(userID, requestID, func(a, b *follow.UserPrediction) bool {
		return a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID < b.ID)
	})
}

func (r *SnapshotRepository) pick(userID, requestID int64, better func(a, b *follow.UserPrediction) bool) (*follow.UserPrediction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var best *follow.UserPrediction
	for _, snap := range r.s.snapshots {
		if snap.UserID != userID || snap.RequestID != requestID {
			continue
		}
		if best == nil || better(snap, best) {
			best = snap
		}
	}
	if best == nil {
		return nil, follow.ErrSnapshotNotFound
	}
	out := *best
	return &out, nil
}

type FollowRepository struct{ s *Store }

func (r *FollowRepository) Save(_ context.Context, f *follow.Follow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := userRequestKey{userID: f.UserID, requestID: f.RequestID}
	if existing, ok := r.s.follows[key]; ok {
		f.ID = existing.ID
		f.CreatedAt = existing.CreatedAt
		// A stored baseline is never replaced.
		if existing.BaselineSnapshotID.Valid {
			f.BaselineSnapshotID = existing.BaselineSnapshotID
		}
	} else {
		f.ID = r.s.id()
	}
	stored := *f
	r.s.follows[key] = &stored
	return nil
}

func (r *FollowRepository) FindByUserAndRequest(_ context.Context, userID, requestID int64) (*follow.Follow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.follows[userRequestKey{userID: userID, requestID: requestID}]
	if !ok {
		return nil, follow.ErrFollowNotFound
	}
	out := *f
	return &out, nil
}

func (r *FollowRepository) ListByUser(_ context.Context, userID int64) ([]*follow.Follow, error) {
	return r.list(func(f *follow.Follow) bool { return f.UserID == userID }), nil
}

func (r *FollowRepository) ListByRequest(_ context.Context, requestID int64) ([]*follow.Follow, error) {
	return r.list(func(f *follow.Follow) bool { return f.RequestID == requestID }), nil
}

func (r *FollowRepository) ListByModeAndDateRange(_ context.Context, mode follow.RefreshMode, from, to time.Time) ([]*follow.Follow, error) {
	r.s.mu.Lock()
	dates := make(map[int64]time.Time, len(r.s.requests))
	for id, req := range r.s.requests {
		dates[id] = req.FlightDate
	}
	r.s.mu.Unlock()

	return r.list(func(f *follow.Follow) bool {
		date, ok := dates[f.RequestID]
		return ok && f.Mode == mode && inRange(date, from, to)
	}), nil
}

func (r *FollowRepository) Delete(_ context.Context, userID, requestID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := userRequestKey{userID: userID, requestID: requestID}
	if _, ok := r.s.follows[key]; !ok {
		return follow.ErrFollowNotFound
	}
	delete(r.s.follows, key)
	return nil
}

func (r *FollowRepository) list(match func(*follow.Follow) bool) []*follow.Follow {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*follow.Follow, 0)
	for _, f := range r.s.follows {
		if match(f) {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type NotificationRepository struct{ s *Store }

func (r *NotificationRepository) CreateIfAbsent(_ context.Context, l *follow.NotificationLog) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := notificationKey{userID: l.UserID, requestID: l.RequestID, kind: l.Type}
	if _, ok := r.s.notifications[key]; ok {
		return false, nil
	}
	l.ID = r.s.id()
	stored := *l
	r.s.notifications[key] = &stored
	return true, nil
}

func (r *NotificationRepository) FindByUserRequestType(_ context.Context, userID, requestID int64, t follow.NotificationType) (*follow.NotificationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.notifications[notificationKey{userID: userID, requestID: requestID, kind: t}]
	if !ok {
		return nil, follow.ErrNotificationLogNotFound
	}
	out := *l
	return &out, nil
}

// Count returns the number of stored notification logs.
func (r *NotificationRepository) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.notifications)
}
