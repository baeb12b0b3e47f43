package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/truckflow/dispatch-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence surface the reconciliation engine needs. The
// production implementation is GormStore; tests use an in-memory fake.
type Store interface {
	GetDispatch(ctx context.Context, dispatchID uint) (*models.Dispatch, error)
	GetDispatchDrivers(ctx context.Context, dispatchID uint) ([]models.DispatchDriver, error)
	GetDispatchDriver(ctx context.Context, dispatchID, driverID uint) (*models.DispatchDriver, error)
	SaveDispatchDriver(ctx context.Context, dd *models.DispatchDriver) error
	UpdateDispatchStatus(ctx context.Context, dispatchID uint, status string, at time.Time) error
	RecordStatusReached(ctx context.Context, dispatchID uint, status string, at time.Time) error
	ListAssignments(ctx context.Context, dispatchID uint) ([]models.Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, assignmentID uint, status string) error
	ListActiveDispatchIDs(ctx context.Context) ([]uint, error)
	CancelOrphanAssignments(ctx context.Context) (int64, error)
}

// GormStore implements Store on top of the shared gorm connection
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a gorm-backed store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetDispatch(ctx context.Context, dispatchID uint) (*models.Dispatch, error) {
	var d models.Dispatch
	if err := s.db.WithContext(ctx).Preload("Customer").First(&d, dispatchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDispatchNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *GormStore) GetDispatchDrivers(ctx context.Context, dispatchID uint) ([]models.DispatchDriver, error) {
	var drivers []models.DispatchDriver
	if err := s.db.WithContext(ctx).Preload("Driver").
		Where("dispatch_id = ?", dispatchID).
		Find(&drivers).Error; err != nil {
		return nil, err
	}
	return drivers, nil
}

func (s *GormStore) GetDispatchDriver(ctx context.Context, dispatchID, driverID uint) (*models.DispatchDriver, error) {
	var dd models.DispatchDriver
	if err := s.db.WithContext(ctx).
		Where("dispatch_id = ? AND driver_id = ?", dispatchID, driverID).
		First(&dd).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriverNotAssigned
		}
		return nil, err
	}
	return &dd, nil
}

func (s *GormStore) SaveDispatchDriver(ctx context.Context, dd *models.DispatchDriver) error {
	return s.db.WithContext(ctx).Save(dd).Error
}

// UpdateDispatchStatus writes the aggregate status together with the
// denormalized projection in a single row update.
func (s *GormStore) UpdateDispatchStatus(ctx context.Context, dispatchID uint, status string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Dispatch{}).
		Where("id = ?", dispatchID).
		Updates(map[string]interface{}{
			"status":            status,
			"current_status":    status,
			"current_status_at": at,
			"updated_at":        at,
		}).Error
}

// RecordStatusReached inserts the first-reached timestamp for a status.
// The (dispatch_id, status) unique index makes repeats a no-op, so the
// first occurrence is never clobbered.
func (s *GormStore) RecordStatusReached(ctx context.Context, dispatchID uint, status string, at time.Time) error {
	event := models.DispatchStatusEvent{
		DispatchID: dispatchID,
		Status:     status,
		ReachedAt:  at,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&event).Error
}

func (s *GormStore) ListAssignments(ctx context.Context, dispatchID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := s.db.WithContext(ctx).
		Where("dispatch_id = ?", dispatchID).
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *GormStore) UpdateAssignmentStatus(ctx context.Context, assignmentID uint, status string) error {
	return s.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ?", assignmentID).
		Update("status", status).Error
}

// ListActiveDispatchIDs returns dispatches the periodic sweep should
// reconcile: those still in a driver-derived, non-terminal state.
func (s *GormStore) ListActiveDispatchIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.Dispatch{}).
		Where("status IN ?", []string{models.DispatchStatusAssigned, models.DispatchStatusInProgress}).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CancelOrphanAssignments marks assignments whose dispatch no longer exists
// as cancelled so availability queries stop counting them.
func (s *GormStore) CancelOrphanAssignments(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Exec(`
		UPDATE assignments SET status = ?, updated_at = NOW()
		WHERE deleted_at IS NULL
		  AND status <> ?
		  AND dispatch_id NOT IN (SELECT id FROM dispatches WHERE deleted_at IS NULL)`,
		models.AssignmentStatusCancelled, models.AssignmentStatusCancelled)
	return result.RowsAffected, result.Error
}
