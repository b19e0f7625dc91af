package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/kartboard/internal/adapters/storage"
	"github.com/okian/kartboard/internal/domain/linking"
	"github.com/okian/kartboard/internal/domain/model"
	"github.com/okian/kartboard/internal/domain/types"
	"github.com/okian/kartboard/pkg/logger"
	"github.com/okian/kartboard/pkg/metrics"
)

// Every write validates against the served snapshot, executes against the
// store and then refreshes, so the returned view reflects the change.

// Link claims an unlinked driver for the identity.
func (s *Service) Link(ctx context.Context, id linking.Identity, driverID string) (types.Driver, error) {
	in, err := linking.Link(s.Snapshot().Drivers, driverID, id.Email)
	if err != nil {
		return types.Driver{}, s.recordWrite(ctx, "link", err)
	}
	if err := s.store.ApplyLink(ctx, in); err != nil {
		return types.Driver{}, s.recordWrite(ctx, "link", storeError(err))
	}
	return s.afterWrite(ctx, "link", driverID)
}

// Unlink releases the identity's driver. No other data is removed.
func (s *Service) Unlink(ctx context.Context, id linking.Identity, driverID string) (types.Driver, error) {
	in, err := linking.Unlink(s.Snapshot().Drivers, driverID, id.Email)
	if err != nil {
		return types.Driver{}, s.recordWrite(ctx, "unlink", err)
	}
	if err := s.store.ApplyLink(ctx, in); err != nil {
		return types.Driver{}, s.recordWrite(ctx, "unlink", storeError(err))
	}
	return s.afterWrite(ctx, "unlink", driverID)
}

// CreateDriver registers a new driver linked to the identity.
func (s *Service) CreateDriver(ctx context.Context, id linking.Identity, nd model.NewDriver) (types.Driver, error) {
	if err := validateMeasures(nd.Number, nd.WeightKg); err != nil {
		return types.Driver{}, s.recordWrite(ctx, "create", err)
	}
	d, err := linking.Register(s.Snapshot().Drivers, id.Email, nd)
	if err != nil {
		return types.Driver{}, s.recordWrite(ctx, "create", err)
	}
	d.ID = uuid.NewString()
	if err := s.store.CreateDriver(ctx, d); err != nil {
		return types.Driver{}, s.recordWrite(ctx, "create", storeError(err))
	}
	return s.afterWrite(ctx, "create", d.ID)
}

// UpdateProfile replaces the owner's phrase, number and weight.
func (s *Service) UpdateProfile(ctx context.Context, id linking.Identity, driverID string, p model.ProfileUpdate) (types.Driver, error) {
	if err := validateMeasures(p.Number, p.WeightKg); err != nil {
		return types.Driver{}, s.recordWrite(ctx, "profile", err)
	}
	if _, err := linking.Owned(s.Snapshot().Drivers, driverID, id.Email); err != nil {
		return types.Driver{}, s.recordWrite(ctx, "profile", err)
	}
	p.Phrase = strings.TrimSpace(p.Phrase)
	if err := s.store.UpdateProfile(ctx, driverID, p); err != nil {
		return types.Driver{}, s.recordWrite(ctx, "profile", storeError(err))
	}
	return s.afterWrite(ctx, "profile", driverID)
}

// SetAttendance records the owner's attendance at the next race.
func (s *Service) SetAttendance(ctx context.Context, id linking.Identity, driverID string, attending bool) (types.Driver, error) {
	if _, err := linking.Owned(s.Snapshot().Drivers, driverID, id.Email); err != nil {
		return types.Driver{}, s.recordWrite(ctx, "attendance", err)
	}
	if err := s.store.SetAttendance(ctx, driverID, attending); err != nil {
		return types.Driver{}, s.recordWrite(ctx, "attendance", storeError(err))
	}
	return s.afterWrite(ctx, "attendance", driverID)
}

// UploadPhoto stores a new photo for the owner's driver and points the
// driver record at it.
func (s *Service) UploadPhoto(ctx context.Context, id linking.Identity, driverID, contentType string, r io.Reader) (types.Driver, error) {
	if s.uploader == nil {
		metrics.RecordPhotoUpload("disabled")
		return types.Driver{}, ErrPhotosDisabled
	}
	if _, err := linking.Owned(s.Snapshot().Drivers, driverID, id.Email); err != nil {
		metrics.RecordPhotoUpload("rejected")
		return types.Driver{}, s.recordWrite(ctx, "photo", err)
	}
	key, err := storage.PhotoKey(driverID, contentType)
	if err != nil {
		metrics.RecordPhotoUpload("rejected")
		return types.Driver{}, s.recordWrite(ctx, "photo", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, s.maxPhotoBytes+1))
	if err != nil {
		metrics.RecordPhotoUpload("failed")
		return types.Driver{}, s.recordWrite(ctx, "photo", fmt.Errorf("%w: read photo: %w", ErrInvalidArgument, err))
	}
	if n > s.maxPhotoBytes {
		metrics.RecordPhotoUpload("rejected")
		return types.Driver{}, s.recordWrite(ctx, "photo", fmt.Errorf("%w: limit is %d bytes", ErrPhotoTooLarge, s.maxPhotoBytes))
	}
	if n == 0 {
		metrics.RecordPhotoUpload("rejected")
		return types.Driver{}, s.recordWrite(ctx, "photo", fmt.Errorf("%w: empty photo", ErrInvalidArgument))
	}

	res, err := s.uploader.Upload(ctx, key, contentType, &buf)
	if err != nil {
		metrics.RecordPhotoUpload("failed")
		return types.Driver{}, s.recordWrite(ctx, "photo", fmt.Errorf("%w: %w", ErrUnavailable, err))
	}
	if err := s.store.SetPhoto(ctx, driverID, res.Location); err != nil {
		if derr := s.uploader.Delete(ctx, key); derr != nil {
			s.logger.Warn(ctx, "orphaned photo not deleted", logger.String("key", key), logger.Error(derr))
		}
		metrics.RecordPhotoUpload("failed")
		return types.Driver{}, s.recordWrite(ctx, "photo", storeError(err))
	}
	metrics.RecordPhotoUpload("ok")
	return s.afterWrite(ctx, "photo", driverID)
}

func (s *Service) afterWrite(ctx context.Context, op, driverID string) (types.Driver, error) {
	if err := s.Refresh(ctx); err != nil {
		return types.Driver{}, s.recordWrite(ctx, op, fmt.Errorf("%w: %w", ErrStaleAfterWrite, err))
	}
	d, err := s.Driver(ctx, driverID)
	if err != nil {
		return types.Driver{}, s.recordWrite(ctx, op, err)
	}
	s.recordWrite(ctx, op, nil)
	s.logger.Info(ctx, "driver updated", logger.String("operation", op), logger.String("driver_id", driverID))
	return d, nil
}

// recordWrite counts the outcome of a write and returns err unchanged.
func (s *Service) recordWrite(ctx context.Context, op string, err error) error {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrStaleAfterWrite):
		outcome = "failed"
		s.logger.Error(ctx, "driver write failed", logger.String("operation", op), logger.Error(err))
	default:
		outcome = "rejected"
		s.logger.Debug(ctx, "driver write rejected", logger.String("operation", op), logger.Error(err))
	}
	metrics.RecordLinkOperation(op, outcome)
	return err
}

func validateMeasures(number *int, weight *float64) error {
	if number != nil && *number < 0 {
		return fmt.Errorf("%w: number must not be negative", ErrInvalidArgument)
	}
	if weight != nil && *weight <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidArgument)
	}
	return nil
}
