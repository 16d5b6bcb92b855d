package buyer

import (
	"context"
	"errors"
	"time"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
	"github.com/AmitJPatil13/ESahayak-Task/internal/store"
)

// Create validates a full buyer payload and persists it, owned by actor,
// together with its "created" history entry.
func Create(ctx context.Context, s store.Store, in *Input, actor Identity) (*models.Buyer, error) {
	if fieldErrs := in.Validate(); len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	b := in.ToBuyer(actor.UserID, now)
	entry := &models.BuyerHistory{
		BuyerID:   b.ID,
		ChangedBy: actor.UserID,
		ChangedAt: now,
		Diff:      models.CreatedDiff(models.Snapshot(b)),
	}

	if err := s.Create(ctx, b, entry); err != nil {
		return nil, &StorageError{Err: err}
	}
	return b, nil
}

// Delete removes a buyer after the usual existence and ownership checks.
// A final "deleted" history entry is written and outlives the record.
func Delete(ctx context.Context, s store.Store, id string, actor Identity) error {
	b, err := s.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if b.OwnerID != actor.UserID && !actor.Admin {
		return ErrForbidden
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := &models.BuyerHistory{
		BuyerID:   b.ID,
		ChangedBy: actor.UserID,
		ChangedAt: now,
		Diff:      models.DeletedDiff(models.Snapshot(b)),
	}

	err = s.Delete(ctx, id, entry)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
