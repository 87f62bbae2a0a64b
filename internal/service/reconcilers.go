package service

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/opentutorials-org/otu-sync/internal/cache"
	"github.com/opentutorials-org/otu-sync/internal/errs"
	"github.com/opentutorials-org/otu-sync/internal/model"
)

// scope is the request-wide state shared by the entity reconcilers.
type scope struct {
	s            *PushService
	userID       uuid.UUID
	lastPulledAt int64
}

func (sc scope) fail(entity, op, id string, err error) error {
	return sc.s.fatal(entity, op, id, sc.userID, err)
}

// insert applies the create policy: a unique violation reports (false, nil).
func (sc scope) insert(entity, id string, err error) (bool, error) {
	swallowed, fatal := createPolicy.Apply(err)
	if fatal != nil {
		return false, sc.fail(entity, "create", id, fatal)
	}
	return !swallowed, nil
}

func (sc scope) update(entity, id string, err error) error {
	if _, fatal := updatePolicy.Apply(err); fatal != nil {
		return sc.fail(entity, "update", id, fatal)
	}
	return nil
}

func (sc scope) swallowDelete(entity, id string, err error) {
	if swallowed, _ := deletePolicy.Apply(err); swallowed {
		sc.s.log.Debug("delete ignored",
			zap.String("entity", entity),
			zap.String("id", id),
			zap.Error(err))
	}
}

type folderReconciler struct{ scope }

func (r *folderReconciler) exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.s.stores.Folders.Exists(ctx, id)
	if err != nil {
		return false, r.fail("folder", "exists", id, err)
	}
	return ok, nil
}

func (r *folderReconciler) create(ctx context.Context, rec model.Record) (bool, error) {
	f := model.FolderFromRecord(rec, r.userID, r.lastPulledAt)
	return r.insert("folder", f.ID, r.s.stores.Folders.Insert(ctx, f))
}

func (r *folderReconciler) update(ctx context.Context, rec model.Record) error {
	f := model.FolderFromRecord(rec, r.userID, r.lastPulledAt)
	return r.scope.update("folder", f.ID, r.s.stores.Folders.Update(ctx, f))
}

func (r *folderReconciler) cancelDelete(ctx context.Context, id string) error {
	if err := r.s.stores.Folders.CancelDelete(ctx, r.userID, id); err != nil {
		return r.fail("folder", "cancel_delete", id, err)
	}
	return nil
}

func (r *folderReconciler) remove(ctx context.Context, id string) error {
	r.swallowDelete("folder", id, r.s.stores.Folders.Delete(ctx, r.userID, id))
	return nil
}

type alarmReconciler struct{ scope }

func (r *alarmReconciler) exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.s.stores.Alarms.Exists(ctx, id)
	if err != nil {
		return false, r.fail("alarm", "exists", id, err)
	}
	return ok, nil
}

func (r *alarmReconciler) create(ctx context.Context, rec model.Record) (bool, error) {
	a := model.AlarmFromRecord(rec, r.userID, r.lastPulledAt)
	return r.insert("alarm", a.ID, r.s.stores.Alarms.Insert(ctx, a))
}

func (r *alarmReconciler) update(ctx context.Context, rec model.Record) error {
	a := model.AlarmFromRecord(rec, r.userID, r.lastPulledAt)
	return r.scope.update("alarm", a.ID, r.s.stores.Alarms.Update(ctx, a))
}

// Alarm tombstones are written by a trigger and never cleared here.
func (r *alarmReconciler) cancelDelete(context.Context, string) error { return nil }

func (r *alarmReconciler) remove(ctx context.Context, id string) error {
	r.swallowDelete("alarm", id, r.s.stores.Alarms.Delete(ctx, r.userID, id))
	return nil
}

// pageReconciler also drives embedding jobs and share cache invalidation.
type pageReconciler struct {
	scope
	batchType string
}

func (r *pageReconciler) draw(rec model.Record) bool {
	return r.batchType == model.PageTypeDraw || rec.String("type") == model.PageTypeDraw
}

func (r *pageReconciler) exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.s.stores.Pages.Exists(ctx, id)
	if err != nil {
		return false, r.fail("page", "exists", id, err)
	}
	return ok, nil
}

// create enqueues an embedding job only for a fresh insert.
func (r *pageReconciler) create(ctx context.Context, rec model.Record) (bool, error) {
	p := model.PageFromRecord(rec, r.userID, r.lastPulledAt)
	inserted, err := r.insert("page", p.ID, r.s.stores.Pages.Insert(ctx, p))
	if err != nil || !inserted {
		return inserted, err
	}
	if !r.draw(rec) {
		if err := r.s.jobs.enqueue(ctx, r.userID, p.ID); err != nil {
			return true, r.fail("page", "enqueue_job", p.ID, err)
		}
	}
	return true, nil
}

func (r *pageReconciler) update(ctx context.Context, rec model.Record) error {
	p := model.PageFromRecord(rec, r.userID, r.lastPulledAt)
	if err := r.scope.update("page", p.ID, r.s.stores.Pages.Update(ctx, p)); err != nil {
		return err
	}
	r.invalidate(ctx, p.ID)
	if r.draw(rec) {
		return nil
	}
	if err := r.s.jobs.reschedule(ctx, r.userID, p.ID); err != nil {
		return r.fail("page", "reschedule_job", p.ID, err)
	}
	return nil
}

func (r *pageReconciler) cancelDelete(ctx context.Context, id string) error {
	if err := r.s.stores.Pages.CancelDelete(ctx, r.userID, id); err != nil {
		return r.fail("page", "cancel_delete", id, err)
	}
	return nil
}

// remove deletes the page. A unique violation from the tombstone trigger means
// the id is already recorded as deleted: clear the tombstone and delete again.
func (r *pageReconciler) remove(ctx context.Context, id string) error {
	err := r.s.stores.Pages.Delete(ctx, r.userID, id)
	if errs.IsUniqueViolation(err) {
		if cerr := r.s.stores.Pages.CancelDelete(ctx, r.userID, id); cerr != nil {
			r.swallowDelete("page_deleted", id, cerr)
		}
		err = r.s.stores.Pages.Delete(ctx, r.userID, id)
	}
	r.swallowDelete("page", id, err)
	r.invalidate(ctx, id)

	if r.batchType == model.PageTypeDraw {
		return nil
	}
	if err := r.s.jobs.cancel(ctx, r.userID, id); err != nil {
		return r.fail("page", "delete_job", id, err)
	}
	return nil
}

// invalidate drops the public share rendering; failures are only logged.
func (r *pageReconciler) invalidate(ctx context.Context, id string) {
	if err := r.s.cache.InvalidateTag(ctx, cache.ShareTag(id)); err != nil {
		r.s.log.Warn("share cache invalidation failed",
			zap.String("page_id", id),
			zap.Error(err))
	}
}
