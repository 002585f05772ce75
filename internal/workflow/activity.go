package workflow

import (
	"context"

	"arka-asset-api/internal/models"
	"arka-asset-api/internal/permission"
)

// Comment-thread operations on the request activity log. These are
// independent of the state machine and interleave freely; they only need
// append/replace-by-id semantics on a single collection. Discussion closes
// once the request reaches a terminal state.

func commentsOpen(req *models.Request) error {
	if req.Status.Terminal() {
		return validationf("discussion is closed on a %s request", req.Status)
	}
	return nil
}

// AddComment appends a comment, optionally as a reply to an existing entry.
func (s *Service) AddComment(ctx context.Context, actor models.Actor, requestID, message string, parentID *string) (*models.ActivityEntry, error) {
	if err := requirePermission(actor, permission.RequestsComment); err != nil {
		return nil, err
	}
	if message == "" {
		return nil, validationf("comment message is required")
	}

	var entry models.ActivityEntry
	_, err := s.mutateRequest(ctx, requestID, func(req *models.Request) error {
		if err := commentsOpen(req); err != nil {
			return err
		}
		if parentID != nil {
			found := false
			for _, e := range req.ActivityLog {
				if e.ID == *parentID && !e.Deleted {
					found = true
					break
				}
			}
			if !found {
				return &NotFoundError{Collection: "activity", ID: *parentID}
			}
		}
		entry = models.ActivityEntry{
			ID:        newEntryID(),
			Type:      models.ActivityComment,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Message:   message,
			ParentID:  parentID,
			CreatedAt: s.now(),
		}
		req.ActivityLog = append(req.ActivityLog, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// EditComment replaces the message of the actor's own comment.
func (s *Service) EditComment(ctx context.Context, actor models.Actor, requestID, entryID, message string) (*models.ActivityEntry, error) {
	if message == "" {
		return nil, validationf("comment message is required")
	}
	var entry models.ActivityEntry
	_, err := s.mutateRequest(ctx, requestID, func(req *models.Request) error {
		if err := commentsOpen(req); err != nil {
			return err
		}
		for i := range req.ActivityLog {
			e := &req.ActivityLog[i]
			if e.ID != entryID {
				continue
			}
			if e.Type != models.ActivityComment || e.Deleted {
				return validationf("entry %s is not an editable comment", entryID)
			}
			if e.ActorID != actor.ID {
				return &ForbiddenError{Permission: permission.RequestsComment}
			}
			now := s.now()
			e.Message = message
			e.EditedAt = &now
			entry = *e
			return nil
		}
		return &NotFoundError{Collection: "activity", ID: entryID}
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteComment tombstones the actor's own comment, keeping replies attached.
func (s *Service) DeleteComment(ctx context.Context, actor models.Actor, requestID, entryID string) error {
	_, err := s.mutateRequest(ctx, requestID, func(req *models.Request) error {
		if err := commentsOpen(req); err != nil {
			return err
		}
		for i := range req.ActivityLog {
			e := &req.ActivityLog[i]
			if e.ID != entryID {
				continue
			}
			if e.Type != models.ActivityComment || e.Deleted {
				return validationf("entry %s is not a deletable comment", entryID)
			}
			if e.ActorID != actor.ID && !actor.Can(permission.UsersManage) {
				return &ForbiddenError{Permission: permission.RequestsComment}
			}
			e.Deleted = true
			e.Message = ""
			return nil
		}
		return &NotFoundError{Collection: "activity", ID: entryID}
	})
	return err
}

// RequestActivity returns the request's activity log as a materialized
// thread.
func (s *Service) RequestActivity(ctx context.Context, requestID string) ([]*models.ActivityNode, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return models.ThreadActivity(req.ActivityLog), nil
}
