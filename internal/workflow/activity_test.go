package workflow

import (
	"context"
	"testing"

	"arka-asset-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentThread(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := newPendingRequest(t, s)
	staff := staffActor()
	logistic := logisticActor()

	root, err := s.AddComment(ctx, staff, req.ID, "Can this wait until next quarter?", nil)
	require.NoError(t, err)

	reply, err := s.AddComment(ctx, logistic, req.ID, "No, stock runs out this month.", &root.ID)
	require.NoError(t, err)

	nested, err := s.AddComment(ctx, staff, req.ID, "Understood, go ahead.", &reply.ID)
	require.NoError(t, err)

	nodes, err := s.RequestActivity(ctx, req.ID)
	require.NoError(t, err)

	// Roots: the creation status entry plus the top-level comment.
	require.Len(t, nodes, 2)
	var thread *models.ActivityNode
	for _, n := range nodes {
		if n.ID == root.ID {
			thread = n
		}
	}
	require.NotNil(t, thread)
	require.Len(t, thread.Replies, 1)
	assert.Equal(t, reply.ID, thread.Replies[0].ID)
	require.Len(t, thread.Replies[0].Replies, 1)
	assert.Equal(t, nested.ID, thread.Replies[0].Replies[0].ID)
}

func TestAddCommentValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := newPendingRequest(t, s)

	_, err := s.AddComment(ctx, staffActor(), req.ID, "", nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	missing := "no-such-entry"
	_, err = s.AddComment(ctx, staffActor(), req.ID, "reply to nothing", &missing)
	var nferr *NotFoundError
	assert.ErrorAs(t, err, &nferr)
}

func TestEditCommentOnlyOwn(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := newPendingRequest(t, s)

	entry, err := s.AddComment(ctx, staffActor(), req.ID, "original", nil)
	require.NoError(t, err)

	_, err = s.EditComment(ctx, logisticActor(), req.ID, entry.ID, "hijacked")
	var ferr *ForbiddenError
	require.ErrorAs(t, err, &ferr)

	got, err := s.EditComment(ctx, staffActor(), req.ID, entry.ID, "clarified")
	require.NoError(t, err)
	assert.Equal(t, "clarified", got.Message)
	assert.NotNil(t, got.EditedAt)
}

func TestDeleteCommentTombstonesAndKeepsReplies(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := newPendingRequest(t, s)
	staff := staffActor()

	root, err := s.AddComment(ctx, staff, req.ID, "to be removed", nil)
	require.NoError(t, err)
	reply, err := s.AddComment(ctx, logisticActor(), req.ID, "still relevant", &root.ID)
	require.NoError(t, err)

	// Another non-admin user may not delete it; an admin may.
	err = s.DeleteComment(ctx, logisticActor(), req.ID, root.ID)
	var ferr *ForbiddenError
	require.ErrorAs(t, err, &ferr)

	require.NoError(t, s.DeleteComment(ctx, staff, req.ID, root.ID))

	nodes, err := s.RequestActivity(ctx, req.ID)
	require.NoError(t, err)
	var thread *models.ActivityNode
	for _, n := range nodes {
		if n.ID == root.ID {
			thread = n
		}
	}
	require.NotNil(t, thread)
	assert.True(t, thread.Deleted)
	assert.Empty(t, thread.Message)
	require.Len(t, thread.Replies, 1)
	assert.Equal(t, reply.ID, thread.Replies[0].ID)

	// A tombstone cannot be replied to or deleted again.
	_, err = s.AddComment(ctx, staff, req.ID, "reply to tombstone", &root.ID)
	var nferr *NotFoundError
	assert.ErrorAs(t, err, &nferr)
	err = s.DeleteComment(ctx, staff, req.ID, root.ID)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAdminMayDeleteOthersComments(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := newPendingRequest(t, s)

	entry, err := s.AddComment(ctx, staffActor(), req.ID, "spam", nil)
	require.NoError(t, err)
	require.NoError(t, s.DeleteComment(ctx, adminActor(), req.ID, entry.ID))
}

func TestDiscussionClosesOnTerminalRequest(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := newPendingRequest(t, s)

	entry, err := s.AddComment(ctx, staffActor(), req.ID, "before cancellation", nil)
	require.NoError(t, err)

	_, err = s.CancelRequest(ctx, staffActor(), req.ID, "no longer needed")
	require.NoError(t, err)

	var verr *ValidationError
	_, err = s.AddComment(ctx, staffActor(), req.ID, "after the fact", nil)
	assert.ErrorAs(t, err, &verr)
	_, err = s.EditComment(ctx, staffActor(), req.ID, entry.ID, "rewrite history")
	assert.ErrorAs(t, err, &verr)
	err = s.DeleteComment(ctx, staffActor(), req.ID, entry.ID)
	assert.ErrorAs(t, err, &verr)

	// Reading stays possible.
	nodes, err := s.RequestActivity(ctx, req.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, nodes)
}
