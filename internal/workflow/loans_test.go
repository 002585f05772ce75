package workflow

import (
	"context"
	"testing"
	"time"

	"arka-asset-api/internal/models"
	"arka-asset-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPendingLoan opens a single-item loan for two units due in a week.
func newPendingLoan(t *testing.T, s *Service) *models.LoanRequest {
	t.Helper()
	loan, err := s.CreateLoan(context.Background(), staffActor(), models.CreateLoanInput{
		Division: "Engineering",
		Purpose:  "field visit",
		Items: []models.LoanItem{
			{Name: "Laptop", Quantity: 2, ReturnDate: testTime.Add(7 * 24 * time.Hour)},
		},
	})
	require.NoError(t, err)
	return loan
}

func TestCreateLoanValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateLoan(ctx, staffActor(), models.CreateLoanInput{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = s.CreateLoan(ctx, staffActor(), models.CreateLoanInput{
		Items: []models.LoanItem{{Name: "Laptop", Quantity: 1, ReturnDate: testTime.Add(-time.Hour)}},
	})
	assert.ErrorAs(t, err, &verr, "return date in the past must be rejected")
}

func TestApproveLoanConflictLeavesEverythingUntouched(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	holder := "someone-else"
	seedAssets(t, s,
		storedAsset("A1", models.AssetInStorage, nil),
		storedAsset("A2", models.AssetInUse, &holder),
	)
	loan := newPendingLoan(t, s)

	_, err := s.ApproveLoan(ctx, logisticActor(), loan.ID,
		map[string][]string{loan.Items[0].ID: {"A1", "A2"}}, nil)

	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{"A2"}, cerr.EntityIDs)

	// Nothing moved: A1 is still free, the loan is still pending.
	a1, err := s.GetAsset(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, models.AssetInStorage, a1.Status)
	assert.Nil(t, a1.CurrentUser)

	got, err := s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanPending, got.Status)
	assert.Empty(t, got.AssignedAssetIDs)
}

func TestApproveLoanAssignsAtomically(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	seedAssets(t, s,
		storedAsset("A1", models.AssetInStorage, nil),
		storedAsset("A2", models.AssetInStorage, nil),
	)
	loan := newPendingLoan(t, s)

	got, err := s.ApproveLoan(ctx, logisticActor(), loan.ID,
		map[string][]string{loan.Items[0].ID: {"A1", "A2"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.LoanApproved, got.Status)
	assert.ElementsMatch(t, []string{"A1", "A2"}, got.AssignedAssets())

	for _, id := range []string{"A1", "A2"} {
		a, err := s.GetAsset(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.AssetInUse, a.Status)
		require.NotNil(t, a.CurrentUser)
		assert.Equal(t, loan.RequesterID, *a.CurrentUser)
		assert.Equal(t, "With "+loan.RequesterName, a.Location)
	}
}

func TestApproveLoanRejectsDuplicateAssignment(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	seedAssets(t, s, storedAsset("A1", models.AssetInStorage, nil))
	loan, err := s.CreateLoan(ctx, staffActor(), models.CreateLoanInput{
		Items: []models.LoanItem{
			{Name: "Laptop", Quantity: 1, ReturnDate: testTime.Add(24 * time.Hour)},
			{Name: "Projector", Quantity: 1, ReturnDate: testTime.Add(24 * time.Hour)},
		},
	})
	require.NoError(t, err)

	_, err = s.ApproveLoan(ctx, logisticActor(), loan.ID, map[string][]string{
		loan.Items[0].ID: {"A1"},
		loan.Items[1].ID: {"A1"},
	}, nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestApproveLoanAllItemsRejected(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	loan := newPendingLoan(t, s)

	got, err := s.ApproveLoan(ctx, logisticActor(), loan.ID, nil, map[string]models.ItemStatus{
		loan.Items[0].ID: {Status: models.ItemRejected, Reason: "no stock"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.LoanRejected, got.Status)
	assert.Empty(t, got.AssignedAssetIDs)
}

func TestApproveLoanDropsRejectedItemAssignments(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	holder := "someone-else"
	seedAssets(t, s,
		storedAsset("A1", models.AssetInStorage, nil),
		storedAsset("A2", models.AssetInUse, &holder),
	)
	loan, err := s.CreateLoan(ctx, staffActor(), models.CreateLoanInput{
		Items: []models.LoanItem{
			{Name: "Laptop", Quantity: 1, ReturnDate: testTime.Add(24 * time.Hour)},
			{Name: "Projector", Quantity: 1, ReturnDate: testTime.Add(24 * time.Hour)},
		},
	})
	require.NoError(t, err)

	// The approval screen may still carry an assignment for the item the
	// reviewer just rejected. That entry must not ride along onto the loan:
	// A2 was never conflict-checked and never flipped.
	got, err := s.ApproveLoan(ctx, logisticActor(), loan.ID,
		map[string][]string{
			loan.Items[0].ID: {"A1"},
			loan.Items[1].ID: {"A2"},
		},
		map[string]models.ItemStatus{
			loan.Items[1].ID: {Status: models.ItemRejected, Reason: "not loanable"},
		})
	require.NoError(t, err)
	assert.Equal(t, models.LoanApproved, got.Status)
	assert.Equal(t, []string{"A1"}, got.AssignedAssets())
	assert.Equal(t, []string{"A1"}, got.OutstandingAssets())

	a2, err := s.GetAsset(ctx, "A2")
	require.NoError(t, err)
	assert.Equal(t, models.AssetInUse, a2.Status)
	require.NotNil(t, a2.CurrentUser)
	assert.Equal(t, holder, *a2.CurrentUser)

	// Returning A1 alone closes the loan; A2 never counted as outstanding.
	logistic := logisticActor()
	_, err = s.MarkOnLoan(ctx, logistic, loan.ID)
	require.NoError(t, err)
	docs, err := s.InitiateReturn(ctx, logistic, loan.ID, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	_, err = s.ConfirmReturn(ctx, logistic, docs[0].ID, "Good")
	require.NoError(t, err)
	got, err = s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanReturned, got.Status)
}

func TestApproveLoanRequiresPending(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	seedAssets(t, s, storedAsset("A1", models.AssetInStorage, nil))
	loan := newPendingLoan(t, s)
	assign := map[string][]string{loan.Items[0].ID: {"A1"}}

	_, err := s.ApproveLoan(ctx, logisticActor(), loan.ID, assign, nil)
	require.NoError(t, err)

	_, err = s.ApproveLoan(ctx, logisticActor(), loan.ID, assign, nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLoanReturnCycle(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	logistic := logisticActor()

	seedAssets(t, s,
		storedAsset("A1", models.AssetInStorage, nil),
		storedAsset("A2", models.AssetInStorage, nil),
	)
	loan := newPendingLoan(t, s)
	_, err := s.ApproveLoan(ctx, logistic, loan.ID, map[string][]string{loan.Items[0].ID: {"A1", "A2"}}, nil)
	require.NoError(t, err)
	_, err = s.MarkOnLoan(ctx, logistic, loan.ID)
	require.NoError(t, err)

	// Initiate with no selection: all outstanding assets get return docs.
	docs, err := s.InitiateReturn(ctx, logistic, loan.ID, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Equal(t, models.DocPending, doc.Status)
	}

	got, err := s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanAwaitingReturn, got.Status)

	a1, err := s.GetAsset(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, models.AssetAwaitingReturn, a1.Status)

	// First confirmation: loan stays open.
	_, err = s.ConfirmReturn(ctx, logistic, docs[0].ID, "Good")
	require.NoError(t, err)
	got, err = s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanAwaitingReturn, got.Status)
	assert.Len(t, got.OutstandingAssets(), 1)

	// Second confirmation closes the loan.
	_, err = s.ConfirmReturn(ctx, logistic, docs[1].ID, "Worn")
	require.NoError(t, err)
	got, err = s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanReturned, got.Status)
	require.NotNil(t, got.ActualReturnDate)

	returned, err := s.GetAsset(ctx, docs[1].AssetID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetInStorage, returned.Status)
	assert.Equal(t, "Worn", returned.Condition)
	assert.Nil(t, returned.CurrentUser)
}

func TestRejectReturnRevertsAsset(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	logistic := logisticActor()

	seedAssets(t, s, storedAsset("A1", models.AssetInStorage, nil))
	loan := newPendingLoan(t, s)
	_, err := s.ApproveLoan(ctx, logistic, loan.ID, map[string][]string{loan.Items[0].ID: {"A1"}}, nil)
	require.NoError(t, err)
	docs, err := s.InitiateReturn(ctx, logistic, loan.ID, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc, err := s.RejectReturn(ctx, logistic, docs[0].ID, "screen cracked, not accepted")
	require.NoError(t, err)
	assert.Equal(t, models.DocRejected, doc.Status)

	a1, err := s.GetAsset(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, models.AssetInUse, a1.Status)

	// That was the only open return, so nothing is awaiting anymore: the
	// loan falls back to ON_LOAN with the asset still outstanding.
	got, err := s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanOnLoan, got.Status)
	assert.Len(t, got.OutstandingAssets(), 1)
}

func TestRejectReturnKeepsAwaitingWhileOthersOpen(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	logistic := logisticActor()

	seedAssets(t, s,
		storedAsset("A1", models.AssetInStorage, nil),
		storedAsset("A2", models.AssetInStorage, nil),
	)
	loan := newPendingLoan(t, s)
	_, err := s.ApproveLoan(ctx, logistic, loan.ID, map[string][]string{loan.Items[0].ID: {"A1", "A2"}}, nil)
	require.NoError(t, err)
	docs, err := s.InitiateReturn(ctx, logistic, loan.ID, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// One rejection with the second return still pending: the loan keeps
	// waiting for it.
	_, err = s.RejectReturn(ctx, logistic, docs[0].ID, "wrong unit presented")
	require.NoError(t, err)
	got, err := s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanAwaitingReturn, got.Status)

	// Rejecting the last one clears the awaiting state too.
	_, err = s.RejectReturn(ctx, logistic, docs[1].ID, "wrong unit presented")
	require.NoError(t, err)
	got, err = s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanOnLoan, got.Status)
}

func TestOverdueProjection(t *testing.T) {
	st := store.NewMemory()
	clock := testTime
	s := NewService(st, WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	logistic := logisticActor()

	seedAssets(t, s, storedAsset("A1", models.AssetInStorage, nil))
	loan, err := s.CreateLoan(ctx, staffActor(), models.CreateLoanInput{
		Items: []models.LoanItem{{Name: "Laptop", Quantity: 1, ReturnDate: testTime.Add(24 * time.Hour)}},
	})
	require.NoError(t, err)
	_, err = s.ApproveLoan(ctx, logistic, loan.ID, map[string][]string{loan.Items[0].ID: {"A1"}}, nil)
	require.NoError(t, err)
	_, err = s.MarkOnLoan(ctx, logistic, loan.ID)
	require.NoError(t, err)

	// Before the due date the loan reads as ON_LOAN.
	got, err := s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanOnLoan, got.Status)

	// Past the due date with the asset outstanding it reads OVERDUE, while
	// the persisted record still says ON_LOAN.
	clock = testTime.Add(48 * time.Hour)
	got, err = s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanOverdue, got.Status)

	var raw []models.LoanRequest
	require.NoError(t, st.Get(ctx, store.LoanRequests, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, models.LoanOnLoan, raw[0].Status)

	// Returning the asset clears the projection.
	docs, err := s.InitiateReturn(ctx, logistic, loan.ID, nil)
	require.NoError(t, err)
	_, err = s.ConfirmReturn(ctx, logistic, docs[0].ID, "Good")
	require.NoError(t, err)

	got, err = s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanReturned, got.Status)
}
