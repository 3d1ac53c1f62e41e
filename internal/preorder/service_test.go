package preorder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/shared"
	"github.com/lumbung-erp/lumbung-erp/internal/store"
)

func newTestService(t *testing.T) (*Service, inventory.Item) {
	t.Helper()
	items := inventory.NewService(inventory.NewRepository(store.NewMemory()), nil, nil)
	item, err := items.Create(context.Background(), inventory.CreateInput{Name: "Wireless Mouse", Stock: 120, Location: "R1B1T1"})
	require.NoError(t, err)
	svc := NewService(NewRepository(store.NewMemory()), items, nil, nil, nil)
	return svc, item
}

func TestCreateSynthesizesNextOrderID(t *testing.T) {
	svc, item := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 2, Location: LocationJakarta})
	require.NoError(t, err)
	require.Equal(t, "PO-001", first.OrderID)
	require.Equal(t, StatusAwaitingApproval, first.Status)
	require.Equal(t, "Wireless Mouse", first.Item)

	// a gap in the sequence does not matter, only the maximum does
	_, err = svc.repo.Create(ctx, PreOrder{OrderID: "PO-003", Company: "CV Sentosa", Item: "USB-C Hub", ItemID: item.ID, Quantity: 1, Status: StatusAwaitingApproval, Location: LocationSurabaya})
	require.NoError(t, err)

	next, err := svc.Create(ctx, CreateInput{Company: "PT Berkah", ItemID: item.ID, Quantity: 5, Location: LocationSurabaya})
	require.NoError(t, err)
	require.Equal(t, "PO-004", next.OrderID)
}

func TestCreateRejectsUnknownItemAndBadInput(t *testing.T) {
	svc, item := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: "missing", Quantity: 1, Location: LocationJakarta})
	require.ErrorIs(t, err, ErrUnknownItemReference)

	_, err = svc.Create(ctx, CreateInput{Company: "", ItemID: item.ID, Quantity: 1, Location: LocationJakarta})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 0, Location: LocationJakarta})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 1, Location: "Bandung"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateIntoExistingGroup(t *testing.T) {
	svc, item := newTestService(t)
	ctx := context.Background()

	head, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 2, Location: LocationJakarta})
	require.NoError(t, err)

	line, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 3, Location: LocationJakarta, OrderID: head.OrderID})
	require.NoError(t, err)
	require.Equal(t, head.OrderID, line.OrderID)
	require.Equal(t, head.OrderDate, line.OrderDate, "order date is inherited from the group")

	_, err = svc.Create(ctx, CreateInput{Company: "CV Lain", ItemID: item.ID, Quantity: 1, Location: LocationJakarta, OrderID: head.OrderID})
	require.ErrorIs(t, err, ErrGroupConflict)

	_, err = svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 1, Location: LocationSurabaya, OrderID: head.OrderID})
	require.ErrorIs(t, err, ErrGroupConflict)

	// once submitted, the group is sealed
	require.NoError(t, svc.SubmitForApproval(ctx, []string{head.ID}, "Admin"))
	_, err = svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 1, Location: LocationJakarta, OrderID: head.OrderID})
	require.ErrorIs(t, err, ErrGroupConflict)
}

func TestSubmitForApproval(t *testing.T) {
	svc, item := newTestService(t)
	ctx := context.Background()

	require.ErrorIs(t, svc.SubmitForApproval(ctx, nil, "Admin"), ErrEmptySelection)

	head, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 2, Location: LocationJakarta})
	require.NoError(t, err)
	sibling, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 4, Location: LocationJakarta, OrderID: head.OrderID})
	require.NoError(t, err)

	// selecting one member submits the whole group
	require.NoError(t, svc.SubmitForApproval(ctx, []string{head.ID}, "Admin"))
	for _, id := range []string{head.ID, sibling.ID} {
		got, err := svc.repo.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, StatusPending, got.Status)
	}

	// a Pending record cannot be submitted again
	require.ErrorIs(t, svc.SubmitForApproval(ctx, []string{head.ID}, "Admin"), ErrInvalidTransition)
}

func TestDecideAppliesToAllSiblings(t *testing.T) {
	svc, item := newTestService(t)
	ctx := context.Background()

	head, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 2, Location: LocationJakarta})
	require.NoError(t, err)
	var ids []string
	ids = append(ids, head.ID)
	for i := 0; i < 2; i++ {
		line, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 1, Location: LocationJakarta, OrderID: head.OrderID})
		require.NoError(t, err)
		ids = append(ids, line.ID)
	}
	require.NoError(t, svc.SubmitForApproval(ctx, []string{head.ID}, "Admin"))

	require.NoError(t, svc.Decide(ctx, head.OrderID, StatusApproved, "Manager"))
	for _, id := range ids {
		got, err := svc.repo.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, StatusApproved, got.Status)
	}

	// terminal states accept no further transition
	require.ErrorIs(t, svc.Decide(ctx, head.OrderID, StatusRejected, "Manager"), ErrInvalidTransition)
	require.ErrorIs(t, svc.SubmitForApproval(ctx, []string{head.ID}, "Admin"), ErrInvalidTransition)
}

func TestDecideRejectsBadOutcomeAndNonPending(t *testing.T) {
	svc, item := newTestService(t)
	ctx := context.Background()

	head, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 2, Location: LocationJakarta})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Decide(ctx, head.OrderID, StatusFulfilled, "Manager"), ErrValidation)
	require.ErrorIs(t, svc.Decide(ctx, head.OrderID, StatusApproved, "Manager"), ErrInvalidTransition, "still awaiting approval")
	require.ErrorIs(t, svc.Decide(ctx, "PO-999", StatusApproved, "Manager"), ErrNotFound)
}

type failingBatchRepo struct {
	*Repository
}

func (failingBatchRepo) BatchUpdateStatus(context.Context, []string, Status) error {
	return errors.New("store unavailable")
}

func TestDecideLeavesStateOnBatchFailure(t *testing.T) {
	items := inventory.NewService(inventory.NewRepository(store.NewMemory()), nil, nil)
	ctx := context.Background()
	item, err := items.Create(ctx, inventory.CreateInput{Name: "Wireless Mouse", Stock: 120, Location: "R1B1T1"})
	require.NoError(t, err)

	repo := NewRepository(store.NewMemory())
	svc := NewService(repo, items, nil, nil, nil)
	head, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 2, Location: LocationJakarta})
	require.NoError(t, err)
	require.NoError(t, svc.SubmitForApproval(ctx, []string{head.ID}, "Admin"))

	broken := NewService(failingBatchRepo{repo}, items, nil, nil, nil)
	require.Error(t, broken.Decide(ctx, head.OrderID, StatusApproved, "Manager"))

	got, err := repo.Get(ctx, head.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status, "no local state change on store failure")
}

func TestPendingGroupsIsDeterministic(t *testing.T) {
	svc, item := newTestService(t)
	ctx := context.Background()

	head, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 2, Location: LocationJakarta})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 3, Location: LocationJakarta, OrderID: head.OrderID})
	require.NoError(t, err)
	solo, err := svc.Create(ctx, CreateInput{Company: "CV Sentosa", ItemID: item.ID, Quantity: 7, Location: LocationSurabaya})
	require.NoError(t, err)
	require.NoError(t, svc.SubmitForApproval(ctx, []string{head.ID, solo.ID}, "Admin"))

	first, err := svc.PendingGroups(ctx)
	require.NoError(t, err)
	second, err := svc.PendingGroups(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second, "grouping twice yields identical summaries")

	require.Len(t, first, 2)
	require.Equal(t, head.OrderID, first[0].OrderID)
	require.Equal(t, 5, first[0].Quantity)
	require.Equal(t, []string{"Wireless Mouse", "Wireless Mouse"}, first[0].Items)
	require.Len(t, first[0].MemberIDs, 2)
	require.Equal(t, solo.OrderID, first[1].OrderID)
	require.Equal(t, 7, first[1].Quantity)
}

func TestUngroupedPendingRecordFormsOwnGroup(t *testing.T) {
	svc, item := newTestService(t)
	ctx := context.Background()

	id, err := svc.repo.Create(ctx, PreOrder{Company: "CV Mandiri", Item: "USB-C Hub", ItemID: item.ID, Quantity: 4, Status: StatusPending, Location: LocationJakarta})
	require.NoError(t, err)

	groups, err := svc.PendingGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, id, groups[0].OrderID, "ungrouped records are keyed by record id")
	require.Equal(t, []string{id}, groups[0].MemberIDs)

	// the bare record id also works as a decision ref
	require.NoError(t, svc.Decide(ctx, id, StatusRejected, "Manager"))
	got, err := svc.repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, got.Status)
}

// recordingAudit captures audit entries for assertions.
type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	if log.EntityID == "" {
		return errors.New("audit log requires entity id")
	}
	a.logs = append(a.logs, log)
	return nil
}

// memoryApprovals is an in-memory ApprovalPort.
type memoryApprovals struct {
	logs []shared.ApprovalLog
}

func (m *memoryApprovals) Record(_ context.Context, log shared.ApprovalLog) error {
	if log.RefID == "" {
		return errors.New("approval ref id required")
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryApprovals) List(_ context.Context, module, ref string) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, log := range m.logs {
		if log.Module == module && log.RefID == ref {
			out = append(out, log)
		}
	}
	return out, nil
}

func (m *memoryApprovals) EnsureSubmit(ctx context.Context, module, ref, actor, note string) error {
	for _, log := range m.logs {
		if log.Module == module && log.RefID == ref && log.Action == shared.ApprovalSubmit {
			return nil
		}
	}
	return m.Record(ctx, shared.ApprovalLog{Module: module, RefID: ref, Actor: actor, Action: shared.ApprovalSubmit, Note: note})
}

func TestSubmitRecordsAuditPerOrderGroup(t *testing.T) {
	items := inventory.NewService(inventory.NewRepository(store.NewMemory()), nil, nil)
	item, err := items.Create(context.Background(), inventory.CreateInput{Name: "Wireless Mouse", Stock: 120, Location: "R1B1T1"})
	require.NoError(t, err)
	audit := &recordingAudit{}
	approvals := &memoryApprovals{}
	svc := NewService(NewRepository(store.NewMemory()), items, approvals, audit, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 2, Location: LocationJakarta, Actor: "Admin"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Company: "PT Maju Jaya", ItemID: item.ID, Quantity: 1, Location: LocationJakarta, OrderID: first.OrderID, Actor: "Admin"})
	require.NoError(t, err)

	audit.logs = nil
	require.NoError(t, svc.SubmitForApproval(ctx, []string{first.ID}, "Admin"))

	require.Len(t, audit.logs, 1)
	require.Equal(t, "PREORDER_SUBMIT", audit.logs[0].Action)
	require.Equal(t, first.OrderID, audit.logs[0].EntityID)
	require.Len(t, audit.logs[0].Meta["ids"], 2)

	history, err := svc.ApprovalHistory(ctx, first.OrderID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, shared.ApprovalSubmit, history[0].Action)
}

func TestDecideBackfillsSubmitInApprovalTrail(t *testing.T) {
	items := inventory.NewService(inventory.NewRepository(store.NewMemory()), nil, nil)
	item, err := items.Create(context.Background(), inventory.CreateInput{Name: "Standing Desk", Stock: 5, Location: "R1B2T2"})
	require.NoError(t, err)
	approvals := &memoryApprovals{}
	repo := NewRepository(store.NewMemory())
	svc := NewService(repo, items, approvals, nil, nil)
	ctx := context.Background()

	// an ungrouped record can land in Pending without going through submit
	id, err := repo.Create(ctx, PreOrder{Company: "CV Sentosa", Item: "Standing Desk", ItemID: item.ID, Quantity: 1, Status: StatusPending, Location: LocationSurabaya})
	require.NoError(t, err)

	require.NoError(t, svc.Decide(ctx, id, StatusApproved, "Admin"))

	history, err := svc.ApprovalHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, shared.ApprovalSubmit, history[0].Action)
	require.Equal(t, shared.ApprovalApprove, history[1].Action)
}
