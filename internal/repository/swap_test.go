package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehome/rota/pkg/model"
)

var swapCols = []string{
	"id", "requester_shift_id", "target_shift_id", "requester_id", "target_user_id",
	"status", "requester_message", "response_message",
	"conflict_checked", "has_conflicts", "conflict_notes",
	"requested_at", "responded_at", "completed_at", "expires_at",
	"created_at", "updated_at",
}

func swapRow(req *model.ShiftSwapRequest) *sqlmock.Rows {
	return sqlmock.NewRows(swapCols).AddRow(
		req.ID, req.RequesterShiftID, req.TargetShiftID, req.RequesterID, req.TargetUserID,
		string(req.Status), req.RequesterMessage, req.ResponseMessage,
		req.ConflictChecked, req.HasConflicts, "{}",
		req.RequestedAt, req.RespondedAt, req.CompletedAt, req.ExpiresAt,
		req.CreatedAt, req.UpdatedAt,
	)
}

func TestSwapRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	req := model.NewShiftSwapRequest(uuid.New(), uuid.New(), uuid.New(), uuid.New())

	mock.ExpectQuery(`(?s)SELECT (.+) FROM shift_swap_requests WHERE id = \$1`).
		WithArgs(req.ID).
		WillReturnRows(swapRow(req))

	got, err := NewSwapRepository(db).GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, model.SwapPending, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`(?s)SELECT (.+) FROM shift_swap_requests WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(swapCols))

	got, err := NewSwapRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err, "missing request is not an error")
	assert.Nil(t, got)
}

func TestSwapRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	req := model.NewShiftSwapRequest(uuid.New(), uuid.New(), uuid.New(), uuid.New())
	req.RequesterMessage = "想换个班"

	mock.ExpectExec(`INSERT INTO shift_swap_requests`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewSwapRepository(db).Create(context.Background(), req)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepository_Update_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	req := model.NewShiftSwapRequest(uuid.New(), uuid.New(), uuid.New(), uuid.New())

	mock.ExpectExec(`UPDATE shift_swap_requests SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewSwapRepository(db).Update(context.Background(), req)
	require.Error(t, err, "updating a missing request must fail")
}

func TestSwapRepository_ListPendingByShift(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	shiftID := uuid.New()
	req := model.NewShiftSwapRequest(shiftID, uuid.New(), uuid.New(), uuid.New())

	mock.ExpectQuery(`(?s)SELECT (.+) FROM shift_swap_requests\s+WHERE status = 'pending'`).
		WithArgs(shiftID).
		WillReturnRows(swapRow(req))

	got, err := NewSwapRepository(db).ListPendingByShift(context.Background(), shiftID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, req.ID, got[0].ID)
}

func TestSwapRepository_ScanTimestamps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	req := model.NewShiftSwapRequest(uuid.New(), uuid.New(), uuid.New(), uuid.New())
	now := time.Now()
	req.Status = model.SwapCompleted
	req.RespondedAt = &now
	req.CompletedAt = &now

	mock.ExpectQuery(`(?s)SELECT (.+) FROM shift_swap_requests WHERE id = \$1`).
		WithArgs(req.ID).
		WillReturnRows(swapRow(req))

	got, err := NewSwapRepository(db).GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RespondedAt)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, model.SwapCompleted, got.Status)
}

func TestSwapRepository_CreateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	req := model.NewShiftSwapRequest(uuid.New(), uuid.New(), uuid.New(), uuid.New())

	mock.ExpectExec(`INSERT INTO shift_swap_requests`).
		WillReturnError(fmt.Errorf("connection reset"))

	err = NewSwapRepository(db).Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "写入换班请求失败")
}
