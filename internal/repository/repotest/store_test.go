package repotest

import (
	"context"
	"errors"
	"testing"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTx_RollbackKeepsOtherTxHistory(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(a repo.TxRepos) error {
		require.NoError(t, a.History().Append(ctx, &model.OrderStatusHistory{OrderID: 1, Status: model.OrderStatusPending, ChangedBy: 7}))

		// a second transaction commits while the first is still open
		require.NoError(t, s.WithinTx(ctx, func(b repo.TxRepos) error {
			return b.History().Append(ctx, &model.OrderStatusHistory{OrderID: 2, Status: model.OrderStatusPending, ChangedBy: 8})
		}))

		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Empty(t, s.HistoryOf(1))
	rows := s.HistoryOf(2)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(8), rows[0].ChangedBy)
}

func TestWithinTx_RollbackRestoresOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	o := s.AddOrder(model.Order{UserID: 1, RestaurantID: 1, Status: model.OrderStatusPending})

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Orders().CompareAndSetStatus(ctx, repo.StatusUpdate{OrderID: o.ID, From: model.OrderStatusPending, To: model.OrderStatusConfirmed})
		require.NoError(t, err)
		require.True(t, ok)
		return errors.New("later step failed")
	})
	require.Error(t, err)

	assert.Equal(t, model.OrderStatusPending, s.Order(o.ID).Status)
}
