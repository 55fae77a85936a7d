package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
	"github.com/wyfcoding/paymentsengine/pkg/metrics"
)

// sliceSource 内存数据源，供管道测试使用
type sliceSource struct {
	txs []domain.Transaction
	pos int
	err error
}

func (s *sliceSource) Next(_ context.Context) (domain.Transaction, error) {
	if s.pos >= len(s.txs) {
		if s.err != nil {
			return domain.Transaction{}, s.err
		}
		return domain.Transaction{}, io.EOF
	}
	tx := s.txs[s.pos]
	s.pos++
	return tx, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustAmount(t *testing.T, raw string) *domain.Amount {
	t.Helper()
	a, err := domain.ParseAmount(raw)
	require.NoError(t, err)
	return &a
}

func newService(t *testing.T) *SettlementService {
	t.Helper()
	engine := domain.NewEngine(domain.DefaultQueueCapacity, discardLogger())
	return NewSettlementService(engine, discardLogger(), metrics.New("settlement_test"), 2)
}

func TestProcessProducesSortedSnapshot(t *testing.T) {
	svc := newService(t)
	src := &sliceSource{txs: []domain.Transaction{
		{Type: domain.TransactionTypeDeposit, ClientID: 7, TxID: 1, Amount: mustAmount(t, "3.0")},
		{Type: domain.TransactionTypeDeposit, ClientID: 2, TxID: 2, Amount: mustAmount(t, "1.5")},
		{Type: domain.TransactionTypeWithdrawal, ClientID: 7, TxID: 3, Amount: mustAmount(t, "1.0")},
	}}

	snapshots, err := svc.Process(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	assert.Equal(t, domain.ClientID(2), snapshots[0].ClientID)
	assert.Equal(t, "1.5", snapshots[0].Available.String())
	assert.Equal(t, domain.ClientID(7), snapshots[1].ClientID)
	assert.Equal(t, "2", snapshots[1].Available.String())
}

func TestProcessRejectionsDoNotAbortPipeline(t *testing.T) {
	svc := newService(t)
	src := &sliceSource{txs: []domain.Transaction{
		{Type: domain.TransactionTypeDeposit, ClientID: 1, TxID: 1, Amount: mustAmount(t, "1.0")},
		{Type: domain.TransactionTypeWithdrawal, ClientID: 1, TxID: 2, Amount: mustAmount(t, "50.0")},
		{Type: domain.TransactionTypeDeposit, ClientID: 1, TxID: 3, Amount: mustAmount(t, "2.0")},
	}}

	snapshots, err := svc.Process(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "3", snapshots[0].Available.String())
}

func TestProcessSourceErrorAbortsPipeline(t *testing.T) {
	svc := newService(t)
	srcErr := errors.New("broker unreachable")
	src := &sliceSource{
		txs: []domain.Transaction{
			{Type: domain.TransactionTypeDeposit, ClientID: 1, TxID: 1, Amount: mustAmount(t, "1.0")},
		},
		err: srcErr,
	}

	_, err := svc.Process(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, srcErr)
}

func TestAccountsViewPublishedAfterProcess(t *testing.T) {
	svc := newService(t)
	src := &sliceSource{txs: []domain.Transaction{
		{Type: domain.TransactionTypeDeposit, ClientID: 1, TxID: 1, Amount: mustAmount(t, "10.0")},
		{Type: domain.TransactionTypeDeposit, ClientID: 2, TxID: 2, Amount: mustAmount(t, "0.0001")},
	}}

	_, err := svc.Process(context.Background(), src)
	require.NoError(t, err)

	accounts := svc.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "10", accounts[0].Available)
	assert.Equal(t, "0.0001", accounts[1].Available)

	got, ok := svc.Account(2)
	require.True(t, ok)
	assert.Equal(t, uint16(2), got.Client)
	assert.Equal(t, "0.0001", got.Total)

	_, ok = svc.Account(99)
	assert.False(t, ok)
}

func TestAccountsViewEmptyBeforeProcess(t *testing.T) {
	svc := newService(t)
	assert.Empty(t, svc.Accounts())
}
