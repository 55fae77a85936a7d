package csvio

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readAll(t *testing.T, input string) ([]domain.Transaction, int) {
	t.Helper()
	skipped := 0
	r, err := NewReader(strings.NewReader(input), discardLogger(), func() { skipped++ })
	require.NoError(t, err)

	var txs []domain.Transaction
	for {
		tx, err := r.Next(context.Background())
		if err == io.EOF {
			return txs, skipped
		}
		require.NoError(t, err)
		txs = append(txs, tx)
	}
}

func TestReaderBasic(t *testing.T) {
	input := "type,client,tx,amount\n" +
		"deposit,1,1,1.0\n" +
		"withdrawal,1,2,0.5\n" +
		"dispute,1,1,\n"

	txs, skipped := readAll(t, input)
	require.Len(t, txs, 3)
	assert.Zero(t, skipped)

	assert.Equal(t, domain.TransactionTypeDeposit, txs[0].Type)
	assert.Equal(t, domain.ClientID(1), txs[0].ClientID)
	assert.Equal(t, domain.TxID(1), txs[0].TxID)
	require.NotNil(t, txs[0].Amount)
	assert.Equal(t, "1", txs[0].Amount.String())

	assert.Equal(t, domain.TransactionTypeWithdrawal, txs[1].Type)
	assert.Equal(t, domain.TransactionTypeDispute, txs[2].Type)
	assert.Nil(t, txs[2].Amount)
}

func TestReaderTrimsWhitespaceAndIgnoresCase(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"  DEPOSIT ,  2 ,  5 ,  3.25  \n"

	txs, skipped := readAll(t, input)
	require.Len(t, txs, 1)
	assert.Zero(t, skipped)
	assert.Equal(t, domain.TransactionTypeDeposit, txs[0].Type)
	assert.Equal(t, domain.ClientID(2), txs[0].ClientID)
	assert.Equal(t, "3.25", txs[0].Amount.String())
}

func TestReaderArbitraryColumnOrder(t *testing.T) {
	input := "amount,tx,client,type\n" +
		"7.5,9,3,deposit\n"

	txs, skipped := readAll(t, input)
	require.Len(t, txs, 1)
	assert.Zero(t, skipped)
	assert.Equal(t, domain.ClientID(3), txs[0].ClientID)
	assert.Equal(t, domain.TxID(9), txs[0].TxID)
	assert.Equal(t, "7.5", txs[0].Amount.String())
}

func TestReaderSkipsMalformedRows(t *testing.T) {
	input := "type,client,tx,amount\n" +
		"deposit,1,1,1.0\n" +
		"teleport,1,2,1.0\n" +
		"deposit,not_a_client,3,1.0\n" +
		"deposit,1,not_a_tx,1.0\n" +
		"deposit,1,4,not_an_amount\n" +
		"deposit,70000,5,1.0\n" +
		"deposit,1,6,2.0\n"

	txs, skipped := readAll(t, input)
	require.Len(t, txs, 2)
	assert.Equal(t, 5, skipped)
	assert.Equal(t, domain.TxID(1), txs[0].TxID)
	assert.Equal(t, domain.TxID(6), txs[1].TxID)
}

func TestReaderMissingAmountFieldOnDeposit(t *testing.T) {
	// 缺金额的存款不是解析错误，由引擎按缺少金额拒绝
	input := "type,client,tx\n" +
		"deposit,1,1\n"

	txs, skipped := readAll(t, input)
	require.Len(t, txs, 1)
	assert.Zero(t, skipped)
	assert.Nil(t, txs[0].Amount)
}

func TestReaderHeaderValidation(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), discardLogger(), nil)
	require.Error(t, err)

	_, err = NewReader(strings.NewReader("client,tx,amount\n"), discardLogger(), nil)
	require.Error(t, err)
}

func TestReaderEmptyBody(t *testing.T) {
	txs, skipped := readAll(t, "type,client,tx,amount\n")
	assert.Empty(t, txs)
	assert.Zero(t, skipped)
}
