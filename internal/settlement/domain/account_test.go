package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amt(t *testing.T, s string) Amount {
	t.Helper()
	a, err := ParseAmount(s)
	require.NoError(t, err)
	return a
}

func assertBalances(t *testing.T, account *ClientAccount, available, held string) {
	t.Helper()
	assert.Equal(t, amt(t, available), account.Available(), "available mismatch")
	assert.Equal(t, amt(t, held), account.Held(), "held mismatch")
	assert.Equal(t, account.Available().Add(account.Held()), account.Total(), "total must equal available + held")
}

func TestDeposit(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "100")))

	assertBalances(t, account, "100", "0")
	assert.False(t, account.Locked())

	entry, ok := account.Entry(1)
	require.True(t, ok)
	assert.Equal(t, TransactionTypeDeposit, entry.Type)
	assert.Equal(t, amt(t, "100"), entry.Amount)
	assert.Equal(t, DisputeStatusNone, entry.Status)
}

func TestDepositRejections(t *testing.T) {
	t.Run("negative amount", func(t *testing.T) {
		account := NewClientAccount(1)
		err := account.Deposit(1, amt(t, "-100"))
		assert.ErrorIs(t, err, ErrNegativeAmount)
		assertBalances(t, account, "0", "0")
		_, ok := account.Entry(1)
		assert.False(t, ok, "failed deposit must not be recorded")
	})

	t.Run("duplicate tx id", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, amt(t, "10")))
		err := account.Deposit(1, amt(t, "5"))
		assert.ErrorIs(t, err, ErrDuplicateTransaction)
		assertBalances(t, account, "10", "0")
	})

	t.Run("locked account", func(t *testing.T) {
		account := lockedAccount(t)
		err := account.Deposit(10, amt(t, "5"))
		assert.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("overflow", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, NewAmount(math.MaxInt64)))
		err := account.Deposit(2, amt(t, "0.0001"))
		assert.ErrorIs(t, err, ErrAmountOverflow)
		assert.Equal(t, NewAmount(math.MaxInt64), account.Available())
		_, ok := account.Entry(2)
		assert.False(t, ok)
	})
}

// lockedAccount 构造一个经历过拒付而锁定的账户：
// 存入 100 -> 争议 -> 拒付，余额归零、locked = true。
func lockedAccount(t *testing.T) *ClientAccount {
	t.Helper()
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "100")))
	require.NoError(t, account.Dispute(1))
	require.NoError(t, account.Chargeback(1))
	require.True(t, account.Locked())
	return account
}

func TestWithdraw(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "100")))
	require.NoError(t, account.Withdraw(2, amt(t, "30")))
	assertBalances(t, account, "70", "0")

	entry, ok := account.Entry(2)
	require.True(t, ok)
	assert.Equal(t, TransactionTypeWithdrawal, entry.Type)
}

func TestWithdrawExactBalance(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "100")))
	require.NoError(t, account.Withdraw(2, amt(t, "100")))
	assertBalances(t, account, "0", "0")
}

func TestWithdrawRejections(t *testing.T) {
	t.Run("insufficient funds", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, amt(t, "100")))
		err := account.Withdraw(2, amt(t, "150"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assertBalances(t, account, "100", "0")
		// 失败的取款不入账，之后对它的争议同样无效
		_, ok := account.Entry(2)
		assert.False(t, ok)
	})

	t.Run("negative amount", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, amt(t, "100")))
		err := account.Withdraw(2, amt(t, "-50"))
		assert.ErrorIs(t, err, ErrNegativeAmount)
		assertBalances(t, account, "100", "0")
	})

	t.Run("duplicate tx id", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, amt(t, "100")))
		err := account.Withdraw(1, amt(t, "10"))
		assert.ErrorIs(t, err, ErrDuplicateTransaction)
		assertBalances(t, account, "100", "0")
	})

	t.Run("locked account", func(t *testing.T) {
		account := lockedAccount(t)
		err := account.Withdraw(10, amt(t, "1"))
		assert.ErrorIs(t, err, ErrAccountLocked)
	})
}

func TestZeroAmountDepositIsValidAndDisputable(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "0")))
	_, ok := account.Entry(1)
	assert.True(t, ok)

	require.NoError(t, account.Dispute(1))
	assertBalances(t, account, "0", "0")
	entry, _ := account.Entry(1)
	assert.Equal(t, DisputeStatusDisputed, entry.Status)
}

func TestDisputeHoldsFunds(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "100")))
	require.NoError(t, account.Dispute(1))

	assertBalances(t, account, "0", "100")
	entry, _ := account.Entry(1)
	assert.Equal(t, DisputeStatusDisputed, entry.Status)
}

func TestDisputeRejections(t *testing.T) {
	t.Run("unknown tx", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, amt(t, "100")))
		assert.ErrorIs(t, account.Dispute(999), ErrTransactionNotFound)
		assertBalances(t, account, "100", "0")
	})

	t.Run("withdrawal cannot be disputed", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, amt(t, "100")))
		require.NoError(t, account.Withdraw(2, amt(t, "30")))
		assert.ErrorIs(t, account.Dispute(2), ErrNotDisputable)
		assertBalances(t, account, "70", "0")
	})

	t.Run("double dispute", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, amt(t, "100")))
		require.NoError(t, account.Dispute(1))
		assert.ErrorIs(t, account.Dispute(1), ErrAlreadyDisputed)
		// 不会重复冻结
		assertBalances(t, account, "0", "100")
	})

	t.Run("locked account rejects new dispute", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, amt(t, "100")))
		require.NoError(t, account.Deposit(2, amt(t, "50")))
		require.NoError(t, account.Dispute(1))
		require.NoError(t, account.Chargeback(1))
		assert.ErrorIs(t, account.Dispute(2), ErrAccountLocked)
		assertBalances(t, account, "50", "0")
	})

	t.Run("redispute after resolve", func(t *testing.T) {
		account := NewClientAccount(1)
		require.NoError(t, account.Deposit(1, amt(t, "100")))
		require.NoError(t, account.Dispute(1))
		require.NoError(t, account.Resolve(1))
		assert.ErrorIs(t, account.Dispute(1), ErrAlreadyDisputed)
		assertBalances(t, account, "100", "0")
	})
}

func TestResolveReleasesFunds(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "100")))
	require.NoError(t, account.Dispute(1))
	require.NoError(t, account.Resolve(1))

	assertBalances(t, account, "100", "0")
	assert.False(t, account.Locked())
	entry, _ := account.Entry(1)
	assert.Equal(t, DisputeStatusResolved, entry.Status)
}

func TestResolveRejections(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "10")))
	require.NoError(t, account.Deposit(2, amt(t, "20")))

	assert.ErrorIs(t, account.Resolve(999), ErrTransactionNotFound)
	assert.ErrorIs(t, account.Resolve(1), ErrNoOpenDispute) // 未争议

	require.NoError(t, account.Dispute(1))
	require.NoError(t, account.Resolve(1))
	// Resolved 为终态：二次撤销不生效、不重复放款
	assert.ErrorIs(t, account.Resolve(1), ErrNoOpenDispute)
	assertBalances(t, account, "30", "0")
}

// 锁定前已打开的争议仍可撤销（锁定不阻止 Resolve）。
func TestResolveAllowedOnLockedAccount(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "100")))
	require.NoError(t, account.Deposit(2, amt(t, "50")))
	require.NoError(t, account.Dispute(1))
	require.NoError(t, account.Dispute(2))
	require.NoError(t, account.Chargeback(1)) // 锁定账户
	require.NoError(t, account.Resolve(2))    // 锁定前的争议仍可完成

	assertBalances(t, account, "50", "0")
	assert.True(t, account.Locked())
}

func TestChargebackRemovesFundsAndLocks(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "100")))
	require.NoError(t, account.Dispute(1))
	require.NoError(t, account.Chargeback(1))

	assertBalances(t, account, "0", "0")
	assert.True(t, account.Locked())
	entry, _ := account.Entry(1)
	assert.Equal(t, DisputeStatusChargedBack, entry.Status)
}

func TestChargebackRejections(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "10")))
	require.NoError(t, account.Deposit(2, amt(t, "20")))

	assert.ErrorIs(t, account.Chargeback(999), ErrTransactionNotFound)
	assert.ErrorIs(t, account.Chargeback(1), ErrNoOpenDispute)

	require.NoError(t, account.Dispute(1))
	require.NoError(t, account.Resolve(1))
	// 已撤销的争议不能再拒付
	assert.ErrorIs(t, account.Chargeback(1), ErrNoOpenDispute)
	assertBalances(t, account, "30", "0")
	assert.False(t, account.Locked())
}

// ChargedBack 为终态：重复拒付不生效、不重复扣款。
func TestChargebackTerminal(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "10")))
	require.NoError(t, account.Deposit(2, amt(t, "20")))
	require.NoError(t, account.Dispute(1))
	require.NoError(t, account.Dispute(2))
	require.NoError(t, account.Chargeback(1))
	require.NoError(t, account.Chargeback(2)) // 锁定前的争议仍可拒付
	assert.ErrorIs(t, account.Chargeback(1), ErrNoOpenDispute)
	assert.ErrorIs(t, account.Resolve(1), ErrNoOpenDispute)

	assertBalances(t, account, "0", "0")
}

// 存款被部分取出后发起争议：available 允许变为负数。
func TestDisputeAfterPartialSpend(t *testing.T) {
	account := NewClientAccount(1)
	require.NoError(t, account.Deposit(1, amt(t, "100")))
	require.NoError(t, account.Withdraw(2, amt(t, "70")))
	require.NoError(t, account.Dispute(1))
	assertBalances(t, account, "-70", "100")

	require.NoError(t, account.Chargeback(1))
	// 客户欠款
	assertBalances(t, account, "-70", "0")
	assert.True(t, account.Locked())
}
