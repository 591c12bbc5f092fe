package audithook_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithook "github.com/xraph/settlement/audit_hook"
	"github.com/xraph/settlement/id"
	"github.com/xraph/settlement/invoice"
	"github.com/xraph/settlement/lottery"
	"github.com/xraph/settlement/plugin"
)

func capture() (*[]*audithook.AuditEvent, audithook.RecorderFunc) {
	var events []*audithook.AuditEvent
	return &events, func(_ context.Context, ev *audithook.AuditEvent) error {
		events = append(events, ev)
		return nil
	}
}

func TestRecordsInvoicePaid(t *testing.T) {
	events, rec := capture()
	ext := audithook.New(rec)

	inv := &invoice.Invoice{ID: id.NewInvoiceID(), Amount: 1_000}
	require.NoError(t, ext.OnInvoicePaid(context.Background(), plugin.InvoicePaid{
		Invoice:   inv,
		Payer:     "bob",
		Reference: "tx-123",
	}))

	require.Len(t, *events, 1)
	ev := (*events)[0]
	assert.Equal(t, audithook.ActionInvoicePaid, ev.Action)
	assert.Equal(t, audithook.ResourceInvoice, ev.Resource)
	assert.Equal(t, inv.ID.String(), ev.ResourceID)
	assert.Equal(t, audithook.OutcomeSuccess, ev.Outcome)
	assert.Equal(t, "bob", ev.Metadata["payer"])
	assert.Equal(t, "tx-123", ev.Metadata["reference"])
}

func TestRecordsFailures(t *testing.T) {
	events, rec := capture()
	ext := audithook.New(rec)

	err := errors.New("settlement: lottery pool is paused")
	require.NoError(t, ext.OnOperationFailed(context.Background(), plugin.OperationFailed{
		Operation: "pay_with_lottery",
		Resource:  "inv_123",
		Err:       err,
	}))

	require.Len(t, *events, 1)
	ev := (*events)[0]
	assert.Equal(t, audithook.OutcomeFailure, ev.Outcome)
	assert.Equal(t, audithook.SeverityError, ev.Severity)
	assert.Equal(t, err.Error(), ev.Reason)
}

func TestActionFilters(t *testing.T) {
	entry := &lottery.Entry{ID: id.NewEntryID(), InvoiceID: id.NewInvoiceID()}
	pool := &lottery.Pool{ID: id.NewPoolID()}
	won := plugin.LotteryWon{Entry: entry, Invoice: &invoice.Invoice{ID: entry.InvoiceID}, Pool: pool, Amount: 10}
	lost := plugin.LotteryLost{Entry: entry, Invoice: &invoice.Invoice{ID: entry.InvoiceID}, Pool: pool}

	t.Run("enabled", func(t *testing.T) {
		events, rec := capture()
		ext := audithook.New(rec, audithook.WithEnabledActions(audithook.ActionLotteryWon))
		require.NoError(t, ext.OnLotteryWon(context.Background(), won))
		require.NoError(t, ext.OnLotteryLost(context.Background(), lost))
		require.Len(t, *events, 1)
		assert.Equal(t, audithook.ActionLotteryWon, (*events)[0].Action)
	})

	t.Run("disabled", func(t *testing.T) {
		events, rec := capture()
		ext := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionLotteryWon))
		require.NoError(t, ext.OnLotteryWon(context.Background(), won))
		require.NoError(t, ext.OnLotteryLost(context.Background(), lost))
		require.Len(t, *events, 1)
		assert.Equal(t, audithook.ActionLotteryLost, (*events)[0].Action)
	})
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	inv := &invoice.Invoice{ID: id.NewInvoiceID()}
	assert.NoError(t, ext.OnInvoiceCancelled(context.Background(), plugin.InvoiceCancelled{Invoice: inv, Caller: "alice"}))
}
