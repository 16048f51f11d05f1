package hostel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iharshcr7/hostel-engine/hostel"
)

func TestRunningBalance_FoldsByKind(t *testing.T) {
	// GIVEN: A ledger with payments, a charge and a refund
	// WHEN: Replaying it
	// THEN: Totals accumulate per kind and Net is paid + refunds - charges

	entries := []hostel.PaymentEntry{
		{Kind: hostel.PaymentKindPayment, Amount: dec("10000")},
		{Kind: hostel.PaymentKindPayment, Amount: dec("5000")},
		{Kind: hostel.PaymentKindCharge, Amount: dec("20000")},
		{Kind: hostel.PaymentKindRefund, Amount: dec("2500")},
	}

	summary := hostel.RunningBalance(entries)
	assert.True(t, summary.TotalPaid.Equal(dec("15000")), "paid %s", summary.TotalPaid)
	assert.True(t, summary.TotalCharges.Equal(dec("20000")))
	assert.True(t, summary.TotalRefunds.Equal(dec("2500")))
	assert.True(t, summary.Net.Equal(dec("-2500")), "net %s", summary.Net)
}

func TestRunningBalance_EmptyLedger(t *testing.T) {
	summary := hostel.RunningBalance(nil)
	assert.True(t, summary.TotalPaid.IsZero())
	assert.True(t, summary.TotalCharges.IsZero())
	assert.True(t, summary.TotalRefunds.IsZero())
	assert.True(t, summary.Net.IsZero())
}

func TestRunningBalance_MatchesCoordinatorLedger(t *testing.T) {
	// GIVEN: A register + upgrade transfer run through the coordinator
	// WHEN: Replaying the student's ledger
	// THEN: The summary reflects the registration payment and the
	//       upgrade charge

	c, mem := newTestCoordinator(t)
	ctx := context.Background()
	seedRoom(t, mem, "101", hostel.CategoryStandard, hostel.SharingQuad)
	seedRoom(t, mem, "201", hostel.CategoryLuxury, hostel.SharingDouble)
	require.NoError(t, c.Register(ctx, &hostel.Student{RollNo: "R1"}, "101", dec("10000")))
	_, err := c.Transfer(ctx, "R1", "201", "Upgrade request")
	require.NoError(t, err)

	entries, err := mem.PaymentsForStudent(ctx, "R1")
	require.NoError(t, err)

	summary := hostel.RunningBalance(entries)
	assert.True(t, summary.TotalPaid.Equal(dec("10000")))
	assert.True(t, summary.TotalCharges.Equal(dec("20000")))
	assert.True(t, summary.TotalRefunds.IsZero())
	assert.True(t, summary.Net.Equal(dec("-10000")), "net %s", summary.Net)
}
