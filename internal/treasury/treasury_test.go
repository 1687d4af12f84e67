package treasury

import (
	"testing"

	"github.com/mohitagarwal24/ResQ/internal/model"
)

const organizerAddr = "0x1111111111111111111111111111111111111111"

func TestTransferAccumulatesBalance(t *testing.T) {
	tr := New()

	if err := tr.Transfer(organizerAddr, 100); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if err := tr.Transfer(organizerAddr, 10); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := tr.Balance(organizerAddr); got != 110 {
		t.Fatalf("expected balance 110, got %d", got)
	}
}

func TestTransferValidation(t *testing.T) {
	tr := New()

	if err := tr.Transfer("not-an-address", 10); err == nil {
		t.Fatal("expected error for invalid address")
	}
	if err := tr.Transfer(organizerAddr, 0); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if got := tr.Balance(organizerAddr); got != 0 {
		t.Fatalf("rejected transfer changed balance: %d", got)
	}
}

// 地址大小写不同也要落到同一个账户
func TestBalanceNormalizesAddressCase(t *testing.T) {
	tr := New()
	mixed := "0xAbCd111111111111111111111111111111111111"

	if err := tr.Transfer(mixed, 50); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := tr.Balance("0xabcd111111111111111111111111111111111111"); got != 50 {
		t.Fatalf("expected normalized lookup to find 50, got %d", got)
	}
}

func TestSeedRebuildsBalances(t *testing.T) {
	tr := New()
	tr.Seed([]model.SettlementRecord{
		{BountyID: 1, OrganizerAddress: organizerAddr, Amount: 100},
		{BountyID: 2, OrganizerAddress: organizerAddr, Amount: 25},
	})

	if got := tr.Balance(organizerAddr); got != 125 {
		t.Fatalf("expected seeded balance 125, got %d", got)
	}
}
