package invoice

import (
	"testing"
	"time"

	"github.com/xraph/settlement/types"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusPending, StatusEscrowFunded, StatusPaid, StatusCancelled, StatusDisputed}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusEscrowFunded}: true,
		{StatusPending, StatusPaid}:         true,
		{StatusPending, StatusCancelled}:    true,
		{StatusEscrowFunded, StatusPaid}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusEscrowFunded, false},
		{StatusPaid, true},
		{StatusCancelled, true},
		{StatusDisputed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}

	if Status("refunded").Valid() {
		t.Error("unknown status reported as valid")
	}
}

func TestNextMilestone(t *testing.T) {
	inv := &Invoice{Milestones: []Milestone{{Amount: 1}, {Amount: 2}}}
	if m := inv.NextMilestone(); m == nil || m.Amount != 1 {
		t.Fatalf("expected first milestone, got %+v", m)
	}
	inv.CurrentMilestone = 2
	if m := inv.NextMilestone(); m != nil {
		t.Fatalf("expected nil after last milestone, got %+v", m)
	}
}

func TestIsParty(t *testing.T) {
	inv := &Invoice{Creator: "alice", Client: "bob"}
	for _, p := range []string{"alice", "bob"} {
		if !inv.IsParty(types.Party(p)) {
			t.Errorf("expected %s to be a party", p)
		}
	}
	if inv.IsParty("mallory") {
		t.Error("mallory is not a party")
	}

	noClient := &Invoice{Creator: "alice"}
	if noClient.IsParty("") {
		t.Error("empty party must never match an unset client")
	}
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	inv := &Invoice{
		PaidAt:     &now,
		Milestones: []Milestone{{Description: "design", Amount: 5, CompletedAt: &now}},
	}
	c := inv.Clone()

	c.Milestones[0].Completed = true
	later := now.Add(time.Hour)
	*c.PaidAt = later
	*c.Milestones[0].CompletedAt = later

	if inv.Milestones[0].Completed {
		t.Error("clone shares milestone slice")
	}
	if !inv.PaidAt.Equal(now) || !inv.Milestones[0].CompletedAt.Equal(now) {
		t.Error("clone shares time pointers")
	}
}
