package ledger

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mohitagarwal24/ResQ/internal/model"
)

const (
	organizerAddr = "0x1111111111111111111111111111111111111111"
	donorAddr     = "0x2222222222222222222222222222222222222222"
	verifierAddr  = "0x3333333333333333333333333333333333333333"
	strangerAddr  = "0x4444444444444444444444444444444444444444"
)

// memStore 内存事件存储，测试用
type memStore struct {
	mu         sync.Mutex
	events     []model.LedgerEvent
	failAppend bool
}

func (s *memStore) AppendEvent(event *model.LedgerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return errors.New("store down")
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *memStore) LoadEvents() ([]model.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]model.LedgerEvent, len(s.events))
	copy(events, s.events)
	return events, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// fakeTransferor 记录划转调用的假资金接口
type fakeTransferor struct {
	mu        sync.Mutex
	transfers []transferCall
	fail      bool
}

type transferCall struct {
	to     string
	amount int64
}

func (f *fakeTransferor) Transfer(to string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("recipient unavailable")
	}
	f.transfers = append(f.transfers, transferCall{to: to, amount: amount})
	return nil
}

func (f *fakeTransferor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transfers)
}

func newTestLedger(t *testing.T, cfg Config) (*Ledger, *memStore, *fakeTransferor) {
	t.Helper()
	store := &memStore{}
	transferor := &fakeTransferor{}
	l, err := New(store, transferor, cfg)
	if err != nil {
		t.Fatalf("New ledger: %v", err)
	}
	return l, store, transferor
}

func mustCreate(t *testing.T, l *Ledger, goal int64) uint64 {
	t.Helper()
	id, err := l.CreateBounty(organizerAddr, CreateBountyParams{
		Title:      "flood relief",
		GoalAmount: goal,
	})
	if err != nil {
		t.Fatalf("CreateBounty: %v", err)
	}
	return id
}

func TestCreateBountyValidation(t *testing.T) {
	l, store, _ := newTestLedger(t, Config{})

	tests := []struct {
		name   string
		caller string
		params CreateBountyParams
	}{
		{"bad address", "not-an-address", CreateBountyParams{Title: "t", GoalAmount: 10}},
		{"empty title", organizerAddr, CreateBountyParams{GoalAmount: 10}},
		{"zero goal", organizerAddr, CreateBountyParams{Title: "t"}},
		{"negative goal", organizerAddr, CreateBountyParams{Title: "t", GoalAmount: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.CreateBounty(tt.caller, tt.params); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
	if store.count() != 0 {
		t.Fatalf("expected no events after rejected creations, got %d", store.count())
	}
}

func TestCreateBountyAssignsMonotonicIDs(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{})

	first := mustCreate(t, l, 100)
	second := mustCreate(t, l, 200)
	if second <= first {
		t.Fatalf("expected monotonic ids, got %d then %d", first, second)
	}

	bounty, err := l.GetBounty(first)
	if err != nil {
		t.Fatalf("GetBounty: %v", err)
	}
	if bounty.Status != model.BountyStatusOpen {
		t.Fatalf("expected new bounty Open, got %s", bounty.Status)
	}
	if bounty.RaisedAmount != 0 {
		t.Fatalf("expected zero raised amount, got %d", bounty.RaisedAmount)
	}
	if bounty.OrganizerAddress != organizerAddr {
		t.Fatalf("unexpected organizer %s", bounty.OrganizerAddress)
	}
}

func TestOverfundedSettlementScenario(t *testing.T) {
	l, _, transferor := newTestLedger(t, Config{})
	id := mustCreate(t, l, 100)

	if _, err := l.Donate(donorAddr, id, 40); err != nil {
		t.Fatalf("first donation: %v", err)
	}
	// 超额捐款合法：目标金额只是建议值
	if _, err := l.Donate(strangerAddr, id, 70); err != nil {
		t.Fatalf("overfunding donation: %v", err)
	}

	bounty, _ := l.GetBounty(id)
	if bounty.RaisedAmount != 110 {
		t.Fatalf("expected raised 110, got %d", bounty.RaisedAmount)
	}

	if err := l.SubmitProof(organizerAddr, id, "QmProof"); err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}
	if err := l.Release(organizerAddr, id, true); err != nil {
		t.Fatalf("Release: %v", err)
	}

	bounty, _ = l.GetBounty(id)
	if bounty.Status != model.BountyStatusCompleted {
		t.Fatalf("expected Completed, got %s", bounty.Status)
	}
	if bounty.ProofIpfsHash != "QmProof" {
		t.Fatalf("expected proof retained as audit record, got %q", bounty.ProofIpfsHash)
	}
	if transferor.callCount() != 1 {
		t.Fatalf("expected exactly one transfer, got %d", transferor.callCount())
	}
	if got := transferor.transfers[0]; got.to != organizerAddr || got.amount != 110 {
		t.Fatalf("unexpected transfer %+v", got)
	}

	// 二次放款必须返回 AlreadySettled，且状态与资金均无变化
	if err := l.Release(organizerAddr, id, true); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
	if transferor.callCount() != 1 {
		t.Fatalf("second release moved funds: %d transfers", transferor.callCount())
	}
	after, _ := l.GetBounty(id)
	if after.Status != bounty.Status || after.RaisedAmount != bounty.RaisedAmount {
		t.Fatalf("state changed after rejected second release")
	}
}

func TestSubmitProofByNonOrganizer(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{})
	id := mustCreate(t, l, 50)

	if err := l.SubmitProof(strangerAddr, id, "QmProof"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	bounty, _ := l.GetBounty(id)
	if bounty.Status != model.BountyStatusOpen {
		t.Fatalf("expected status unchanged Open, got %s", bounty.Status)
	}
	if bounty.ProofIpfsHash != "" {
		t.Fatalf("expected no proof stored, got %q", bounty.ProofIpfsHash)
	}
}

func TestSubmitProofBelowGoalAllowed(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{})
	id := mustCreate(t, l, 1000)

	if _, err := l.Donate(donorAddr, id, 1); err != nil {
		t.Fatalf("Donate: %v", err)
	}
	// 救援可能在筹满前开展，未达目标也允许提交证明
	if err := l.SubmitProof(organizerAddr, id, "QmEarly"); err != nil {
		t.Fatalf("expected proof below goal to be accepted, got %v", err)
	}
}

func TestDonateValidation(t *testing.T) {
	l, store, _ := newTestLedger(t, Config{})
	id := mustCreate(t, l, 100)
	base := store.count()

	if _, err := l.Donate(donorAddr, id, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero amount: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := l.Donate(donorAddr, id, -10); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative amount: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := l.Donate("bogus", id, 10); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad donor: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := l.Donate(donorAddr, 999, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing bounty: expected ErrNotFound, got %v", err)
	}

	if store.count() != base {
		t.Fatalf("rejected donations appended events: %d -> %d", base, store.count())
	}
	bounty, _ := l.GetBounty(id)
	if bounty.RaisedAmount != 0 {
		t.Fatalf("raised amount changed by rejected donations: %d", bounty.RaisedAmount)
	}
}

func TestDonationWindowClosesOutsideOpen(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{})
	id := mustCreate(t, l, 100)

	if _, err := l.Donate(donorAddr, id, 30); err != nil {
		t.Fatalf("Donate: %v", err)
	}
	if err := l.SubmitProof(organizerAddr, id, "QmProof"); err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}

	// ProofPending 窗口关闭，拒绝最后时刻的注资
	if _, err := l.Donate(donorAddr, id, 5); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("donate while ProofPending: expected ErrInvalidState, got %v", err)
	}

	if err := l.Release(organizerAddr, id, true); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := l.Donate(donorAddr, id, 5); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("donate while Completed: expected ErrInvalidState, got %v", err)
	}

	bounty, _ := l.GetBounty(id)
	if bounty.RaisedAmount != 30 {
		t.Fatalf("raised amount changed by rejected donations: %d", bounty.RaisedAmount)
	}
}

func TestRejectionPathReopensBounty(t *testing.T) {
	l, _, transferor := newTestLedger(t, Config{})
	id := mustCreate(t, l, 100)

	if _, err := l.Donate(donorAddr, id, 60); err != nil {
		t.Fatalf("Donate: %v", err)
	}
	if err := l.SubmitProof(organizerAddr, id, "QmBad"); err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}
	if err := l.Release(organizerAddr, id, false); err != nil {
		t.Fatalf("Release(false): %v", err)
	}

	bounty, _ := l.GetBounty(id)
	if bounty.Status != model.BountyStatusOpen {
		t.Fatalf("expected Open after rejection, got %s", bounty.Status)
	}
	if bounty.ProofIpfsHash != "" {
		t.Fatalf("expected proof cleared, got %q", bounty.ProofIpfsHash)
	}
	if bounty.RaisedAmount != 60 {
		t.Fatalf("raised amount changed on rejection: %d", bounty.RaisedAmount)
	}
	if transferor.callCount() != 0 {
		t.Fatalf("rejection moved funds: %d transfers", transferor.callCount())
	}

	// 驳回后可以重新提交证明
	if err := l.SubmitProof(organizerAddr, id, "QmBetter"); err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
}

func TestReleaseGuards(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{})
	id := mustCreate(t, l, 100)

	// Open 状态不能放款
	if err := l.Release(organizerAddr, id, true); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("release while Open: expected ErrInvalidState, got %v", err)
	}
	if err := l.Release(organizerAddr, 999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("release missing bounty: expected ErrNotFound, got %v", err)
	}

	if err := l.SubmitProof(organizerAddr, id, "QmProof"); err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}
	if err := l.Release(strangerAddr, id, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("release by stranger: expected ErrUnauthorized, got %v", err)
	}
}

func TestTransferFailureRollsBack(t *testing.T) {
	l, store, transferor := newTestLedger(t, Config{})
	id := mustCreate(t, l, 100)

	if _, err := l.Donate(donorAddr, id, 80); err != nil {
		t.Fatalf("Donate: %v", err)
	}
	if err := l.SubmitProof(organizerAddr, id, "QmProof"); err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}

	transferor.fail = true
	base := store.count()
	if err := l.Release(organizerAddr, id, true); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// 整体回滚：状态仍是 ProofPending，未追加事件
	bounty, _ := l.GetBounty(id)
	if bounty.Status != model.BountyStatusProofPending {
		t.Fatalf("expected ProofPending after failed transfer, got %s", bounty.Status)
	}
	if store.count() != base {
		t.Fatalf("failed release appended events: %d -> %d", base, store.count())
	}

	// 外部恢复后重试成功
	transferor.fail = false
	if err := l.Release(organizerAddr, id, true); err != nil {
		t.Fatalf("retry after transfer recovery: %v", err)
	}
	bounty, _ = l.GetBounty(id)
	if bounty.Status != model.BountyStatusCompleted {
		t.Fatalf("expected Completed after retry, got %s", bounty.Status)
	}
}

func TestConfiguredVerifierRole(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{VerifierAddress: verifierAddr})
	id := mustCreate(t, l, 100)

	if _, err := l.Donate(donorAddr, id, 10); err != nil {
		t.Fatalf("Donate: %v", err)
	}
	if err := l.SubmitProof(organizerAddr, id, "QmProof"); err != nil {
		t.Fatalf("SubmitProof: %v", err)
	}

	// 配置了独立审核人后组织者不能自证
	if err := l.Release(organizerAddr, id, true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("organizer self-attest with verifier configured: expected ErrUnauthorized, got %v", err)
	}
	if err := l.Release(verifierAddr, id, true); err != nil {
		t.Fatalf("verifier release: %v", err)
	}
}

func TestConcurrentDonationsNoLostUpdate(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{})
	id := mustCreate(t, l, 1000)

	const donors = 50
	const amount = 7

	var wg sync.WaitGroup
	errs := make(chan error, donors)
	for i := 0; i < donors; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			donor := fmt.Sprintf("0x%040x", n+1)
			if _, err := l.Donate(donor, id, amount); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent donate: %v", err)
	}

	bounty, _ := l.GetBounty(id)
	if bounty.RaisedAmount != donors*amount {
		t.Fatalf("lost update: expected raised %d, got %d", donors*amount, bounty.RaisedAmount)
	}
	donations, _ := l.GetDonations(id)
	if len(donations) != donors {
		t.Fatalf("expected %d donation records, got %d", donors, len(donations))
	}
	if problems := l.Audit(); len(problems) != 0 {
		t.Fatalf("audit found problems: %v", problems)
	}
}

func TestRaisedAmountAlwaysEqualsDonationSum(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{})
	id := mustCreate(t, l, 500)

	amounts := []int64{13, 1, 250, 99}
	var want int64
	for _, a := range amounts {
		if _, err := l.Donate(donorAddr, id, a); err != nil {
			t.Fatalf("Donate(%d): %v", a, err)
		}
		want += a
	}

	donations, err := l.GetDonations(id)
	if err != nil {
		t.Fatalf("GetDonations: %v", err)
	}
	var sum int64
	for _, d := range donations {
		sum += d.Amount
	}
	bounty, _ := l.GetBounty(id)
	if bounty.RaisedAmount != want || sum != want {
		t.Fatalf("invariant broken: raised=%d sum=%d want=%d", bounty.RaisedAmount, sum, want)
	}
	if problems := l.Audit(); len(problems) != 0 {
		t.Fatalf("audit found problems: %v", problems)
	}
}

func TestGetAllBountiesOrderedByID(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{})
	for i := 0; i < 5; i++ {
		mustCreate(t, l, 10)
	}

	bounties := l.GetAllBounties()
	if len(bounties) != 5 {
		t.Fatalf("expected 5 bounties, got %d", len(bounties))
	}
	for i := 1; i < len(bounties); i++ {
		if bounties[i].ID <= bounties[i-1].ID {
			t.Fatalf("bounties not ordered by id: %d after %d", bounties[i].ID, bounties[i-1].ID)
		}
	}
}

func TestAppendFailureLeavesNoState(t *testing.T) {
	l, store, _ := newTestLedger(t, Config{})
	id := mustCreate(t, l, 100)

	store.failAppend = true
	if _, err := l.Donate(donorAddr, id, 10); err == nil {
		t.Fatal("expected error when event store is down")
	}
	if _, err := l.CreateBounty(organizerAddr, CreateBountyParams{Title: "x", GoalAmount: 1}); err == nil {
		t.Fatal("expected error when event store is down")
	}
	store.failAppend = false

	bounty, _ := l.GetBounty(id)
	if bounty.RaisedAmount != 0 {
		t.Fatalf("failed append mutated state: raised=%d", bounty.RaisedAmount)
	}
	if len(l.GetAllBounties()) != 1 {
		t.Fatalf("failed create registered a bounty")
	}

	// 存储恢复后 id 继续单调分配。失败创建消耗的 id 作废不复用，
	// 和 seq 的空洞策略一致
	next, err := l.CreateBounty(organizerAddr, CreateBountyParams{Title: "y", GoalAmount: 1})
	if err != nil {
		t.Fatalf("create after recovery: %v", err)
	}
	if next != id+2 {
		t.Fatalf("expected id %d after burned allocation, got %d", id+2, next)
	}
}

// 捐款写入与快照读取并发执行。读取端拿到的快照必须自洽：
// 所有捐款等额时，任意时刻的 raisedAmount 与捐款合计都是其整数倍。
// 该场景即生产路径上索引器边投影边读快照的情形，需配合 -race 运行。
func TestConcurrentSnapshotReadsDuringDonations(t *testing.T) {
	l, _, _ := newTestLedger(t, Config{})
	id := mustCreate(t, l, 1000)

	const donors = 20
	const amount = 3

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				bounty, err := l.GetBounty(id)
				if err != nil {
					t.Errorf("GetBounty: %v", err)
					return
				}
				if bounty.RaisedAmount%amount != 0 {
					t.Errorf("torn snapshot: raised=%d", bounty.RaisedAmount)
					return
				}
				donations, err := l.GetDonations(id)
				if err != nil {
					t.Errorf("GetDonations: %v", err)
					return
				}
				var sum int64
				for _, d := range donations {
					sum += d.Amount
				}
				if sum%amount != 0 {
					t.Errorf("torn donation list: sum=%d", sum)
					return
				}
				l.GetAllBounties()
				if problems := l.Audit(); len(problems) != 0 {
					t.Errorf("audit during writes: %v", problems)
					return
				}
			}
		}()
	}

	var writers sync.WaitGroup
	for i := 0; i < donors; i++ {
		writers.Add(1)
		go func(n int) {
			defer writers.Done()
			donor := fmt.Sprintf("0x%040x", n+1)
			if _, err := l.Donate(donor, id, amount); err != nil {
				t.Errorf("Donate: %v", err)
			}
		}(i)
	}
	writers.Wait()
	close(stop)
	readers.Wait()

	bounty, _ := l.GetBounty(id)
	if bounty.RaisedAmount != donors*amount {
		t.Fatalf("expected raised %d, got %d", donors*amount, bounty.RaisedAmount)
	}
}

// 不同悬赏的并发写必须按序号顺序落盘：按 seq 游标消费
// 事件流的一方才不会先看到 N 再也等不到 N-1
func TestEventsCommitInSeqOrder(t *testing.T) {
	l, store, _ := newTestLedger(t, Config{})
	ids := []uint64{mustCreate(t, l, 1000), mustCreate(t, l, 1000), mustCreate(t, l, 1000)}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			donor := fmt.Sprintf("0x%040x", n+1)
			if _, err := l.Donate(donor, ids[n%len(ids)], 1); err != nil {
				t.Errorf("Donate: %v", err)
			}
		}(i)
	}
	wg.Wait()

	events, err := store.LoadEvents()
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("events committed out of seq order: %d after %d", events[i].Seq, events[i-1].Seq)
		}
	}
}
