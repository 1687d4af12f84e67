package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mohitagarwal24/ResQ/internal/logger"
	"github.com/mohitagarwal24/ResQ/internal/model"
)

// EventStore 事件持久化接口。事件日志是系统的权威记录，
// AppendEvent 失败时对应操作整体失败，内存状态不会变更。
type EventStore interface {
	AppendEvent(event *model.LedgerEvent) error
	LoadEvents() ([]model.LedgerEvent, error)
}

// FundTransferor 外部资金划转接口。Transfer 返回 nil 即视为转账已确认；
// 返回错误时放款操作整体回滚。
type FundTransferor interface {
	Transfer(to string, amount int64) error
}

// Config 账本配置
type Config struct {
	// VerifierAddress 独立审核人地址。为空时退化为组织者自证模式
	// （原始合约的行为），配置后只有该地址可以放款/驳回。
	VerifierAddress string
	// SubscriberBuffer 单个订阅者的事件缓冲大小
	SubscriberBuffer int
}

// bountyState 单个悬赏的权威状态。字段读写都经 mu 保护：
// 写操作之间由 locks[id] 串行化，快照读取只需持 mu 读锁。
type bountyState struct {
	mu        sync.RWMutex
	bounty    model.Bounty
	donations []model.Donation
}

// Ledger 托管账本核心：状态机、资金记账与事件日志。
// 同一悬赏的所有写操作经 locks[id] 串行化；不同悬赏互不阻塞，
// 全局互斥仅保护 id 分配与注册表本身。
type Ledger struct {
	mu       sync.RWMutex
	bounties map[uint64]*bountyState
	locks    map[uint64]*sync.Mutex
	nextID   uint64
	nextSeq  uint64 // 原子递增，事件序号

	appendMu   sync.Mutex // 串行化事件落盘，保证事件按序号顺序提交
	store      EventStore
	transferor FundTransferor
	verifier   string

	subMu sync.RWMutex
	subs  map[uint64]*Subscription
	subID uint64

	bufSize int
	now     func() time.Time
}

// New 创建账本并从事件存储重放历史，重建权威状态
func New(store EventStore, transferor FundTransferor, cfg Config) (*Ledger, error) {
	if cfg.VerifierAddress != "" && !common.IsHexAddress(cfg.VerifierAddress) {
		return nil, fmt.Errorf("非法的审核人地址: %s", cfg.VerifierAddress)
	}

	bufSize := cfg.SubscriberBuffer
	if bufSize <= 0 {
		bufSize = 64
	}

	l := &Ledger{
		bounties:   make(map[uint64]*bountyState),
		locks:      make(map[uint64]*sync.Mutex),
		nextID:     1,
		store:      store,
		transferor: transferor,
		verifier:   cfg.VerifierAddress,
		subs:       make(map[uint64]*Subscription),
		bufSize:    bufSize,
		now:        time.Now,
	}

	events, err := store.LoadEvents()
	if err != nil {
		return nil, fmt.Errorf("加载事件日志失败: %w", err)
	}
	if err := l.replay(events); err != nil {
		return nil, fmt.Errorf("重放事件日志失败: %w", err)
	}

	return l, nil
}

// CreateBountyParams 创建悬赏参数
type CreateBountyParams struct {
	Title         string
	Description   string
	GoalAmount    int64
	Location      string
	OrganizerName string
	ImageURL      string
}

// CreateBounty 创建悬赏，调用者成为组织者。返回新分配的悬赏ID。
func (l *Ledger) CreateBounty(caller string, params CreateBountyParams) (uint64, error) {
	if !common.IsHexAddress(caller) {
		return 0, errInvalidArgument("非法的组织者地址: %s", caller)
	}
	if params.Title == "" {
		return 0, errInvalidArgument("悬赏标题不能为空")
	}
	if params.GoalAmount <= 0 {
		return 0, errInvalidArgument("目标金额必须大于0")
	}

	// 事件负载统一存 EIP-55 规范化地址
	data := model.CreatedData{
		Organizer:     normalizeAddress(caller),
		OrganizerName: params.OrganizerName,
		Title:         params.Title,
		Description:   params.Description,
		Location:      params.Location,
		ImageURL:      params.ImageURL,
		GoalAmount:    params.GoalAmount,
	}

	// 全局临界区只覆盖 id 分配与注册表插入，事件落盘在临界区外，
	// 存储慢时不会阻塞其他悬赏的读写
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.mu.Unlock()

	event, err := l.appendEvent(id, model.EventTypeCreated, data)
	if err != nil {
		// 事件未落盘，分配的 id 作废不复用，与 seq 的空洞策略一致
		return 0, err
	}

	l.mu.Lock()
	l.applyCreated(event, data)
	l.mu.Unlock()

	l.publish(*event)
	return id, nil
}

// Donate 向 Open 状态的悬赏捐款。并发捐款经悬赏写锁串行化，
// raisedAmount 的累加不会丢失更新。
func (l *Ledger) Donate(caller string, bountyID uint64, amount int64) (*model.Donation, error) {
	if !common.IsHexAddress(caller) {
		return nil, errInvalidArgument("非法的捐款人地址: %s", caller)
	}
	if amount <= 0 {
		return nil, errInvalidArgument("捐款金额必须大于0")
	}

	lock := l.lockFor(bountyID)
	if lock == nil {
		return nil, errNotFound(bountyID)
	}
	lock.Lock()
	defer lock.Unlock()

	state := l.state(bountyID)
	if state.bounty.Status != model.BountyStatusOpen {
		return nil, errInvalidState("悬赏 %d 当前状态为 %s，不接受捐款", bountyID, state.bounty.Status)
	}

	data := model.DonatedData{Donor: normalizeAddress(caller), Amount: amount}
	event, err := l.appendEvent(bountyID, model.EventTypeDonated, data)
	if err != nil {
		return nil, err
	}

	l.applyDonated(state, event, data)
	l.publish(*event)

	donation := state.donations[len(state.donations)-1]
	return &donation, nil
}

// SubmitProof 组织者提交救援证明，悬赏进入 ProofPending。
// 未达目标金额也允许提交：救援工作可能在筹满前就已开展，
// 是否等待筹满由前端引导，核心不做硬性限制。
func (l *Ledger) SubmitProof(caller string, bountyID uint64, proofIpfsHash string) error {
	if !common.IsHexAddress(caller) {
		return errInvalidArgument("非法的调用者地址: %s", caller)
	}
	if proofIpfsHash == "" {
		return errInvalidArgument("证明引用不能为空")
	}

	lock := l.lockFor(bountyID)
	if lock == nil {
		return errNotFound(bountyID)
	}
	lock.Lock()
	defer lock.Unlock()

	state := l.state(bountyID)
	if state.bounty.OrganizerAddress != normalizeAddress(caller) {
		return errUnauthorized("只有组织者可以提交证明")
	}
	if state.bounty.Status != model.BountyStatusOpen {
		return errInvalidState("悬赏 %d 当前状态为 %s，不能提交证明", bountyID, state.bounty.Status)
	}

	data := model.ProofSubmittedData{ProofIpfsHash: proofIpfsHash}
	event, err := l.appendEvent(bountyID, model.EventTypeProofSubmitted, data)
	if err != nil {
		return err
	}

	l.applyProofSubmitted(state, event, data)
	l.publish(*event)
	return nil
}

// Release 审核放款。verified 为真时全部已筹资金一次性划转给组织者，
// 悬赏进入终态 Completed；为假时清除证明引用、回到 Open，资金不动。
// 对已结算悬赏的再次调用返回 AlreadySettled，区别于其他守卫失败。
func (l *Ledger) Release(caller string, bountyID uint64, verified bool) error {
	if !common.IsHexAddress(caller) {
		return errInvalidArgument("非法的调用者地址: %s", caller)
	}

	lock := l.lockFor(bountyID)
	if lock == nil {
		return errNotFound(bountyID)
	}
	lock.Lock()
	defer lock.Unlock()

	state := l.state(bountyID)
	switch state.bounty.Status {
	case model.BountyStatusProofPending:
	case model.BountyStatusCompleted:
		return errAlreadySettled(bountyID)
	default:
		return errInvalidState("悬赏 %d 当前状态为 %s，不能审核放款", bountyID, state.bounty.Status)
	}

	if err := l.authorizeVerifier(caller, state); err != nil {
		return err
	}

	data := model.ReleasedData{
		Verifier: normalizeAddress(caller),
		Verified: verified,
		Amount:   state.bounty.RaisedAmount,
	}

	if verified && state.bounty.RaisedAmount > 0 {
		// 先转账后记账：外部转账未确认时整个操作回滚，
		// 状态绝不会在资金未到位的情况下进入 Completed。
		if err := l.transferor.Transfer(state.bounty.OrganizerAddress, state.bounty.RaisedAmount); err != nil {
			return errTransferFailed(err)
		}
	}

	event, err := l.appendEvent(bountyID, model.EventTypeReleased, data)
	if err != nil {
		if verified {
			// 资金已划出，状态必须如实反映，事件落盘失败只能记录告警
			logger.Error("Released event append failed after confirmed transfer, bounty=%d: %v", bountyID, err)
			event = l.buildEvent(bountyID, model.EventTypeReleased, data)
			l.applyReleased(state, event, data)
			l.publish(*event)
			return nil
		}
		return err
	}

	l.applyReleased(state, event, data)
	l.publish(*event)
	return nil
}

// GetBounty 返回悬赏快照（不含捐款列表）
func (l *Ledger) GetBounty(bountyID uint64) (*model.Bounty, error) {
	l.mu.RLock()
	state, ok := l.bounties[bountyID]
	l.mu.RUnlock()
	if !ok {
		return nil, errNotFound(bountyID)
	}

	state.mu.RLock()
	snapshot := state.bounty
	state.mu.RUnlock()
	snapshot.Donations = nil
	return &snapshot, nil
}

// GetAllBounties 返回全部悬赏快照，按 id 升序
func (l *Ledger) GetAllBounties() []model.Bounty {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bounties := make([]model.Bounty, 0, len(l.bounties))
	for _, state := range l.bounties {
		state.mu.RLock()
		snapshot := state.bounty
		state.mu.RUnlock()
		snapshot.Donations = nil
		bounties = append(bounties, snapshot)
	}
	sort.Slice(bounties, func(i, j int) bool { return bounties[i].ID < bounties[j].ID })
	return bounties
}

// GetDonations 返回悬赏的捐款记录快照，按入账顺序
func (l *Ledger) GetDonations(bountyID uint64) ([]model.Donation, error) {
	l.mu.RLock()
	state, ok := l.bounties[bountyID]
	l.mu.RUnlock()
	if !ok {
		return nil, errNotFound(bountyID)
	}

	state.mu.RLock()
	donations := make([]model.Donation, len(state.donations))
	copy(donations, state.donations)
	state.mu.RUnlock()
	return donations, nil
}

// Audit 校验所有悬赏的记账不变量 raisedAmount == sum(donations)，
// 返回每处偏差的描述，空切片表示账目一致
func (l *Ledger) Audit() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var problems []string
	for id, state := range l.bounties {
		state.mu.RLock()
		var sum int64
		for _, d := range state.donations {
			sum += d.Amount
		}
		raised := state.bounty.RaisedAmount
		state.mu.RUnlock()
		if sum != raised {
			problems = append(problems, fmt.Sprintf(
				"悬赏 %d 记账不一致: raised=%d sum(donations)=%d", id, raised, sum))
		}
	}
	return problems
}

// authorizeVerifier 审核权限检查。配置了独立审核人时只认审核人；
// 否则沿用原始合约的组织者自证模式。
func (l *Ledger) authorizeVerifier(caller string, state *bountyState) error {
	if l.verifier != "" {
		if normalizeAddress(caller) != normalizeAddress(l.verifier) {
			return errUnauthorized("只有指定审核人可以审核放款")
		}
		return nil
	}
	if normalizeAddress(caller) != state.bounty.OrganizerAddress {
		return errUnauthorized("只有组织者可以审核放款")
	}
	return nil
}

// lockFor 取悬赏写锁；悬赏不存在时返回 nil。
// 悬赏从不删除，锁一旦存在即永久有效。
func (l *Ledger) lockFor(bountyID uint64) *sync.Mutex {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.locks[bountyID]
}

// state 取悬赏状态，调用前必须已持有对应写锁
func (l *Ledger) state(bountyID uint64) *bountyState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bounties[bountyID]
}

// appendEvent 构造事件并写入事件存储。序号全局严格递增，
// 落盘经 appendMu 串行化，存储中的提交顺序与序号顺序一致，
// 按 seq 游标消费事件时不会越过尚未提交的序号。
func (l *Ledger) appendEvent(bountyID uint64, eventType model.EventType, payload interface{}) (*model.LedgerEvent, error) {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	event := l.buildEvent(bountyID, eventType, payload)
	if err := l.store.AppendEvent(event); err != nil {
		return nil, fmt.Errorf("事件写入失败: %w", err)
	}
	return event, nil
}

func (l *Ledger) buildEvent(bountyID uint64, eventType model.EventType, payload interface{}) *model.LedgerEvent {
	data, err := json.Marshal(payload)
	if err != nil {
		// 负载都是本包定义的纯数据结构，序列化失败意味着程序错误
		panic(fmt.Sprintf("marshal event payload: %v", err))
	}

	seq := atomic.AddUint64(&l.nextSeq, 1)
	return &model.LedgerEvent{
		Seq:       seq,
		CreatedAt: l.now(),
		BountyID:  bountyID,
		EventType: eventType,
		TxHash:    txHash(seq, eventType, bountyID, data),
		Data:      string(data),
	}
}

// txHash 为每次已接受的变更计算确定性的交易引用
func txHash(seq uint64, eventType model.EventType, bountyID uint64, data []byte) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], seq)
	binary.BigEndian.PutUint64(buf[8:], bountyID)
	return crypto.Keccak256Hash(buf[:], []byte(eventType), data).Hex()
}

func normalizeAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}
