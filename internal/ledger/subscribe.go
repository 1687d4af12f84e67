package ledger

import (
	"github.com/mohitagarwal24/ResQ/internal/logger"
	"github.com/mohitagarwal24/ResQ/internal/model"
)

// Subscription 事件日志的推送订阅。订阅者从 C 读取已接受的事件，
// 顺序与各悬赏内的提交顺序一致；消费过慢时事件被丢弃（订阅者
// 随后应以 seq 为游标从存储补读），核心绝不因订阅者阻塞。
type Subscription struct {
	C <-chan model.LedgerEvent

	id     uint64
	ch     chan model.LedgerEvent
	ledger *Ledger
}

// Close 取消订阅并关闭通道
func (s *Subscription) Close() {
	s.ledger.unsubscribe(s.id)
}

// Subscribe 注册一个事件订阅者
func (l *Ledger) Subscribe() *Subscription {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	l.subID++
	ch := make(chan model.LedgerEvent, l.bufSize)
	sub := &Subscription{C: ch, id: l.subID, ch: ch, ledger: l}
	l.subs[sub.id] = sub
	return sub
}

func (l *Ledger) unsubscribe(id uint64) {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	sub, ok := l.subs[id]
	if !ok {
		return
	}
	delete(l.subs, id)
	close(sub.ch)
}

// publish 向所有订阅者广播事件，不阻塞写路径
func (l *Ledger) publish(event model.LedgerEvent) {
	l.subMu.RLock()
	defer l.subMu.RUnlock()

	for _, sub := range l.subs {
		select {
		case sub.ch <- event:
		default:
			logger.Warn("Subscriber %d buffer full, dropping event seq=%d", sub.id, event.Seq)
		}
	}
}
