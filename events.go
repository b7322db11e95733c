package play

import "sync"

// signal 单一事件的订阅表。投递顺序即注册顺序；
// emit 先快照再调用，处理器内部取消订阅是安全的。
type signal[T any] struct {
	mu   sync.Mutex
	next int
	subs []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// subscribe 注册处理器，返回取消函数
func (s *signal[T]) subscribe(fn func(T)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// emit 按注册顺序调用所有处理器。只在调度协程上调用。
func (s *signal[T]) emit(v T) {
	s.mu.Lock()
	snapshot := make([]subscriber[T], len(s.subs))
	copy(snapshot, s.subs)
	s.mu.Unlock()

	for _, sub := range snapshot {
		sub.fn(v)
	}
}

// CustomEvent 服务端转发的自定义事件
type CustomEvent struct {
	EventID       string
	Data          map[string]interface{}
	SenderActorID int
}

// KickedEvent 被踢出房间的通知，code/reason 由踢人方传入
type KickedEvent struct {
	Code   int
	Reason string
}

// PropertiesChangedEvent 房间自定义属性变更
type PropertiesChangedEvent struct {
	Changed map[string]interface{}
}

// PlayerPropertiesChangedEvent 玩家自定义属性变更
type PlayerPropertiesChangedEvent struct {
	Player  *Player
	Changed map[string]interface{}
}

// ErrorEvent 与具体请求无关的会话级错误（如重复登录被顶下线）
type ErrorEvent struct {
	Code   int
	Detail string
}

// events 会话事件集合
type events struct {
	roomListUpdated         signal[[]LobbyRoom]
	playerJoined            signal[*Player]
	playerLeft              signal[*Player]
	masterSwitched          signal[*Player]
	roomOpenChanged         signal[bool]
	roomVisibleChanged      signal[bool]
	roomPropertiesChanged   signal[PropertiesChangedEvent]
	playerPropertiesChanged signal[PlayerPropertiesChangedEvent]
	playerActivityChanged   signal[*Player]
	customEvent             signal[CustomEvent]
	kicked                  signal[KickedEvent]
	disconnected            signal[struct{}]
	sessionError            signal[ErrorEvent]
}
