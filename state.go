package play

import "fmt"

// State 会话状态。只由会话自身的调度协程修改。
type State int

const (
	// StateInit 初始态，可发起连接
	StateInit State = iota
	// StateConnecting 正在建立大厅连接
	StateConnecting
	// StateInLobby 大厅连接已就绪
	StateInLobby
	// StateLobbyToGame 房间协商中，大厅连接向房间连接交接
	StateLobbyToGame
	// StateInGame 房间连接已就绪
	StateInGame
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateConnecting:
		return "Connecting"
	case StateInLobby:
		return "InLobby"
	case StateLobbyToGame:
		return "LobbyToGame"
	case StateInGame:
		return "InGame"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateError 操作在不允许的状态下被调用。
// 同步返回给调用方，会话状态不变。
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot call %s in state %s", e.Op, e.State)
}
