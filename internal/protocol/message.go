// Package protocol 定义会话协议的帧格式、命令常量和错误码
package protocol

// 命令（cmd 字段）
const (
	CmdSession   = "session"
	CmdConv      = "conv"
	CmdLobby     = "lobby"
	CmdDirect    = "direct"
	CmdError     = "error"
	CmdEvents    = "events"
	CmdStatistic = "statistic"
)

// 操作（op 字段）
const (
	// 请求
	OpOpen             = "open"
	OpAdd              = "add"
	OpStart            = "start"
	OpAddRandom        = "add-random"
	OpMatchRandom      = "match-random"
	OpRemove           = "remove"
	OpVisible          = "visible"
	OpUpdateMaster     = "update-master-client"
	OpKick             = "kick"
	OpUpdate           = "update"
	OpUpdatePlayerProp = "update-player-prop"

	// 响应回显
	OpStarted = "started"
	OpAdded   = "added"

	// 服务端推送
	OpRoomList            = "room-list"
	OpMembersJoined       = "members-joined"
	OpMembersLeft         = "members-left"
	OpMembersOnline       = "members-online"
	OpMembersOffline      = "members-offline"
	OpMasterClientChanged = "master-client-changed"
	OpOpenedNotify        = "opened-notify"
	OpVisibleNotify       = "visible-notify"
	OpUpdatedNotify       = "updated-notify"
	OpPlayerProps         = "player-props"
	OpKickedNotice        = "kicked-notice"
)

// Packet 帧头：cmd/op 为命令判别，i 为请求关联 id。
// 请求结构体内嵌 Packet，操作字段平铺在帧顶层。
type Packet struct {
	Cmd string `json:"cmd,omitempty" msgpack:"cmd,omitempty"`
	Op  string `json:"op,omitempty" msgpack:"op,omitempty"`
	I   int32  `json:"i,omitempty" msgpack:"i,omitempty"`
}

// SetSeq 设置关联 id，由连接层在发送前分配
func (p *Packet) SetSeq(i int32) { p.I = i }

// Correlated 返回该帧是否为需要响应的请求
func (p *Packet) Correlated() bool { return p.I > 0 }

// Command 返回帧的 cmd 字段
func (p *Packet) Command() string { return p.Cmd }

// Request 可发送的请求帧
type Request interface {
	SetSeq(i int32)
	Correlated() bool
	Command() string
}

// Message 收到的一帧。帧头字段解析完成，
// 操作载荷按需通过 Bind 解码成具体类型。
type Message struct {
	Cmd        string
	Op         string
	I          int32
	ReasonCode int
	Detail     string

	isErr bool
	raw   []byte
	codec Codec
}

type messageHeader struct {
	Cmd        string `json:"cmd" msgpack:"cmd"`
	Op         string `json:"op" msgpack:"op"`
	I          int32  `json:"i" msgpack:"i"`
	ReasonCode *int   `json:"reasonCode" msgpack:"reasonCode"`
	Detail     string `json:"detail" msgpack:"detail"`
}

// ParseMessage 解析一帧。载荷字段保留原始字节，留待 Bind 解码。
func ParseMessage(codec Codec, data []byte) (*Message, error) {
	var h messageHeader
	if err := codec.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	m := &Message{
		Cmd:    h.Cmd,
		Op:     h.Op,
		I:      h.I,
		Detail: h.Detail,
		raw:    data,
		codec:  codec,
	}
	if h.ReasonCode != nil {
		m.isErr = true
		m.ReasonCode = *h.ReasonCode
	}
	return m, nil
}

// IsPing 返回该帧是否为心跳帧（空对象）
func (m *Message) IsPing() bool {
	return m.Cmd == "" && m.Op == "" && m.I == 0 && !m.isErr
}

// IsError 返回该帧是否携带错误
func (m *Message) IsError() bool { return m.isErr }

// Err 返回帧携带的协议错误，非错误帧返回 nil
func (m *Message) Err() error {
	if !m.isErr {
		return nil
	}
	return &ServerError{Code: m.ReasonCode, Detail: m.Detail}
}

// Bind 将载荷解码到 v，结构不匹配时返回错误
func (m *Message) Bind(v interface{}) error {
	return m.codec.Unmarshal(m.raw, v)
}

// Heartbeat 编码一个心跳帧
func Heartbeat(codec Codec) ([]byte, error) {
	return codec.Marshal(struct{}{})
}
