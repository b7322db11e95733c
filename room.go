package play

import (
	"sync"

	"github.com/qiminjie89/playgo/internal/protocol"
)

// RoomOptions 创建房间的可选参数
type RoomOptions struct {
	// Open 为 false 时房间不接受新成员加入
	Open *bool
	// Visible 为 false 时房间不出现在大厅列表和随机匹配中
	Visible *bool
	// EmptyRoomTTL 房间无人后保留的秒数
	EmptyRoomTTL int
	// MaxPlayerCount 房间人数上限
	MaxPlayerCount int
	// PlayerTTL 玩家掉线后保留座位的秒数
	PlayerTTL int
	// CustomRoomProperties 房间初始自定义属性
	CustomRoomProperties map[string]interface{}
	// CustomRoomPropertyKeysForLobby 同步到大厅摘要的属性键
	CustomRoomPropertyKeysForLobby []string
}

// 自定义事件接收组
const (
	// ReceiverGroupOthers 除自己以外的所有成员
	ReceiverGroupOthers = 0
	// ReceiverGroupAll 所有成员
	ReceiverGroupAll = 1
	// ReceiverGroupMasterClient 只发给 master
	ReceiverGroupMasterClient = 2
)

// SendEventOptions 自定义事件的发送参数
type SendEventOptions struct {
	ReceiverGroup  int
	TargetActorIDs []int
}

// LobbyRoom 大厅里的房间摘要
type LobbyRoom struct {
	RoomName         string
	MaxPlayerCount   int
	ExpectedUserIDs  []string
	EmptyRoomTTL     int
	PlayerTTL        int
	Open             bool
	Visible          bool
	CustomProperties map[string]interface{}
	PlayerCount      int
}

func newLobbyRoom(p *protocol.LobbyRoomPayload) LobbyRoom {
	return LobbyRoom{
		RoomName:         p.Cid,
		MaxPlayerCount:   p.MaxMembers,
		ExpectedUserIDs:  p.ExpectMembers,
		EmptyRoomTTL:     p.EmptyRoomTTL,
		PlayerTTL:        p.PlayerTTL,
		Open:             p.Open,
		Visible:          p.Visible,
		CustomProperties: p.Attr,
		PlayerCount:      p.MemberCount,
	}
}

// Room 当前房间的本地镜像。服务端为权威数据源，
// 镜像只由会话内部处理器在响应回显和推送到达时修改。
type Room struct {
	mu sync.RWMutex

	name          string
	open          bool
	visible       bool
	maxPlayers    int
	masterActorID int
	props         map[string]interface{}
	players       []*Player
}

func newRoom(p *protocol.RoomPayload, localUserID string) *Room {
	r := &Room{
		name:          p.Cid,
		open:          true,
		visible:       true,
		maxPlayers:    p.MaxMembers,
		masterActorID: p.MasterActorID,
		props:         make(map[string]interface{}),
	}
	if p.Open != nil {
		r.open = *p.Open
	}
	if p.Visible != nil {
		r.visible = *p.Visible
	}
	for k, v := range p.Attr {
		r.props[k] = v
	}
	for i := range p.Members {
		member := newPlayer(&p.Members[i], localUserID)
		member.room = r
		r.players = append(r.players, member)
	}
	return r
}

// Name 房间名
func (r *Room) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

// Open 房间是否接受加入
func (r *Room) Open() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.open
}

// Visible 房间是否出现在大厅
func (r *Room) Visible() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visible
}

// MaxPlayerCount 房间人数上限
func (r *Room) MaxPlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxPlayers
}

// MasterActorID 当前 master 的 actorId，无 master 时为 -1
func (r *Room) MasterActorID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.masterActorID
}

// Master 当前 master，无 master 时为 nil
func (r *Room) Master() *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playerLocked(r.masterActorID)
}

// Player 按 actorId 查找玩家，不存在时为 nil
func (r *Room) Player(actorID int) *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playerLocked(actorID)
}

func (r *Room) playerLocked(actorID int) *Player {
	for _, p := range r.players {
		if p.ActorID() == actorID {
			return p
		}
	}
	return nil
}

// Players 按加入顺序返回玩家列表的快照
func (r *Room) Players() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Player, len(r.players))
	copy(out, r.players)
	return out
}

// CustomProperties 返回自定义属性的快照
func (r *Room) CustomProperties() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]interface{}, len(r.props))
	for k, v := range r.props {
		out[k] = v
	}
	return out
}

func (r *Room) setOpen(open bool) {
	r.mu.Lock()
	r.open = open
	r.mu.Unlock()
}

func (r *Room) setVisible(visible bool) {
	r.mu.Lock()
	r.visible = visible
	r.mu.Unlock()
}

func (r *Room) setMaster(actorID int) {
	r.mu.Lock()
	r.masterActorID = actorID
	r.mu.Unlock()
}

// mergeProperties 把服务端接受的变更集按键合并，后写覆盖
func (r *Room) mergeProperties(changed map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range changed {
		r.props[k] = v
	}
}

func (r *Room) addPlayer(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.room = r
	for i, existing := range r.players {
		if existing.ActorID() == p.ActorID() {
			r.players[i] = p
			return
		}
	}
	r.players = append(r.players, p)
}

func (r *Room) removePlayer(actorID int) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.players {
		if p.ActorID() == actorID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return p
		}
	}
	return nil
}

// Player 房间内的玩家镜像
type Player struct {
	mu sync.RWMutex

	// room 在玩家进入房间镜像时挂接，之后不再改写
	room    *Room
	actorID int
	userID  string
	active  bool
	local   bool
	props   map[string]interface{}
}

func newPlayer(p *protocol.MemberPayload, localUserID string) *Player {
	props := make(map[string]interface{}, len(p.Attr))
	for k, v := range p.Attr {
		props[k] = v
	}
	return &Player{
		actorID: p.ActorID,
		userID:  p.PID,
		active:  true,
		local:   p.PID == localUserID,
		props:   props,
	}
}

// ActorID 房间内唯一的玩家编号
func (p *Player) ActorID() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.actorID
}

// UserID 玩家的用户 id
func (p *Player) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userID
}

// IsActive 玩家当前是否在线
func (p *Player) IsActive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// IsLocal 是否为本会话自己的玩家
func (p *Player) IsLocal() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.local
}

// CustomProperties 返回自定义属性的快照
func (p *Player) CustomProperties() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]interface{}, len(p.props))
	for k, v := range p.props {
		out[k] = v
	}
	return out
}

func (p *Player) setActive(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
}

// mergeProperties 把服务端接受的变更集按键合并，后写覆盖
func (p *Player) mergeProperties(changed map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range changed {
		p.props[k] = v
	}
}

// IsMaster 该玩家是否为所在房间的 master
func (p *Player) IsMaster() bool {
	if p.room == nil {
		return false
	}
	return p.room.MasterActorID() == p.actorID
}
