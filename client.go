// Package play 是实时对战服务的客户端引擎：
// 维护会话状态机、两级路由寻址、大厅和房间两条连接
// 之间的交接，以及房间与玩家的本地镜像。
//
// 所有公开操作都是阻塞方法，带 context 超时控制；
// 事件回调在会话自身的调度协程上串行触发。
package play

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qiminjie89/playgo/internal/conn"
	"github.com/qiminjie89/playgo/internal/protocol"
	"github.com/qiminjie89/playgo/internal/router"
	"github.com/qiminjie89/playgo/pkg/auth"
	"github.com/qiminjie89/playgo/pkg/logger"
	"github.com/qiminjie89/playgo/pkg/metrics"
	"github.com/qiminjie89/playgo/pkg/transport"
)

// 握手时上报的版本标识
const (
	SDKVersion      = "0.9.0"
	ProtocolVersion = "1"
)

// 会话令牌有效期
const tokenExpiry = time.Hour

// Config 会话配置
type Config struct {
	// AppID 应用 id，必填
	AppID string
	// AppKey 应用密钥。非空时握手携带签名的会话令牌。
	AppKey string
	// UserID 用户 id，必填。同一用户同时只能有一个活跃会话。
	UserID string
	// GameVersion 客户端版本号，服务端按版本隔离玩家
	GameVersion string

	// AppRouterURL 顶级路由地址，空则使用默认
	AppRouterURL string
	// LobbyRouterURL 直接指定大厅路由地址，跳过顶级路由。
	// 私有部署和测试环境使用。
	LobbyRouterURL string
	// Insecure 使用非加密接入地址
	Insecure bool

	// Transport 空则使用 websocket
	Transport transport.Transport
	// Codec 空则使用 JSON 文本帧
	Codec protocol.Codec
}

// Client 一个完整的客户端会话。
// 状态与镜像只在调度协程上修改；epoch 在每次连接交接时
// 递增，用于丢弃已被取代的旧连接的回调。
type Client struct {
	cfg    Config
	disp   *dispatcher
	signer *auth.TokenSigner

	appRouter   *router.AppRouter
	lobbyRouter *router.LobbyRouter

	events

	// 以下字段只在调度协程上写；state/room 的公开读取走快照
	state      State
	epoch      uint64
	lobby      *conn.LobbyConnection
	game       *conn.GameConnection
	room       *Room
	lobbyRooms []LobbyRoom

	snapMu    sync.RWMutex
	snapState State
	snapRoom  *Room
}

// NewClient 创建会话。创建后处于 Init 态，调用 Connect 建立连接。
func NewClient(cfg Config) (*Client, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("play: AppID required")
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("play: UserID required")
	}
	if cfg.Transport == nil {
		cfg.Transport = transport.NewWebSocketTransport(transport.WebSocketConfig{})
	}
	if cfg.Codec == nil {
		cfg.Codec = protocol.JSONCodec{}
	}

	c := &Client{
		cfg:  cfg,
		disp: newDispatcher(),
		appRouter: router.NewAppRouter(router.AppRouterOptions{
			AppID:    cfg.AppID,
			BaseURL:  cfg.AppRouterURL,
			Override: cfg.LobbyRouterURL,
		}),
		lobbyRouter: router.NewLobbyRouter(router.LobbyRouterOptions{
			AppID:           cfg.AppID,
			SDKVersion:      SDKVersion,
			ProtocolVersion: ProtocolVersion,
			Insecure:        cfg.Insecure,
		}),
	}
	if cfg.AppKey != "" {
		c.signer = auth.NewTokenSigner(cfg.AppID, cfg.AppKey)
	}
	return c, nil
}

// State 当前会话状态
func (c *Client) State() State {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapState
}

// Room 当前房间镜像，不在房间时为 nil
func (c *Client) Room() *Room {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapRoom
}

// Player 本地玩家，不在房间时为 nil
func (c *Client) Player() *Player {
	r := c.Room()
	if r == nil {
		return nil
	}
	for _, p := range r.Players() {
		if p.IsLocal() {
			return p
		}
	}
	return nil
}

// setState 只在调度协程上调用
func (c *Client) setState(s State) {
	if c.state == s {
		return
	}
	metrics.SessionStateTransitions.WithLabelValues(c.state.String(), s.String()).Inc()
	logger.Debug("session state",
		zap.String("from", c.state.String()),
		zap.String("to", s.String()),
		zap.String("userId", c.cfg.UserID),
	)
	c.state = s
	c.snapMu.Lock()
	c.snapState = s
	c.snapRoom = c.room
	c.snapMu.Unlock()
}

// setRoom 只在调度协程上调用
func (c *Client) setRoom(r *Room) {
	c.room = r
	c.snapMu.Lock()
	c.snapRoom = r
	c.snapMu.Unlock()
}

func (c *Client) connOptions(token string) conn.Options {
	return conn.Options{
		AppID:       c.cfg.AppID,
		UserID:      c.cfg.UserID,
		GameVersion: c.cfg.GameVersion,
		SDKVersion:  SDKVersion,
		Token:       token,
		Transport:   c.cfg.Transport,
		Codec:       c.cfg.Codec,
	}
}

func (c *Client) sessionToken() (string, error) {
	if c.signer == nil {
		return "", nil
	}
	return c.signer.Sign(c.cfg.UserID, tokenExpiry)
}

// openLobby 走两级路由解析并建立大厅连接。在调用方协程上执行。
func (c *Client) openLobby(ctx context.Context) (*conn.LobbyConnection, error) {
	routerURL, err := c.appRouter.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	serverURL, err := c.lobbyRouter.Resolve(ctx, routerURL)
	if err != nil {
		return nil, err
	}
	token, err := c.sessionToken()
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return conn.OpenLobby(ctx, serverURL, c.connOptions(token))
}

// Connect 建立大厅连接。只允许在 Init 态调用；
// 已在 Connecting 态时直接返回 nil，不重复发起。
func (c *Client) Connect(ctx context.Context) error {
	var stateErr error
	var epoch uint64
	ok := c.disp.Call(func() {
		switch c.state {
		case StateInit:
			c.setState(StateConnecting)
			c.epoch++
			epoch = c.epoch
		case StateConnecting:
			stateErr = errAlreadyConnecting
		default:
			stateErr = &StateError{Op: "Connect", State: c.state}
		}
	})
	if !ok {
		return ErrClientClosed
	}
	if stateErr == errAlreadyConnecting {
		return nil
	}
	if stateErr != nil {
		return stateErr
	}

	lobby, err := c.openLobby(ctx)
	if err != nil {
		metrics.SessionHandoffs.WithLabelValues("connect", "error").Inc()
		c.disp.Call(func() {
			if c.epoch == epoch {
				c.setState(StateInit)
			}
		})
		return err
	}

	var superseded bool
	c.disp.Call(func() {
		if c.epoch != epoch {
			superseded = true
			return
		}
		c.lobby = lobby
		c.installLobbyHandlers(lobby, epoch)
		c.setState(StateInLobby)
	})
	if superseded {
		lobby.Close()
		return ErrClientClosed
	}
	metrics.SessionHandoffs.WithLabelValues("connect", "ok").Inc()
	return nil
}

// JoinLobby 进入大厅，之后会持续收到房间列表推送
func (c *Client) JoinLobby(ctx context.Context) error {
	lobby, err := c.requireLobby("JoinLobby")
	if err != nil {
		return err
	}
	return lobby.JoinLobby(ctx)
}

// FetchLobbyRooms 返回最近一次房间列表推送的快照
func (c *Client) FetchLobbyRooms() []LobbyRoom {
	var out []LobbyRoom
	c.disp.Call(func() {
		out = make([]LobbyRoom, len(c.lobbyRooms))
		copy(out, c.lobbyRooms)
	})
	return out
}

// CreateRoom 创建房间并进入。roomName 为空时由服务端分配。
func (c *Client) CreateRoom(ctx context.Context, roomName string, opts *RoomOptions, expectedUserIDs []string) (*Room, error) {
	return c.lobbyToGame(ctx, "CreateRoom", func(lobby *conn.LobbyConnection) (*protocol.LobbyRoomResult, error) {
		return lobby.CreateRoom(ctx, createRequest(roomName, opts, expectedUserIDs))
	}, func(game *conn.GameConnection, cid string) (*protocol.RoomPayload, error) {
		req := createRequest(cid, opts, expectedUserIDs)
		return game.CreateRoom(ctx, req)
	})
}

// JoinRoom 按名字加入房间
func (c *Client) JoinRoom(ctx context.Context, roomName string, expectedUserIDs []string) (*Room, error) {
	return c.lobbyToGame(ctx, "JoinRoom", func(lobby *conn.LobbyConnection) (*protocol.LobbyRoomResult, error) {
		return lobby.JoinRoom(ctx, roomName, false, expectedUserIDs)
	}, func(game *conn.GameConnection, cid string) (*protocol.RoomPayload, error) {
		return game.JoinRoom(ctx, cid, expectedUserIDs)
	})
}

// RejoinRoom 重新加入此前掉线的房间。玩家座位在 playerTtl
// 内保留，重加入会恢复原 actorId。
func (c *Client) RejoinRoom(ctx context.Context, roomName string) (*Room, error) {
	return c.lobbyToGame(ctx, "RejoinRoom", func(lobby *conn.LobbyConnection) (*protocol.LobbyRoomResult, error) {
		return lobby.JoinRoom(ctx, roomName, true, nil)
	}, func(game *conn.GameConnection, cid string) (*protocol.RoomPayload, error) {
		return game.JoinRoom(ctx, cid, nil)
	})
}

// JoinOrCreateRoom 加入房间，不存在则按 opts 创建
func (c *Client) JoinOrCreateRoom(ctx context.Context, roomName string, opts *RoomOptions, expectedUserIDs []string) (*Room, error) {
	return c.lobbyToGame(ctx, "JoinOrCreateRoom", func(lobby *conn.LobbyConnection) (*protocol.LobbyRoomResult, error) {
		res, created, err := lobby.JoinOrCreateRoom(ctx, createRequest(roomName, opts, expectedUserIDs))
		if err != nil {
			return nil, err
		}
		if created {
			logger.Debug("room created on demand", zap.String("cid", res.Cid))
		}
		return res, nil
	}, func(game *conn.GameConnection, cid string) (*protocol.RoomPayload, error) {
		req := createRequest(cid, opts, expectedUserIDs)
		req.Packet = protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpAdd}
		req.CreateOnNotFound = true
		resp, err := game.Call(ctx, req)
		if err != nil {
			return nil, err
		}
		var room protocol.RoomPayload
		if err := resp.Bind(&room); err != nil {
			return nil, err
		}
		return &room, nil
	})
}

// JoinRandomRoom 随机加入一个匹配的房间
func (c *Client) JoinRandomRoom(ctx context.Context, matchProperties map[string]interface{}, expectedUserIDs []string) (*Room, error) {
	return c.lobbyToGame(ctx, "JoinRandomRoom", func(lobby *conn.LobbyConnection) (*protocol.LobbyRoomResult, error) {
		return lobby.JoinRandomRoom(ctx, matchProperties, expectedUserIDs)
	}, func(game *conn.GameConnection, cid string) (*protocol.RoomPayload, error) {
		return game.JoinRoom(ctx, cid, expectedUserIDs)
	})
}

// MatchRandom 只查询随机匹配结果，不加入房间
func (c *Client) MatchRandom(ctx context.Context, matchProperties map[string]interface{}, expectedUserIDs []string) (LobbyRoom, error) {
	lobby, err := c.requireLobby("MatchRandom")
	if err != nil {
		return LobbyRoom{}, err
	}
	p, err := lobby.MatchRandom(ctx, matchProperties, expectedUserIDs)
	if err != nil {
		return LobbyRoom{}, err
	}
	return newLobbyRoom(p), nil
}

// createRequest 把 RoomOptions 平铺成创建帧
func createRequest(roomName string, opts *RoomOptions, expectedUserIDs []string) *protocol.CreateRoomRequest {
	req := &protocol.CreateRoomRequest{
		Cid:           roomName,
		ExpectMembers: expectedUserIDs,
	}
	if opts != nil {
		req.Open = opts.Open
		req.Visible = opts.Visible
		req.EmptyRoomTTL = opts.EmptyRoomTTL
		req.MaxMembers = opts.MaxPlayerCount
		req.PlayerTTL = opts.PlayerTTL
		req.Attr = opts.CustomRoomProperties
		req.LobbyAttrKeys = opts.CustomRoomPropertyKeysForLobby
	}
	return req
}

// lobbyToGame 执行一次大厅到房间的交接：在大厅连接上协商
// 拿到房间 id 和 game 地址，建立房间连接并进入房间，成功后
// 关闭大厅连接。任何一步失败都关闭大厅连接并回到 Init 态，
// 错误返回时状态已经收敛，可重新 Connect。
func (c *Client) lobbyToGame(
	ctx context.Context,
	op string,
	negotiate func(*conn.LobbyConnection) (*protocol.LobbyRoomResult, error),
	enter func(*conn.GameConnection, string) (*protocol.RoomPayload, error),
) (*Room, error) {
	var stateErr error
	var lobby *conn.LobbyConnection
	var epoch uint64
	ok := c.disp.Call(func() {
		if c.state != StateInLobby {
			stateErr = &StateError{Op: op, State: c.state}
			return
		}
		c.setState(StateLobbyToGame)
		lobby = c.lobby
		epoch = c.epoch
	})
	if !ok {
		return nil, ErrClientClosed
	}
	if stateErr != nil {
		return nil, stateErr
	}

	rollback := func() {
		metrics.SessionHandoffs.WithLabelValues("lobby_to_game", "error").Inc()
		var stale *conn.LobbyConnection
		c.disp.Call(func() {
			if c.epoch != epoch || c.state != StateLobbyToGame {
				return
			}
			c.epoch++
			stale = c.lobby
			c.lobby = nil
			c.setState(StateInit)
		})
		if stale != nil {
			stale.Close()
		}
	}

	res, err := negotiate(lobby)
	if err != nil {
		rollback()
		return nil, err
	}

	addr := res.SecureAddr
	if c.cfg.Insecure && res.Addr != "" {
		addr = res.Addr
	}
	if addr == "" {
		addr = res.Addr
	}

	token, err := c.sessionToken()
	if err != nil {
		rollback()
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	game, err := conn.OpenGame(ctx, addr, c.connOptions(token))
	if err != nil {
		rollback()
		return nil, err
	}
	payload, err := enter(game, res.Cid)
	if err != nil {
		game.Close()
		rollback()
		return nil, err
	}

	room := newRoom(payload, c.cfg.UserID)
	var superseded bool
	c.disp.Call(func() {
		if c.epoch != epoch {
			superseded = true
			return
		}
		c.epoch++
		c.lobby.Close()
		c.lobby = nil
		c.game = game
		c.installGameHandlers(game, c.epoch)
		c.setRoom(room)
		c.setState(StateInGame)
	})
	if superseded {
		game.Close()
		return nil, ErrClientClosed
	}
	metrics.SessionHandoffs.WithLabelValues("lobby_to_game", "ok").Inc()
	logger.Info("entered room",
		zap.String("cid", room.Name()),
		zap.String("userId", c.cfg.UserID),
	)
	return room, nil
}

// LeaveRoom 离开当前房间并回到大厅
func (c *Client) LeaveRoom(ctx context.Context) error {
	var stateErr error
	var game *conn.GameConnection
	var epoch uint64
	ok := c.disp.Call(func() {
		if c.state != StateInGame {
			stateErr = &StateError{Op: "LeaveRoom", State: c.state}
			return
		}
		game = c.game
		epoch = c.epoch
	})
	if !ok {
		return ErrClientClosed
	}
	if stateErr != nil {
		return stateErr
	}

	if err := game.LeaveRoom(ctx); err != nil {
		return err
	}
	return c.gameToLobby(ctx, epoch)
}

// gameToLobby 房间到大厅的交接：关闭房间连接，重走路由
// 建立新的大厅连接。失败时会话回到 Init 态。
func (c *Client) gameToLobby(ctx context.Context, epoch uint64) error {
	var superseded bool
	var game *conn.GameConnection
	ok := c.disp.Call(func() {
		if c.epoch != epoch {
			superseded = true
			return
		}
		c.epoch++
		epoch = c.epoch
		game = c.game
		c.game = nil
		c.setRoom(nil)
		c.setState(StateConnecting)
	})
	if !ok {
		return ErrClientClosed
	}
	if superseded {
		return ErrClientClosed
	}
	if game != nil {
		game.Close()
	}

	lobby, err := c.openLobby(ctx)
	if err != nil {
		metrics.SessionHandoffs.WithLabelValues("game_to_lobby", "error").Inc()
		c.disp.Call(func() {
			if c.epoch == epoch {
				c.setState(StateInit)
				c.disconnected.emit(struct{}{})
			}
		})
		return err
	}

	c.disp.Call(func() {
		if c.epoch != epoch {
			superseded = true
			return
		}
		c.lobby = lobby
		c.installLobbyHandlers(lobby, epoch)
		c.setState(StateInLobby)
	})
	if superseded {
		lobby.Close()
		return ErrClientClosed
	}
	metrics.SessionHandoffs.WithLabelValues("game_to_lobby", "ok").Inc()
	return nil
}

// SetRoomOpen 设置房间是否接受加入
func (c *Client) SetRoomOpen(ctx context.Context, open bool) (bool, error) {
	game, _, err := c.requireGame("SetRoomOpen")
	if err != nil {
		return open, err
	}
	confirmed, err := game.SetRoomOpen(ctx, open)
	if err != nil {
		return open, err
	}
	c.disp.Call(func() {
		if c.room != nil {
			c.room.setOpen(confirmed)
		}
	})
	return confirmed, nil
}

// SetRoomVisible 设置房间是否出现在大厅
func (c *Client) SetRoomVisible(ctx context.Context, visible bool) (bool, error) {
	game, _, err := c.requireGame("SetRoomVisible")
	if err != nil {
		return visible, err
	}
	confirmed, err := game.SetRoomVisible(ctx, visible)
	if err != nil {
		return visible, err
	}
	c.disp.Call(func() {
		if c.room != nil {
			c.room.setVisible(confirmed)
		}
	})
	return confirmed, nil
}

// SetMaster 把 master 转移给指定玩家
func (c *Client) SetMaster(ctx context.Context, newMasterActorID int) error {
	game, _, err := c.requireGame("SetMaster")
	if err != nil {
		return err
	}
	confirmed, err := game.SetMaster(ctx, newMasterActorID)
	if err != nil {
		return err
	}
	c.disp.Call(func() {
		if c.room != nil {
			c.room.setMaster(confirmed)
		}
	})
	return nil
}

// KickPlayer 把玩家踢出房间。只有 master 可以调用，
// code/reason 会原样送达被踢方。
func (c *Client) KickPlayer(ctx context.Context, actorID int, code int, reason string) error {
	game, _, err := c.requireGame("KickPlayer")
	if err != nil {
		return err
	}
	kicked, err := game.KickPlayer(ctx, actorID, code, reason)
	if err != nil {
		return err
	}
	c.disp.Call(func() {
		if c.room != nil {
			if p := c.room.removePlayer(kicked); p != nil {
				c.playerLeft.emit(p)
			}
		}
	})
	return nil
}

// SendEvent 向房间内其他成员发送自定义事件。
// opts 为空时发给除自己外的所有成员。
func (c *Client) SendEvent(ctx context.Context, eventID string, eventData map[string]interface{}, opts *SendEventOptions) error {
	game, _, err := c.requireGame("SendEvent")
	if err != nil {
		return err
	}
	group := ReceiverGroupOthers
	var targets []int
	if opts != nil {
		group = opts.ReceiverGroup
		targets = opts.TargetActorIDs
	}
	return game.SendEvent(ctx, eventID, eventData, group, targets)
}

// SetRoomCustomProperties 更新房间自定义属性。
// expectedValues 非空时服务端做期望值比较，不符则整体拒绝。
func (c *Client) SetRoomCustomProperties(ctx context.Context, props, expectedValues map[string]interface{}) error {
	game, _, err := c.requireGame("SetRoomCustomProperties")
	if err != nil {
		return err
	}
	changed, err := game.SetRoomProperties(ctx, props, expectedValues)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}
	c.disp.Call(func() {
		if c.room == nil {
			return
		}
		c.room.mergeProperties(changed)
		c.roomPropertiesChanged.emit(PropertiesChangedEvent{Changed: changed})
	})
	return nil
}

// SetPlayerCustomProperties 更新玩家自定义属性，
// actorID 为 0 时更新本地玩家
func (c *Client) SetPlayerCustomProperties(ctx context.Context, actorID int, props, expectedValues map[string]interface{}) error {
	game, _, err := c.requireGame("SetPlayerCustomProperties")
	if err != nil {
		return err
	}
	if actorID == 0 {
		if p := c.Player(); p != nil {
			actorID = p.ActorID()
		}
	}
	target, changed, err := game.SetPlayerProperties(ctx, actorID, props, expectedValues)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}
	c.disp.Call(func() {
		if c.room == nil {
			return
		}
		p := c.room.Player(target)
		if p == nil {
			return
		}
		p.mergeProperties(changed)
		c.playerPropertiesChanged.emit(PlayerPropertiesChangedEvent{Player: p, Changed: changed})
	})
	return nil
}

// PauseMessageQueue 暂停推送分发，推送在连接内缓存。
// 场景切换等不便处理事件的窗口使用。
func (c *Client) PauseMessageQueue() {
	c.disp.Post(func() {
		if c.game != nil {
			c.game.PauseMessageQueue()
		}
		if c.lobby != nil {
			c.lobby.PauseMessageQueue()
		}
	})
}

// ResumeMessageQueue 恢复推送分发，缓存的推送按原序补发
func (c *Client) ResumeMessageQueue() {
	c.disp.Post(func() {
		if c.game != nil {
			c.game.ResumeMessageQueue()
		}
		if c.lobby != nil {
			c.lobby.ResumeMessageQueue()
		}
	})
}

// Disconnect 主动断开所有连接，会话回到 Init 态，可再次 Connect
func (c *Client) Disconnect() {
	var lobby *conn.LobbyConnection
	var game *conn.GameConnection
	c.disp.Call(func() {
		c.epoch++
		lobby, game = c.lobby, c.game
		c.lobby, c.game = nil, nil
		c.setRoom(nil)
		c.setState(StateInit)
	})
	if lobby != nil {
		lobby.Close()
	}
	if game != nil {
		game.Close()
	}
}

// Close 断开连接并停止调度协程。关闭后会话不可再用。
func (c *Client) Close() {
	c.Disconnect()
	c.disp.Close()
}

// requireLobby 校验状态并取当前大厅连接
func (c *Client) requireLobby(op string) (*conn.LobbyConnection, error) {
	var lobby *conn.LobbyConnection
	var stateErr error
	ok := c.disp.Call(func() {
		if c.state != StateInLobby {
			stateErr = &StateError{Op: op, State: c.state}
			return
		}
		lobby = c.lobby
	})
	if !ok {
		return nil, ErrClientClosed
	}
	if stateErr != nil {
		return nil, stateErr
	}
	return lobby, nil
}

// requireGame 校验状态并取当前房间连接
func (c *Client) requireGame(op string) (*conn.GameConnection, uint64, error) {
	var game *conn.GameConnection
	var epoch uint64
	var stateErr error
	ok := c.disp.Call(func() {
		if c.state != StateInGame {
			stateErr = &StateError{Op: op, State: c.state}
			return
		}
		game = c.game
		epoch = c.epoch
	})
	if !ok {
		return nil, 0, ErrClientClosed
	}
	if stateErr != nil {
		return nil, 0, stateErr
	}
	return game, epoch, nil
}
