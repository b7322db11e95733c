package play

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qiminjie89/playgo/internal/conn"
	"github.com/qiminjie89/playgo/internal/protocol"
	"github.com/qiminjie89/playgo/pkg/logger"
	"github.com/qiminjie89/playgo/pkg/metrics"
)

// 被踢后自动回大厅的时限
const kickedHandoffTimeout = 30 * time.Second

// installLobbyHandlers 挂接大厅连接的推送和关闭回调。
// epoch 不匹配说明连接已被交接取代，回调直接丢弃。
func (c *Client) installLobbyHandlers(l *conn.LobbyConnection, epoch uint64) {
	l.SetPushHandler(func(msg *protocol.Message) {
		c.disp.Post(func() {
			if c.epoch != epoch {
				return
			}
			c.handleLobbyPush(msg)
		})
	})
	l.SetCloseHandler(func(err error) {
		c.disp.Post(func() {
			if c.epoch != epoch {
				return
			}
			logger.Warn("lobby connection lost", zap.Error(err))
			c.epoch++
			c.lobby = nil
			c.setState(StateInit)
			c.disconnected.emit(struct{}{})
		})
	})
}

// installGameHandlers 挂接房间连接的推送和关闭回调
func (c *Client) installGameHandlers(g *conn.GameConnection, epoch uint64) {
	g.SetPushHandler(func(msg *protocol.Message) {
		c.disp.Post(func() {
			if c.epoch != epoch {
				return
			}
			c.handleGamePush(msg, epoch)
		})
	})
	g.SetCloseHandler(func(err error) {
		c.disp.Post(func() {
			if c.epoch != epoch {
				return
			}
			logger.Warn("game connection lost", zap.Error(err))
			c.epoch++
			c.game = nil
			c.setRoom(nil)
			c.setState(StateInit)
			c.disconnected.emit(struct{}{})
		})
	})
}

// handleLobbyPush 只在调度协程上调用
func (c *Client) handleLobbyPush(msg *protocol.Message) {
	if msg.IsError() {
		c.handleSessionError(msg)
		return
	}
	switch {
	case msg.Cmd == protocol.CmdLobby && msg.Op == protocol.OpRoomList:
		var payload protocol.RoomListPayload
		if err := msg.Bind(&payload); err != nil {
			c.dropPush(msg, err)
			return
		}
		rooms := make([]LobbyRoom, 0, len(payload.List))
		for i := range payload.List {
			rooms = append(rooms, newLobbyRoom(&payload.List[i]))
		}
		c.lobbyRooms = rooms
		c.roomListUpdated.emit(rooms)
	default:
		logger.Debug("ignoring lobby push",
			zap.String("cmd", msg.Cmd), zap.String("op", msg.Op))
	}
}

// handleGamePush 只在调度协程上调用
func (c *Client) handleGamePush(msg *protocol.Message, epoch uint64) {
	if msg.IsError() {
		c.handleSessionError(msg)
		return
	}
	if msg.Cmd == protocol.CmdDirect {
		var payload protocol.DirectPayload
		if err := msg.Bind(&payload); err != nil {
			c.dropPush(msg, err)
			return
		}
		c.customEvent.emit(CustomEvent{
			EventID:       payload.EventID,
			Data:          payload.Msg,
			SenderActorID: payload.FromActorID,
		})
		return
	}
	if msg.Cmd != protocol.CmdConv || c.room == nil {
		logger.Debug("ignoring game push",
			zap.String("cmd", msg.Cmd), zap.String("op", msg.Op))
		return
	}

	switch msg.Op {
	case protocol.OpMembersJoined:
		var payload protocol.MembersJoinedPayload
		if err := msg.Bind(&payload); err != nil || payload.Member == nil {
			c.dropPush(msg, err)
			return
		}
		p := newPlayer(payload.Member, c.cfg.UserID)
		c.room.addPlayer(p)
		c.playerJoined.emit(p)

	case protocol.OpMembersLeft:
		var payload protocol.MembersLeftPayload
		if err := msg.Bind(&payload); err != nil || payload.ActorID == nil {
			c.dropPush(msg, err)
			return
		}
		if p := c.room.removePlayer(*payload.ActorID); p != nil {
			c.playerLeft.emit(p)
		}

	case protocol.OpMembersOnline:
		var payload protocol.MembersOnlinePayload
		if err := msg.Bind(&payload); err != nil || payload.Member == nil {
			c.dropPush(msg, err)
			return
		}
		if p := c.room.Player(payload.Member.ActorID); p != nil {
			p.setActive(true)
			c.playerActivityChanged.emit(p)
		}

	case protocol.OpMembersOffline:
		var payload protocol.MembersOfflinePayload
		if err := msg.Bind(&payload); err != nil || payload.InitByActor == nil {
			c.dropPush(msg, err)
			return
		}
		if p := c.room.Player(*payload.InitByActor); p != nil {
			p.setActive(false)
			c.playerActivityChanged.emit(p)
		}

	case protocol.OpMasterClientChanged:
		var payload protocol.MasterChangedPayload
		if err := msg.Bind(&payload); err != nil {
			c.dropPush(msg, err)
			return
		}
		// masterActorId 为 null 表示房间当前无 master
		masterID := -1
		if payload.MasterActorID != nil {
			masterID = *payload.MasterActorID
		}
		c.room.setMaster(masterID)
		c.masterSwitched.emit(c.room.Player(masterID))

	case protocol.OpOpenedNotify:
		var payload protocol.TogglePayload
		if err := msg.Bind(&payload); err != nil || payload.Toggle == nil {
			c.dropPush(msg, err)
			return
		}
		c.room.setOpen(*payload.Toggle)
		c.roomOpenChanged.emit(*payload.Toggle)

	case protocol.OpVisibleNotify:
		var payload protocol.TogglePayload
		if err := msg.Bind(&payload); err != nil || payload.Toggle == nil {
			c.dropPush(msg, err)
			return
		}
		c.room.setVisible(*payload.Toggle)
		c.roomVisibleChanged.emit(*payload.Toggle)

	case protocol.OpUpdatedNotify:
		var payload protocol.AttrChangedPayload
		if err := msg.Bind(&payload); err != nil {
			c.dropPush(msg, err)
			return
		}
		c.room.mergeProperties(payload.Attr)
		c.roomPropertiesChanged.emit(PropertiesChangedEvent{Changed: payload.Attr})

	case protocol.OpPlayerProps:
		var payload protocol.PlayerPropsPayload
		if err := msg.Bind(&payload); err != nil || payload.ActorID == nil {
			c.dropPush(msg, err)
			return
		}
		if p := c.room.Player(*payload.ActorID); p != nil {
			p.mergeProperties(payload.Attr)
			c.playerPropertiesChanged.emit(PlayerPropertiesChangedEvent{Player: p, Changed: payload.Attr})
		}

	case protocol.OpKickedNotice:
		var payload protocol.KickedNoticePayload
		if err := msg.Bind(&payload); err != nil {
			c.dropPush(msg, err)
			return
		}
		c.kicked.emit(KickedEvent{Code: payload.AppCode, Reason: payload.AppMsg})
		// 被踢后自动回大厅。gameToLobby 内部要等调度协程，
		// 必须离开当前调度任务再跑。
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), kickedHandoffTimeout)
			defer cancel()
			if err := c.gameToLobby(ctx, epoch); err != nil {
				logger.Warn("return to lobby after kick", zap.Error(err))
			}
		}()

	default:
		logger.Debug("ignoring game push",
			zap.String("cmd", msg.Cmd), zap.String("op", msg.Op))
	}
}

// handleSessionError 与具体请求无关的会话级错误，
// 如重复登录被顶下线（随后服务端会关闭连接）
func (c *Client) handleSessionError(msg *protocol.Message) {
	var payload protocol.ErrorPayload
	if err := msg.Bind(&payload); err != nil || payload.ReasonCode == nil {
		c.dropPush(msg, err)
		return
	}
	logger.Warn("session error",
		zap.Int("reasonCode", *payload.ReasonCode),
		zap.String("detail", payload.Detail),
	)
	c.sessionError.emit(ErrorEvent{Code: *payload.ReasonCode, Detail: payload.Detail})
}

func (c *Client) dropPush(msg *protocol.Message, err error) {
	metrics.ClientMalformedPushes.Inc()
	logger.Warn("malformed push dropped",
		zap.String("cmd", msg.Cmd), zap.String("op", msg.Op), zap.Error(err))
}

// 事件订阅。回调在会话调度协程上按注册顺序触发，
// 返回的函数用于取消订阅。

// OnRoomListUpdated 大厅房间列表更新
func (c *Client) OnRoomListUpdated(fn func([]LobbyRoom)) (cancel func()) {
	return c.roomListUpdated.subscribe(fn)
}

// OnPlayerRoomJoined 有玩家加入当前房间
func (c *Client) OnPlayerRoomJoined(fn func(*Player)) (cancel func()) {
	return c.playerJoined.subscribe(fn)
}

// OnPlayerRoomLeft 有玩家离开当前房间
func (c *Client) OnPlayerRoomLeft(fn func(*Player)) (cancel func()) {
	return c.playerLeft.subscribe(fn)
}

// OnMasterSwitched master 易主。房间暂时无 master 时参数为 nil。
func (c *Client) OnMasterSwitched(fn func(*Player)) (cancel func()) {
	return c.masterSwitched.subscribe(fn)
}

// OnRoomOpenChanged 房间开关状态变化
func (c *Client) OnRoomOpenChanged(fn func(bool)) (cancel func()) {
	return c.roomOpenChanged.subscribe(fn)
}

// OnRoomVisibleChanged 房间可见性变化
func (c *Client) OnRoomVisibleChanged(fn func(bool)) (cancel func()) {
	return c.roomVisibleChanged.subscribe(fn)
}

// OnRoomPropertiesChanged 房间自定义属性变化
func (c *Client) OnRoomPropertiesChanged(fn func(PropertiesChangedEvent)) (cancel func()) {
	return c.roomPropertiesChanged.subscribe(fn)
}

// OnPlayerPropertiesChanged 玩家自定义属性变化
func (c *Client) OnPlayerPropertiesChanged(fn func(PlayerPropertiesChangedEvent)) (cancel func()) {
	return c.playerPropertiesChanged.subscribe(fn)
}

// OnPlayerActivityChanged 玩家在线状态变化
func (c *Client) OnPlayerActivityChanged(fn func(*Player)) (cancel func()) {
	return c.playerActivityChanged.subscribe(fn)
}

// OnCustomEvent 收到自定义事件
func (c *Client) OnCustomEvent(fn func(CustomEvent)) (cancel func()) {
	return c.customEvent.subscribe(fn)
}

// OnKicked 被踢出房间。触发后会话自动回到大厅。
func (c *Client) OnKicked(fn func(KickedEvent)) (cancel func()) {
	return c.kicked.subscribe(fn)
}

// OnDisconnected 连接意外断开，会话回到 Init 态
func (c *Client) OnDisconnected(fn func()) (cancel func()) {
	return c.disconnected.subscribe(func(struct{}) { fn() })
}

// OnError 会话级错误
func (c *Client) OnError(fn func(ErrorEvent)) (cancel func()) {
	return c.sessionError.subscribe(fn)
}
