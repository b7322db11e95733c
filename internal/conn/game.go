package conn

import (
	"context"

	"github.com/qiminjie89/playgo/internal/protocol"
)

// GameConnection 房间连接：成员管理、属性同步和事件转发
type GameConnection struct {
	*Connection
}

// OpenGame 建立房间连接并完成握手。serverURL 来自大厅协商结果。
func OpenGame(ctx context.Context, serverURL string, opts Options) (*GameConnection, error) {
	if opts.PingInterval == 0 {
		opts.PingInterval = GamePingInterval
	}
	c := newConnection("game", opts)
	if err := c.open(ctx, serverURL); err != nil {
		return nil, err
	}
	return &GameConnection{Connection: c}, nil
}

// CreateRoom 在 game 服务器上创建房间，返回完整房间状态
func (c *GameConnection) CreateRoom(ctx context.Context, req *protocol.CreateRoomRequest) (*protocol.RoomPayload, error) {
	req.Packet = protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpStart}
	req.CreateOnNotFound = false
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var room protocol.RoomPayload
	if err := resp.Bind(&room); err != nil {
		return nil, err
	}
	return &room, nil
}

// JoinRoom 加入房间，返回完整房间状态
func (c *GameConnection) JoinRoom(ctx context.Context, roomID string, expectedUserIDs []string) (*protocol.RoomPayload, error) {
	req := &protocol.JoinRoomRequest{
		Packet:        protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpAdd},
		Cid:           roomID,
		ExpectMembers: expectedUserIDs,
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var room protocol.RoomPayload
	if err := resp.Bind(&room); err != nil {
		return nil, err
	}
	return &room, nil
}

// LeaveRoom 离开当前房间
func (c *GameConnection) LeaveRoom(ctx context.Context) error {
	req := &protocol.LeaveRoomRequest{
		Packet: protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpRemove},
	}
	_, err := c.Call(ctx, req)
	return err
}

// SetRoomOpen 切换房间开关状态，返回服务端确认后的值
func (c *GameConnection) SetRoomOpen(ctx context.Context, open bool) (bool, error) {
	return c.toggle(ctx, protocol.OpOpen, open)
}

// SetRoomVisible 切换房间可见性，返回服务端确认后的值
func (c *GameConnection) SetRoomVisible(ctx context.Context, visible bool) (bool, error) {
	return c.toggle(ctx, protocol.OpVisible, visible)
}

func (c *GameConnection) toggle(ctx context.Context, op string, value bool) (bool, error) {
	req := &protocol.ToggleRequest{
		Packet: protocol.Packet{Cmd: protocol.CmdConv, Op: op},
		Toggle: value,
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return value, err
	}
	var res protocol.TogglePayload
	if err := resp.Bind(&res); err != nil || res.Toggle == nil {
		return value, nil
	}
	return *res.Toggle, nil
}

// SetMaster 转移 master，返回服务端确认后的 masterActorId
func (c *GameConnection) SetMaster(ctx context.Context, newMasterID int) (int, error) {
	req := &protocol.UpdateMasterRequest{
		Packet:        protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpUpdateMaster},
		MasterActorID: newMasterID,
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return -1, err
	}
	var res protocol.UpdateMasterResponse
	if err := resp.Bind(&res); err != nil || res.MasterActorID == nil {
		return newMasterID, nil
	}
	return *res.MasterActorID, nil
}

// KickPlayer 把玩家踢出房间，返回被踢玩家的 actorId
func (c *GameConnection) KickPlayer(ctx context.Context, actorID, code int, reason string) (int, error) {
	req := &protocol.KickRequest{
		Packet:        protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpKick},
		TargetActorID: actorID,
		AppCode:       code,
		AppMsg:        reason,
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return actorID, err
	}
	var res protocol.KickResponse
	if err := resp.Bind(&res); err != nil || res.TargetActorID == nil {
		return actorID, nil
	}
	return *res.TargetActorID, nil
}

// SendEvent 向接收组或指定 actor 发送自定义事件
func (c *GameConnection) SendEvent(ctx context.Context, eventID string, eventData map[string]interface{}, receiverGroup int, toActorIDs []int) error {
	req := &protocol.DirectRequest{
		Packet:        protocol.Packet{Cmd: protocol.CmdDirect},
		EventID:       eventID,
		Msg:           eventData,
		ReceiverGroup: receiverGroup,
		ToActorIDs:    toActorIDs,
	}
	_, err := c.Call(ctx, req)
	return err
}

// SetRoomProperties 更新房间自定义属性，可带期望值守卫。
// 返回服务端接受的变更集，由调用方合并进本地镜像。
func (c *GameConnection) SetRoomProperties(ctx context.Context, props, expected map[string]interface{}) (map[string]interface{}, error) {
	req := &protocol.UpdatePropsRequest{
		Packet:     protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpUpdate},
		Attr:       props,
		ExpectAttr: expected,
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var res protocol.AttrChangedPayload
	if err := resp.Bind(&res); err != nil {
		return nil, nil
	}
	return res.Attr, nil
}

// SetPlayerProperties 更新玩家自定义属性，可带期望值守卫。
// 返回目标 actorId 和服务端接受的变更集。
func (c *GameConnection) SetPlayerProperties(ctx context.Context, actorID int, props, expected map[string]interface{}) (int, map[string]interface{}, error) {
	req := &protocol.UpdatePropsRequest{
		Packet:        protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpUpdatePlayerProp},
		TargetActorID: actorID,
		Attr:          props,
		ExpectAttr:    expected,
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return actorID, nil, err
	}
	var res protocol.PlayerPropsPayload
	if err := resp.Bind(&res); err != nil || res.ActorID == nil {
		return actorID, nil, nil
	}
	return *res.ActorID, res.Attr, nil
}
