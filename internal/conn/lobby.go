package conn

import (
	"context"
	"time"

	"github.com/qiminjie89/playgo/internal/protocol"
)

// 各层的心跳间隔。game 层流量密集，间隔短；lobby 层间隔长。
const (
	LobbyPingInterval = 20 * time.Second
	GamePingInterval  = 7 * time.Second
)

// LobbyConnection 大厅连接：房间列表、匹配和房间创建/加入协商
type LobbyConnection struct {
	*Connection
}

// OpenLobby 建立大厅连接并完成握手
func OpenLobby(ctx context.Context, serverURL string, opts Options) (*LobbyConnection, error) {
	if opts.PingInterval == 0 {
		opts.PingInterval = LobbyPingInterval
	}
	c := newConnection("lobby", opts)
	if err := c.open(ctx, serverURL); err != nil {
		return nil, err
	}
	return &LobbyConnection{Connection: c}, nil
}

// JoinLobby 进入大厅，服务端随后开始推送 lobby/room-list
func (c *LobbyConnection) JoinLobby(ctx context.Context) error {
	req := &protocol.JoinLobbyRequest{
		Packet: protocol.Packet{Cmd: protocol.CmdLobby, Op: protocol.OpAdd},
	}
	_, err := c.Call(ctx, req)
	return err
}

// CreateRoom 协商创建房间，返回房间 id 和 game 服务器地址
func (c *LobbyConnection) CreateRoom(ctx context.Context, req *protocol.CreateRoomRequest) (*protocol.LobbyRoomResult, error) {
	req.Packet = protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpStart}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var res protocol.LobbyRoomResult
	if err := resp.Bind(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// JoinRoom 协商按名字加入房间。rejoin 与普通加入效果一致。
func (c *LobbyConnection) JoinRoom(ctx context.Context, roomName string, rejoin bool, expectedUserIDs []string) (*protocol.LobbyRoomResult, error) {
	req := &protocol.JoinRoomRequest{
		Packet:        protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpAdd},
		Cid:           roomName,
		Rejoin:        rejoin,
		ExpectMembers: expectedUserIDs,
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var res protocol.LobbyRoomResult
	if err := resp.Bind(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// JoinOrCreateRoom 协商加入房间，不存在则创建。
// created 表示服务端走了创建分支（响应 op 回显 started）。
func (c *LobbyConnection) JoinOrCreateRoom(ctx context.Context, req *protocol.CreateRoomRequest) (res *protocol.LobbyRoomResult, created bool, err error) {
	req.Packet = protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpAdd}
	req.CreateOnNotFound = true
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, false, err
	}
	var r protocol.LobbyRoomResult
	if err := resp.Bind(&r); err != nil {
		return nil, false, err
	}
	return &r, resp.Op == protocol.OpStarted, nil
}

// JoinRandomRoom 协商随机加入，可带匹配属性
func (c *LobbyConnection) JoinRandomRoom(ctx context.Context, matchProperties map[string]interface{}, expectedUserIDs []string) (*protocol.LobbyRoomResult, error) {
	req := &protocol.JoinRandomRequest{
		Packet:        protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpAddRandom},
		ExpectAttr:    matchProperties,
		ExpectMembers: expectedUserIDs,
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var res protocol.LobbyRoomResult
	if err := resp.Bind(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MatchRandom 只查询随机匹配结果，不加入
func (c *LobbyConnection) MatchRandom(ctx context.Context, matchProperties map[string]interface{}, expectedUserIDs []string) (*protocol.LobbyRoomPayload, error) {
	req := &protocol.MatchRandomRequest{
		Packet:        protocol.Packet{Cmd: protocol.CmdConv, Op: protocol.OpMatchRandom},
		ExpectAttr:    matchProperties,
		ExpectMembers: expectedUserIDs,
	}
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var res protocol.LobbyRoomPayload
	if err := resp.Bind(&res); err != nil {
		return nil, err
	}
	return &res, nil
}
