// Package conn 实现会话连接：握手、心跳保活、请求关联和推送分发。
// LobbyConnection 和 GameConnection 在此之上提供各自的命令集。
package conn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qiminjie89/playgo/internal/protocol"
	"github.com/qiminjie89/playgo/pkg/logger"
	"github.com/qiminjie89/playgo/pkg/metrics"
	"github.com/qiminjie89/playgo/pkg/transport"
)

// ErrClosed 连接已关闭。关闭时所有在途请求以此失败。
var ErrClosed = errors.New("connection closed")

// Options 连接参数
type Options struct {
	AppID       string
	UserID      string
	GameVersion string
	SDKVersion  string
	// Token 可选的签名会话令牌，随 session/open 发送
	Token string

	Transport transport.Transport
	Codec     protocol.Codec

	// PingInterval 心跳间隔。收活看门狗为 2 倍心跳间隔。
	PingInterval time.Duration
}

type result struct {
	msg *protocol.Message
	err error
}

// Connection 一条会话连接。生命周期：
// 创建 → 握手完成 → 活跃 → 关闭（终态，不可复用）。
type Connection struct {
	opts Options
	tier string

	c transport.Conn

	mu      sync.Mutex
	seq     int32
	pending map[int32]chan result
	closed  bool

	// writeMu 串行化帧写入，websocket 连接不允许并发写
	writeMu sync.Mutex

	pingTimer *time.Timer
	pongTimer *time.Timer

	// 推送队列暂停时按到达顺序缓存，恢复时先清空再恢复实时分发
	queueMu sync.Mutex
	paused  bool
	backlog []*protocol.Message

	handlerMu sync.Mutex
	onMessage func(*protocol.Message)
	onClose   func(err error)

	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(tier string, opts Options) *Connection {
	return &Connection{
		opts:    opts,
		tier:    tier,
		pending: make(map[int32]chan result),
		done:    make(chan struct{}),
	}
}

// open 建立通道并完成 session/open 握手。
// 握手响应到达前通道关闭或出错，握手即告失败。
func (c *Connection) open(ctx context.Context, serverURL string) error {
	logger.Debug("connecting",
		zap.String("tier", c.tier),
		zap.String("server", serverURL),
	)

	tc, err := c.opts.Transport.Dial(ctx, serverURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverURL, err)
	}
	c.c = tc

	metrics.ClientConnections.WithLabelValues(c.tier).Inc()
	c.startKeepAlive()
	go c.readLoop()

	openReq := &protocol.SessionOpenRequest{
		Packet:      protocol.Packet{Cmd: protocol.CmdSession, Op: protocol.OpOpen},
		AppID:       c.opts.AppID,
		PeerID:      c.opts.UserID,
		SDKVersion:  c.opts.SDKVersion,
		GameVersion: c.opts.GameVersion,
		Token:       c.opts.Token,
	}
	if _, err := c.Call(ctx, openReq); err != nil {
		c.Close()
		return fmt.Errorf("session open: %w", err)
	}

	logger.Debug("session opened",
		zap.String("tier", c.tier),
		zap.String("peer", c.opts.UserID),
	)
	return nil
}

// Call 发送请求并等待关联响应。响应和错误至多送达一次；
// 连接关闭时所有在途请求立即失败。
func (c *Connection) Call(ctx context.Context, req protocol.Request) (*protocol.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.seq++
	seq := c.seq
	req.SetSeq(seq)
	ch := make(chan result, 1)
	c.pending[seq] = ch
	c.mu.Unlock()
	metrics.ClientPendingRequests.Inc()

	if err := c.write(req); err != nil {
		c.removePending(seq)
		c.closeWithError(fmt.Errorf("write failed: %w", err))
		return nil, err
	}
	metrics.ClientMessagesSent.WithLabelValues(req.Command()).Inc()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.msg, nil
	case <-ctx.Done():
		c.removePending(seq)
		return nil, ctx.Err()
	case <-c.done:
		// closeWithError 已将 pending 全部失败，这里兜底
		select {
		case res := <-ch:
			if res.err != nil {
				return nil, res.err
			}
			return res.msg, nil
		default:
			return nil, ErrClosed
		}
	}
}

// write 编码并写入一帧，成功后重置心跳发送定时器
func (c *Connection) write(v interface{}) error {
	data, err := c.opts.Codec.Marshal(v)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.c.WriteMessage(data); err != nil {
		return err
	}
	c.schedulePing()
	return nil
}

// readLoop 持续读取入站帧直至通道关闭
func (c *Connection) readLoop() {
	for {
		data, err := c.c.ReadMessage()
		if err != nil {
			c.closeWithError(err)
			return
		}
		c.handleFrame(data)
	}
}

// handleFrame 分类一帧：心跳应答、关联响应、推送
func (c *Connection) handleFrame(data []byte) {
	c.schedulePong()

	msg, err := protocol.ParseMessage(c.opts.Codec, data)
	if err != nil {
		logger.Warn("drop unparsable frame",
			zap.String("tier", c.tier),
			zap.Error(err),
		)
		metrics.ClientMalformedPushes.Inc()
		return
	}
	if msg.IsPing() {
		return
	}
	metrics.ClientMessagesReceived.WithLabelValues(msg.Cmd).Inc()

	if msg.I > 0 {
		c.resolve(msg)
		return
	}

	// 推送：暂停期间入队，否则实时分发
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if c.paused {
		c.backlog = append(c.backlog, msg)
		return
	}
	c.dispatch(msg)
}

// resolve 将关联响应送达等待方并移除 pending 记录。
// 无人认领的 id 记日志后丢弃，不致命。
func (c *Connection) resolve(msg *protocol.Message) {
	ch, ok := c.removePending(msg.I)
	if !ok {
		logger.Warn("no pending request for response",
			zap.String("tier", c.tier),
			zap.Int32("i", msg.I),
		)
		return
	}
	if msg.IsError() {
		ch <- result{err: msg.Err()}
		return
	}
	ch <- result{msg: msg}
}

func (c *Connection) removePending(seq int32) (chan result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
		metrics.ClientPendingRequests.Dec()
	}
	return ch, ok
}

func (c *Connection) dispatch(msg *protocol.Message) {
	c.handlerMu.Lock()
	h := c.onMessage
	c.handlerMu.Unlock()
	if h != nil {
		h(msg)
	}
}

// SetPushHandler 安装推送处理器，传 nil 摘除
func (c *Connection) SetPushHandler(h func(*protocol.Message)) {
	c.handlerMu.Lock()
	c.onMessage = h
	c.handlerMu.Unlock()
}

// SetCloseHandler 安装意外断开处理器，传 nil 摘除。
// 主动 Close 不触发。
func (c *Connection) SetCloseHandler(h func(err error)) {
	c.handlerMu.Lock()
	c.onClose = h
	c.handlerMu.Unlock()
}

// PauseMessageQueue 暂停推送分发。关联响应不受影响。
func (c *Connection) PauseMessageQueue() {
	c.queueMu.Lock()
	c.paused = true
	c.queueMu.Unlock()
}

// ResumeMessageQueue 按入队顺序清空积压后恢复实时分发
func (c *Connection) ResumeMessageQueue() {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	for _, msg := range c.backlog {
		c.dispatch(msg)
	}
	c.backlog = nil
	c.paused = false
}

// 心跳：发送定时器在每次出站写入后重置，空闲满间隔时发送心跳帧；
// 看门狗在每次入站帧后重置，2 倍间隔内无任何入站流量则强制关连接。

func (c *Connection) startKeepAlive() {
	interval := c.opts.PingInterval
	c.pingTimer = time.AfterFunc(interval, c.sendPing)
	c.pongTimer = time.AfterFunc(2*interval, c.pongTimeout)
}

func (c *Connection) schedulePing() {
	if c.pingTimer != nil {
		c.pingTimer.Reset(c.opts.PingInterval)
	}
}

func (c *Connection) schedulePong() {
	if c.pongTimer != nil {
		c.pongTimer.Reset(2 * c.opts.PingInterval)
	}
}

func (c *Connection) sendPing() {
	data, err := protocol.Heartbeat(c.opts.Codec)
	if err != nil {
		return
	}
	c.writeMu.Lock()
	err = c.c.WriteMessage(data)
	c.schedulePing()
	c.writeMu.Unlock()
	if err != nil {
		c.closeWithError(fmt.Errorf("heartbeat write failed: %w", err))
		return
	}
	metrics.ClientHeartbeatsSent.Inc()
}

func (c *Connection) pongTimeout() {
	logger.Warn("no inbound traffic, closing connection",
		zap.String("tier", c.tier),
		zap.Duration("timeout", 2*c.opts.PingInterval),
	)
	c.closeWithError(errors.New("keepalive timeout"))
}

// Close 主动关闭。幂等；取消定时器、摘除回调并直接关闭通道，
// 不等待对端。
func (c *Connection) Close() {
	c.SetPushHandler(nil)
	c.SetCloseHandler(nil)
	c.teardown(nil, "local_close")
}

// closeWithError 因通道错误或保活超时而关闭，通知断开回调
func (c *Connection) closeWithError(err error) {
	c.teardown(err, "error")
}

func (c *Connection) teardown(cause error, reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		waiters := c.pending
		c.pending = make(map[int32]chan result)
		c.mu.Unlock()

		c.stopKeepAlive()
		close(c.done)
		if c.c != nil {
			c.c.Close()
		}

		failure := cause
		if failure == nil {
			failure = ErrClosed
		}
		for _, ch := range waiters {
			ch <- result{err: failure}
			metrics.ClientPendingRequests.Dec()
		}

		metrics.ClientConnections.WithLabelValues(c.tier).Dec()
		metrics.ClientConnectionCloseReason.WithLabelValues(reason).Inc()
		logger.Debug("connection closed",
			zap.String("tier", c.tier),
			zap.String("reason", reason),
			zap.Error(cause),
		)

		if cause != nil {
			c.handlerMu.Lock()
			h := c.onClose
			c.handlerMu.Unlock()
			if h != nil {
				h(cause)
			}
		}
	})
}

func (c *Connection) stopKeepAlive() {
	if c.pingTimer != nil {
		c.pingTimer.Stop()
	}
	if c.pongTimer != nil {
		c.pongTimer.Stop()
	}
}
