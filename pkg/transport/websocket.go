package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize   int
	WriteBufferSize  int
	HandshakeTimeout time.Duration
	// Binary 为 true 时以二进制帧收发（msgpack 编码），
	// 否则以文本帧收发（JSON 编码）
	Binary bool
	Header http.Header
}

// WebSocketTransport WebSocket 传输层实现
type WebSocketTransport struct {
	dialer  *websocket.Dialer
	msgType int
	header  http.Header
}

// NewWebSocketTransport 创建 WebSocket 传输层
func NewWebSocketTransport(cfg WebSocketConfig) *WebSocketTransport {
	msgType := websocket.TextMessage
	if cfg.Binary {
		msgType = websocket.BinaryMessage
	}
	return &WebSocketTransport{
		dialer: &websocket.Dialer{
			ReadBufferSize:   cfg.ReadBufferSize,
			WriteBufferSize:  cfg.WriteBufferSize,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		msgType: msgType,
		header:  cfg.Header,
	}
}

// Dial 连接服务器
func (t *WebSocketTransport) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := t.dialer.DialContext(ctx, url, t.header)
	if err != nil {
		return nil, err
	}
	return &WebSocketConn{
		conn:    conn,
		msgType: t.msgType,
	}, nil
}

// WebSocketConn WebSocket 连接实现
type WebSocketConn struct {
	conn    *websocket.Conn
	msgType int
}

// ReadMessage 读取一帧
func (c *WebSocketConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteMessage 写入一帧
func (c *WebSocketConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(c.msgType, data)
}

// Close 关闭连接，不等待对端
func (c *WebSocketConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr 返回远程地址
func (c *WebSocketConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
