// Package transport 提供客户端传输层抽象，支持 WebSocket 和未来的 QUIC
package transport

import "context"

// Transport 传输层接口，负责建立到服务器的持久连接
type Transport interface {
	// Dial 连接指定地址
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn 连接接口，一条消息为一帧
type Conn interface {
	// ReadMessage 读取一帧，阻塞直到有数据或连接关闭
	ReadMessage() ([]byte, error)
	// WriteMessage 写入一帧
	WriteMessage(data []byte) error
	// Close 关闭连接
	Close() error
	// RemoteAddr 返回远程地址
	RemoteAddr() string
}
