package play

import (
	"errors"

	"github.com/qiminjie89/playgo/internal/protocol"
)

// ErrClientClosed 会话已 Close，不再接受任何操作
var ErrClientClosed = errors.New("play: client closed")

// errAlreadyConnecting Connect 在 Connecting 态重入时的内部哨兵，
// 对调用方表现为静默成功
var errAlreadyConnecting = errors.New("play: already connecting")

// ServerError 服务端对某个请求返回的错误
type ServerError = protocol.ServerError

// 常见服务端错误码
const (
	ErrCodeDuplicateLogin   = protocol.ErrCodeDuplicateLogin
	ErrCodeInvalidUserID    = protocol.ErrCodeInvalidUserID
	ErrCodeRoomNotFound     = protocol.ErrCodeRoomNotFound
	ErrCodeJoinRoomRejected = protocol.ErrCodeJoinRoomRejected
	ErrCodeRoomNameTaken    = protocol.ErrCodeRoomNameTaken
)
