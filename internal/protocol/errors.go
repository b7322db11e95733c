package protocol

import "fmt"

// 服务端错误码
const (
	// 会话相关 (41xx)
	ErrCodeDuplicateLogin = 4102 // 同一 userId 在别处登录，当前会话被顶下线
	ErrCodeInvalidUserID  = 4104 // userId 非法

	// 房间相关 (43xx)
	ErrCodeRoomNotFound     = 4301 // 房间不存在或随机匹配无结果
	ErrCodeJoinRoomRejected = 4302 // 加入被拒（满员或不在受邀列表）
	ErrCodeRoomNameTaken    = 4303 // 房间名已被占用
)

// ErrCodeMessage 错误码对应的消息
var ErrCodeMessage = map[int]string{
	ErrCodeDuplicateLogin:   "duplicate_login",
	ErrCodeInvalidUserID:    "invalid_user_id",
	ErrCodeRoomNotFound:     "room_not_found",
	ErrCodeJoinRoomRejected: "join_room_rejected",
	ErrCodeRoomNameTaken:    "room_name_taken",
}

// ServerError 服务端对某个请求返回的 reasonCode/detail。
// 只影响该请求本身，连接不受影响。
type ServerError struct {
	Code   int
	Detail string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Detail)
}
