package protocol

// MemberPayload 玩家在帧中的形态
type MemberPayload struct {
	ActorID int                    `json:"actorId" msgpack:"actorId"`
	PID     string                 `json:"pid" msgpack:"pid"`
	Attr    map[string]interface{} `json:"attr" msgpack:"attr"`
}

// RoomPayload 房间在帧中的形态（game 层 conv/start、conv/add 的响应）
type RoomPayload struct {
	Cid           string                 `json:"cid" msgpack:"cid"`
	Open          *bool                  `json:"open" msgpack:"open"`
	Visible       *bool                  `json:"visible" msgpack:"visible"`
	MasterActorID int                    `json:"masterActorId" msgpack:"masterActorId"`
	MaxMembers    int                    `json:"maxMembers" msgpack:"maxMembers"`
	EmptyRoomTTL  int                    `json:"emptyRoomTtl" msgpack:"emptyRoomTtl"`
	PlayerTTL     int                    `json:"playerTtl" msgpack:"playerTtl"`
	ExpectMembers []string               `json:"expectMembers" msgpack:"expectMembers"`
	Attr          map[string]interface{} `json:"attr" msgpack:"attr"`
	Members       []MemberPayload        `json:"members" msgpack:"members"`
}

// LobbyRoomPayload 大厅房间摘要（lobby/room-list 推送）
type LobbyRoomPayload struct {
	Cid           string                 `json:"cid" msgpack:"cid"`
	MaxMembers    int                    `json:"maxMembers" msgpack:"maxMembers"`
	ExpectMembers []string               `json:"expectMembers" msgpack:"expectMembers"`
	EmptyRoomTTL  int                    `json:"emptyRoomTtl" msgpack:"emptyRoomTtl"`
	PlayerTTL     int                    `json:"playerTtl" msgpack:"playerTtl"`
	Open          bool                   `json:"open" msgpack:"open"`
	Visible       bool                   `json:"visible" msgpack:"visible"`
	Attr          map[string]interface{} `json:"attr" msgpack:"attr"`
	MemberCount   int                    `json:"memberCount" msgpack:"memberCount"`
}

// LobbyRoomResult lobby 层 conv/start、conv/add 系列响应：
// 房间 id 和 game 服务器地址
type LobbyRoomResult struct {
	Cid        string `json:"cid" msgpack:"cid"`
	Addr       string `json:"addr" msgpack:"addr"`
	SecureAddr string `json:"secureAddr" msgpack:"secureAddr"`
}

// RoomListPayload lobby/room-list 推送
type RoomListPayload struct {
	List []LobbyRoomPayload `json:"list" msgpack:"list"`
}

// MembersJoinedPayload conv/members-joined 推送
type MembersJoinedPayload struct {
	Member *MemberPayload `json:"member" msgpack:"member"`
}

// MembersLeftPayload conv/members-left 推送
type MembersLeftPayload struct {
	ActorID *int `json:"actorId" msgpack:"actorId"`
}

// MembersOnlinePayload conv/members-online 推送
type MembersOnlinePayload struct {
	Member *MemberPayload `json:"member" msgpack:"member"`
}

// MembersOfflinePayload conv/members-offline 推送
type MembersOfflinePayload struct {
	InitByActor *int `json:"initByActor" msgpack:"initByActor"`
}

// MasterChangedPayload conv/master-client-changed 推送。
// MasterActorID 为 null 表示当前无 master。
type MasterChangedPayload struct {
	MasterActorID *int `json:"masterActorId" msgpack:"masterActorId"`
}

// TogglePayload conv/opened-notify、conv/visible-notify 推送
// 和 conv/open、conv/visible 响应
type TogglePayload struct {
	Toggle *bool `json:"toggle" msgpack:"toggle"`
}

// UpdateMasterResponse conv/update-master-client 响应
type UpdateMasterResponse struct {
	MasterActorID *int `json:"masterActorId" msgpack:"masterActorId"`
}

// KickResponse conv/kick 响应
type KickResponse struct {
	TargetActorID *int `json:"targetActorId" msgpack:"targetActorId"`
}

// AttrChangedPayload conv/updated-notify 推送和 conv/update 响应
type AttrChangedPayload struct {
	Attr map[string]interface{} `json:"attr" msgpack:"attr"`
}

// PlayerPropsPayload conv/player-props 推送和 conv/update-player-prop 响应
type PlayerPropsPayload struct {
	ActorID *int                   `json:"actorId" msgpack:"actorId"`
	Attr    map[string]interface{} `json:"attr" msgpack:"attr"`
}

// DirectPayload direct 推送，自定义事件
type DirectPayload struct {
	EventID     string                 `json:"eventId" msgpack:"eventId"`
	Msg         map[string]interface{} `json:"msg" msgpack:"msg"`
	FromActorID int                    `json:"fromActorId" msgpack:"fromActorId"`
}

// KickedNoticePayload conv/kicked-notice 推送，appCode/appMsg 由踢人方传入
type KickedNoticePayload struct {
	AppCode int    `json:"appCode" msgpack:"appCode"`
	AppMsg  string `json:"appMsg" msgpack:"appMsg"`
}

// ErrorPayload error 推送（与具体请求无关的会话级错误，如重复登录）
type ErrorPayload struct {
	ReasonCode *int   `json:"reasonCode" msgpack:"reasonCode"`
	Detail     string `json:"detail" msgpack:"detail"`
}
