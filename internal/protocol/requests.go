package protocol

// SessionOpenRequest 会话握手。通道打开后第一条消息，
// 响应到达前握手不算完成。
type SessionOpenRequest struct {
	Packet      `msgpack:",inline"`
	AppID       string `json:"appId" msgpack:"appId"`
	PeerID      string `json:"peerId" msgpack:"peerId"`
	SDKVersion  string `json:"sdkVersion" msgpack:"sdkVersion"`
	GameVersion string `json:"gameVersion" msgpack:"gameVersion"`
	Token       string `json:"token,omitempty" msgpack:"token,omitempty"`
}

// JoinLobbyRequest 进入大厅，之后服务端开始推送 room-list
type JoinLobbyRequest struct {
	Packet `msgpack:",inline"`
}

// CreateRoomRequest conv/start。RoomOptions 字段平铺在帧顶层。
// join-or-create 复用本结构，op 为 add 且置 CreateOnNotFound。
type CreateRoomRequest struct {
	Packet           `msgpack:",inline"`
	CreateOnNotFound bool                   `json:"createOnNotFound,omitempty" msgpack:"createOnNotFound,omitempty"`
	Cid              string                 `json:"cid,omitempty" msgpack:"cid,omitempty"`
	Open             *bool                  `json:"open,omitempty" msgpack:"open,omitempty"`
	Visible          *bool                  `json:"visible,omitempty" msgpack:"visible,omitempty"`
	EmptyRoomTTL     int                    `json:"emptyRoomTtl,omitempty" msgpack:"emptyRoomTtl,omitempty"`
	MaxMembers       int                    `json:"maxMembers,omitempty" msgpack:"maxMembers,omitempty"`
	PlayerTTL        int                    `json:"playerTtl,omitempty" msgpack:"playerTtl,omitempty"`
	Attr             map[string]interface{} `json:"attr,omitempty" msgpack:"attr,omitempty"`
	LobbyAttrKeys    []string               `json:"lobbyAttrKeys,omitempty" msgpack:"lobbyAttrKeys,omitempty"`
	ExpectMembers    []string               `json:"expectMembers,omitempty" msgpack:"expectMembers,omitempty"`
}

// JoinRoomRequest conv/add。Rejoin 与普通 join 的服务端效果一致。
type JoinRoomRequest struct {
	Packet        `msgpack:",inline"`
	Cid           string   `json:"cid" msgpack:"cid"`
	Rejoin        bool     `json:"rejoin,omitempty" msgpack:"rejoin,omitempty"`
	ExpectMembers []string `json:"expectMembers,omitempty" msgpack:"expectMembers,omitempty"`
}

// JoinRandomRequest conv/add-random
type JoinRandomRequest struct {
	Packet        `msgpack:",inline"`
	ExpectAttr    map[string]interface{} `json:"expectAttr,omitempty" msgpack:"expectAttr,omitempty"`
	ExpectMembers []string               `json:"expectMembers,omitempty" msgpack:"expectMembers,omitempty"`
}

// MatchRandomRequest conv/match-random，只查询不加入
type MatchRandomRequest struct {
	Packet        `msgpack:",inline"`
	ExpectAttr    map[string]interface{} `json:"expectAttr,omitempty" msgpack:"expectAttr,omitempty"`
	ExpectMembers []string               `json:"expectMembers,omitempty" msgpack:"expectMembers,omitempty"`
}

// LeaveRoomRequest conv/remove
type LeaveRoomRequest struct {
	Packet `msgpack:",inline"`
}

// ToggleRequest conv/open 和 conv/visible 共用
type ToggleRequest struct {
	Packet `msgpack:",inline"`
	Toggle bool `json:"toggle" msgpack:"toggle"`
}

// UpdateMasterRequest conv/update-master-client
type UpdateMasterRequest struct {
	Packet        `msgpack:",inline"`
	MasterActorID int `json:"masterActorId" msgpack:"masterActorId"`
}

// KickRequest conv/kick
type KickRequest struct {
	Packet        `msgpack:",inline"`
	TargetActorID int    `json:"targetActorId" msgpack:"targetActorId"`
	AppCode       int    `json:"appCode" msgpack:"appCode"`
	AppMsg        string `json:"appMsg" msgpack:"appMsg"`
}

// UpdatePropsRequest conv/update（房间属性）和
// conv/update-player-prop（玩家属性，带 targetActorId）共用
type UpdatePropsRequest struct {
	Packet        `msgpack:",inline"`
	TargetActorID int                    `json:"targetActorId,omitempty" msgpack:"targetActorId,omitempty"`
	Attr          map[string]interface{} `json:"attr" msgpack:"attr"`
	ExpectAttr    map[string]interface{} `json:"expectAttr,omitempty" msgpack:"expectAttr,omitempty"`
}

// DirectRequest direct，自定义事件
type DirectRequest struct {
	Packet        `msgpack:",inline"`
	EventID       string                 `json:"eventId" msgpack:"eventId"`
	Msg           map[string]interface{} `json:"msg,omitempty" msgpack:"msg,omitempty"`
	ReceiverGroup int                    `json:"receiverGroup" msgpack:"receiverGroup"`
	ToActorIDs    []int                  `json:"toActorIds,omitempty" msgpack:"toActorIds,omitempty"`
}
