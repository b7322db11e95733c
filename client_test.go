package play

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestClient(t *testing.T, b *fakeBackend, userID string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		AppID:          "test-app",
		UserID:         userID,
		GameVersion:    "0.0.1",
		LobbyRouterURL: b.srv.URL + "/router",
		Insecure:       true,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestConnectEntersLobby(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, "u1")

	if got := c.State(); got != StateInit {
		t.Fatalf("initial state = %v, want Init", got)
	}
	if err := c.Connect(testCtx(t)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := c.State(); got != StateInLobby {
		t.Errorf("state = %v, want InLobby", got)
	}
}

func TestConnectTwiceRejected(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, "u1")

	if err := c.Connect(testCtx(t)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	err := c.Connect(testCtx(t))
	var serr *StateError
	if !errors.As(err, &serr) {
		t.Fatalf("second Connect err = %v, want StateError", err)
	}
	if serr.State != StateInLobby {
		t.Errorf("StateError.State = %v, want InLobby", serr.State)
	}
}

func TestOperationsRequireState(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, "u1")
	ctx := testCtx(t)

	var serr *StateError
	if _, err := c.JoinRoom(ctx, "r", nil); !errors.As(err, &serr) {
		t.Errorf("JoinRoom in Init: err = %v, want StateError", err)
	}
	if err := c.LeaveRoom(ctx); !errors.As(err, &serr) {
		t.Errorf("LeaveRoom in Init: err = %v, want StateError", err)
	}
	if err := c.SendEvent(ctx, "e", nil, nil); !errors.As(err, &serr) {
		t.Errorf("SendEvent in Init: err = %v, want StateError", err)
	}

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.LeaveRoom(ctx); !errors.As(err, &serr) {
		t.Errorf("LeaveRoom in lobby: err = %v, want StateError", err)
	}
}

func TestCreateRoomHandoff(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, "u1")
	ctx := testCtx(t)

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	room, err := c.CreateRoom(ctx, "battle-1", &RoomOptions{MaxPlayerCount: 4}, nil)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if got := c.State(); got != StateInGame {
		t.Errorf("state = %v, want InGame", got)
	}
	if room.Name() != "battle-1" {
		t.Errorf("room name = %q", room.Name())
	}
	p := c.Player()
	if p == nil {
		t.Fatalf("local player missing")
	}
	if !p.IsLocal() || p.UserID() != "u1" || p.ActorID() != 1 {
		t.Errorf("local player = #%d %s local=%v", p.ActorID(), p.UserID(), p.IsLocal())
	}
	if !p.IsMaster() {
		t.Errorf("creator is not master")
	}
}

func TestJoinMissingRoom(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, "u1")
	ctx := testCtx(t)

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_, err := c.JoinRoom(ctx, "no-such-room", nil)
	var serr *ServerError
	if !errors.As(err, &serr) || serr.Code != ErrCodeRoomNotFound {
		t.Fatalf("err = %v, want room-not-found", err)
	}
	// 交接失败收敛到 Init 态，且错误返回时状态已经就位
	if got := c.State(); got != StateInit {
		t.Errorf("state after failure = %v, want Init", got)
	}
	// Init 态可重新连接继续使用
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("reconnect after failed join: %v", err)
	}
	if _, err := c.CreateRoom(ctx, "fallback", nil, nil); err != nil {
		t.Errorf("session unusable after failed join: %v", err)
	}
}

func TestCreateDuplicateRoomName(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "taken", nil, nil); err != nil {
		t.Fatalf("CreateRoom c1: %v", err)
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	_, err := c2.CreateRoom(ctx, "taken", nil, nil)
	var serr *ServerError
	if !errors.As(err, &serr) || serr.Code != ErrCodeRoomNameTaken {
		t.Fatalf("err = %v, want room-name-taken", err)
	}
}

func TestDuplicateLoginEvictsFirst(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "shared")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}

	errs := make(chan ErrorEvent, 1)
	c1.OnError(func(ev ErrorEvent) { errs <- ev })

	// 同一 userId 再次登录，先到的会话被顶下线
	c2 := newTestClient(t, b, "shared")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}

	select {
	case ev := <-errs:
		if ev.Code != ErrCodeDuplicateLogin {
			t.Errorf("session error code = %d, want %d", ev.Code, ErrCodeDuplicateLogin)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no session error on evicted client")
	}
	waitFor(t, "evicted client back to Init", func() bool {
		return c1.State() == StateInit
	})
	if got := c2.State(); got != StateInLobby {
		t.Errorf("winner state = %v, want InLobby", got)
	}
}

func TestExpectedMembersReserveSeats(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "host")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect host: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "invite-only", &RoomOptions{MaxPlayerCount: 2}, []string{"friend"}); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	// 名单外的玩家占不到保留座位
	c2 := newTestClient(t, b, "stranger")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect stranger: %v", err)
	}
	_, err := c2.JoinRoom(ctx, "invite-only", nil)
	var serr *ServerError
	if !errors.As(err, &serr) || serr.Code != ErrCodeJoinRoomRejected {
		t.Fatalf("stranger join err = %v, want rejected", err)
	}

	// 名单内的玩家正常入座
	c3 := newTestClient(t, b, "friend")
	if err := c3.Connect(ctx); err != nil {
		t.Fatalf("Connect friend: %v", err)
	}
	room, err := c3.JoinRoom(ctx, "invite-only", nil)
	if err != nil {
		t.Fatalf("friend join: %v", err)
	}
	if n := len(room.Players()); n != 2 {
		t.Errorf("players = %d, want 2", n)
	}
}

func TestJoinOrCreateRoom(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, "u1")
	ctx := testCtx(t)

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	room, err := c.JoinOrCreateRoom(ctx, "auto-room", nil, nil)
	if err != nil {
		t.Fatalf("JoinOrCreateRoom: %v", err)
	}
	if room.Name() != "auto-room" {
		t.Errorf("room name = %q", room.Name())
	}
	if c.State() != StateInGame {
		t.Errorf("state = %v, want InGame", c.State())
	}
}

func TestSecondPlayerJoins(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "duo", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	joined := make(chan *Player, 1)
	c1.OnPlayerRoomJoined(func(p *Player) { joined <- p })

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	room2, err := c2.JoinRoom(ctx, "duo", nil)
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	// 加入方的镜像里有两个玩家，自己不是 master
	if n := len(room2.Players()); n != 2 {
		t.Errorf("joiner sees %d players, want 2", n)
	}
	p2 := c2.Player()
	if p2 == nil || p2.IsMaster() {
		t.Errorf("joiner should not be master")
	}

	// 先到方收到 members-joined 推送
	select {
	case p := <-joined:
		if p.UserID() != "u2" || p.IsLocal() {
			t.Errorf("joined player = %s local=%v", p.UserID(), p.IsLocal())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no player-joined event")
	}
	waitFor(t, "creator mirror update", func() bool {
		return len(c1.Room().Players()) == 2
	})
}

func TestLeaveRoomReturnsToLobby(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, "u1")
	ctx := testCtx(t)

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := c.CreateRoom(ctx, "transient", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := c.LeaveRoom(ctx); err != nil {
		t.Fatalf("LeaveRoom: %v", err)
	}
	if got := c.State(); got != StateInLobby {
		t.Errorf("state = %v, want InLobby", got)
	}
	if c.Room() != nil {
		t.Errorf("room mirror survived leave")
	}
	// 回到大厅后可以再进房
	if _, err := c.JoinRoom(ctx, "transient", nil); err != nil {
		t.Errorf("rejoin after leave: %v", err)
	}
}

func TestRoomToggles(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "toggles", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	if _, err := c2.JoinRoom(ctx, "toggles", nil); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	openEvents := make(chan bool, 4)
	c2.OnRoomOpenChanged(func(open bool) { openEvents <- open })

	confirmed, err := c1.SetRoomOpen(ctx, false)
	if err != nil {
		t.Fatalf("SetRoomOpen: %v", err)
	}
	if confirmed {
		t.Errorf("confirmed = true, want false")
	}
	if c1.Room().Open() {
		t.Errorf("caller mirror not updated")
	}

	// 对端恰好收到一次通知
	select {
	case open := <-openEvents:
		if open {
			t.Errorf("event open = true, want false")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no open-changed event")
	}
	select {
	case <-openEvents:
		t.Fatalf("duplicate open-changed event")
	case <-time.After(100 * time.Millisecond):
	}
	waitFor(t, "joiner mirror update", func() bool {
		return !c2.Room().Open()
	})

	// 关房后第三方无法加入
	c3 := newTestClient(t, b, "u3")
	if err := c3.Connect(ctx); err != nil {
		t.Fatalf("Connect c3: %v", err)
	}
	_, err = c3.JoinRoom(ctx, "toggles", nil)
	var serr *ServerError
	if !errors.As(err, &serr) || serr.Code != ErrCodeJoinRoomRejected {
		t.Fatalf("join closed room err = %v, want rejected", err)
	}
}

func TestRoomPropertiesMerge(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	room, err := c1.CreateRoom(ctx, "props", &RoomOptions{
		CustomRoomProperties: map[string]interface{}{"map": "forest", "mode": "ffa"},
	}, nil)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if got := room.CustomProperties()["map"]; got != "forest" {
		t.Fatalf("initial props = %v", room.CustomProperties())
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	if _, err := c2.JoinRoom(ctx, "props", nil); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	changes := make(chan PropertiesChangedEvent, 1)
	c2.OnRoomPropertiesChanged(func(ev PropertiesChangedEvent) { changes <- ev })

	// 变更按键合并，未提及的键保留
	if err := c1.SetRoomCustomProperties(ctx, map[string]interface{}{"map": "desert"}, nil); err != nil {
		t.Fatalf("SetRoomCustomProperties: %v", err)
	}
	if got := c1.Room().CustomProperties()["map"]; got != "desert" {
		t.Errorf("caller mirror not merged: %v", c1.Room().CustomProperties())
	}
	if got := c1.Room().CustomProperties()["mode"]; got != "ffa" {
		t.Errorf("untouched key lost: %v", c1.Room().CustomProperties())
	}

	select {
	case ev := <-changes:
		if ev.Changed["map"] != "desert" {
			t.Errorf("changed set = %v", ev.Changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no properties-changed event")
	}
	waitFor(t, "joiner merge", func() bool {
		return c2.Room().CustomProperties()["map"] == "desert"
	})
}

func TestPlayerProperties(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "pprops", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	if _, err := c2.JoinRoom(ctx, "pprops", nil); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	changes := make(chan PlayerPropertiesChangedEvent, 1)
	c1.OnPlayerPropertiesChanged(func(ev PlayerPropertiesChangedEvent) { changes <- ev })

	// actorID 0 表示本地玩家
	if err := c2.SetPlayerCustomProperties(ctx, 0, map[string]interface{}{"ready": true}, nil); err != nil {
		t.Fatalf("SetPlayerCustomProperties: %v", err)
	}
	if ready, _ := c2.Player().CustomProperties()["ready"].(bool); !ready {
		t.Errorf("own mirror not merged: %v", c2.Player().CustomProperties())
	}

	select {
	case ev := <-changes:
		if ev.Player.UserID() != "u2" {
			t.Errorf("changed player = %s", ev.Player.UserID())
		}
		if ready, _ := ev.Changed["ready"].(bool); !ready {
			t.Errorf("changed set = %v", ev.Changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no player-properties event")
	}
}

func TestCustomEvents(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "arena", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	if _, err := c2.JoinRoom(ctx, "arena", nil); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	got := make(chan CustomEvent, 1)
	c2.OnCustomEvent(func(ev CustomEvent) { got <- ev })

	if err := c1.SendEvent(ctx, "attack", map[string]interface{}{"target": "u2", "dmg": 12.0}, nil); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}

	select {
	case ev := <-got:
		if ev.EventID != "attack" || ev.SenderActorID != 1 {
			t.Errorf("event = %+v", ev)
		}
		if ev.Data["dmg"] != 12.0 {
			t.Errorf("data = %v", ev.Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no custom event")
	}
}

func TestMasterSwitch(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "throne", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	if _, err := c2.JoinRoom(ctx, "throne", nil); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	switched := make(chan *Player, 1)
	c2.OnMasterSwitched(func(p *Player) { switched <- p })

	p2 := c2.Player()
	if err := c1.SetMaster(ctx, p2.ActorID()); err != nil {
		t.Fatalf("SetMaster: %v", err)
	}
	if got := c1.Room().MasterActorID(); got != p2.ActorID() {
		t.Errorf("caller master = %d, want %d", got, p2.ActorID())
	}

	select {
	case p := <-switched:
		if p == nil || !p.IsLocal() {
			t.Errorf("new master = %v, want local player", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no master-switched event")
	}
}

func TestKickReturnsVictimToLobby(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "strict", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	if _, err := c2.JoinRoom(ctx, "strict", nil); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	kicked := make(chan KickedEvent, 1)
	c2.OnKicked(func(ev KickedEvent) { kicked <- ev })

	victim := c2.Player().ActorID()
	if err := c1.KickPlayer(ctx, victim, 42, "misconduct"); err != nil {
		t.Fatalf("KickPlayer: %v", err)
	}

	select {
	case ev := <-kicked:
		if ev.Code != 42 || ev.Reason != "misconduct" {
			t.Errorf("kicked event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no kicked event")
	}
	// 被踢方自动回到大厅
	waitFor(t, "victim back in lobby", func() bool {
		return c2.State() == StateInLobby
	})
	if c2.Room() != nil {
		t.Errorf("victim room mirror survived kick")
	}
	// 踢人方镜像里少一人
	waitFor(t, "kicker mirror update", func() bool {
		return len(c1.Room().Players()) == 1
	})
}

func TestRoomListPush(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "listed", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}

	lists := make(chan []LobbyRoom, 1)
	c2.OnRoomListUpdated(func(rooms []LobbyRoom) { lists <- rooms })

	if err := c2.JoinLobby(ctx); err != nil {
		t.Fatalf("JoinLobby: %v", err)
	}

	select {
	case rooms := <-lists:
		found := false
		for _, r := range rooms {
			if r.RoomName == "listed" {
				found = true
				if r.PlayerCount != 1 {
					t.Errorf("player count = %d", r.PlayerCount)
				}
			}
		}
		if !found {
			t.Errorf("room list = %v", rooms)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no room list push")
	}
	if got := c2.FetchLobbyRooms(); len(got) == 0 {
		t.Errorf("FetchLobbyRooms snapshot empty")
	}
}

func TestJoinRandomRoom(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "only-one", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	room, err := c2.JoinRandomRoom(ctx, nil, nil)
	if err != nil {
		t.Fatalf("JoinRandomRoom: %v", err)
	}
	if room.Name() != "only-one" {
		t.Errorf("random room = %q", room.Name())
	}
}

func TestMatchRandomDoesNotJoin(t *testing.T) {
	b := newFakeBackend(t)
	ctx := testCtx(t)

	c1 := newTestClient(t, b, "u1")
	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("Connect c1: %v", err)
	}
	if _, err := c1.CreateRoom(ctx, "observable", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c2 := newTestClient(t, b, "u2")
	if err := c2.Connect(ctx); err != nil {
		t.Fatalf("Connect c2: %v", err)
	}
	match, err := c2.MatchRandom(ctx, nil, nil)
	if err != nil {
		t.Fatalf("MatchRandom: %v", err)
	}
	if match.RoomName != "observable" {
		t.Errorf("match = %q", match.RoomName)
	}
	if c2.State() != StateInLobby {
		t.Errorf("state = %v, want InLobby after match query", c2.State())
	}
}

func TestDisconnectResetsState(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, "u1")
	ctx := testCtx(t)

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := c.CreateRoom(ctx, "ephemeral", nil, nil); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c.Disconnect()
	if got := c.State(); got != StateInit {
		t.Errorf("state = %v, want Init", got)
	}
	if c.Room() != nil {
		t.Errorf("room mirror survived disconnect")
	}

	// 可以重新连接
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if got := c.State(); got != StateInLobby {
		t.Errorf("state = %v, want InLobby", got)
	}
}

func TestCloseRejectsFurtherOps(t *testing.T) {
	b := newFakeBackend(t)
	c := newTestClient(t, b, "u1")

	c.Close()
	if err := c.Connect(testCtx(t)); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("Connect after Close: err = %v, want ErrClientClosed", err)
	}
}
