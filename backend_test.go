package play

// 进程内假后端：一个 httptest 服务同时扮演大厅路由、
// 大厅服务器和房间服务器，说 JSON 文本帧协议。

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

type frame map[string]interface{}

type backendMember struct {
	actorID int
	pid     string
	attr    map[string]interface{}
	send    func(frame)
}

type backendRoom struct {
	cid        string
	open       bool
	visible    bool
	master     int
	nextActor  int
	maxMembers int
	expect     []string
	attr       map[string]interface{}
	members    []*backendMember
}

func (r *backendRoom) payload() frame {
	members := make([]frame, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, frame{"actorId": m.actorID, "pid": m.pid, "attr": m.attr})
	}
	return frame{
		"cid":           r.cid,
		"open":          r.open,
		"visible":       r.visible,
		"masterActorId": r.master,
		"attr":          r.attr,
		"members":       members,
	}
}

func (r *backendRoom) member(actorID int) *backendMember {
	for _, m := range r.members {
		if m.actorID == actorID {
			return m
		}
	}
	return nil
}

func (r *backendRoom) memberByPid(pid string) *backendMember {
	for _, m := range r.members {
		if m.pid == pid {
			return m
		}
	}
	return nil
}

// seatAvailable 期望成员名单里尚未入房的用户占保留座位
func (r *backendRoom) seatAvailable(pid string) bool {
	if r.maxMembers <= 0 {
		return true
	}
	reserved := 0
	for _, e := range r.expect {
		if e != pid && r.memberByPid(e) == nil {
			reserved++
		}
	}
	return len(r.members)+reserved < r.maxMembers
}

func (r *backendRoom) removeMember(actorID int) {
	for i, m := range r.members {
		if m.actorID == actorID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

// broadcast 推送给房间内除 exclude 外的所有成员
func (r *backendRoom) broadcast(exclude int, f frame) {
	for _, m := range r.members {
		if m.actorID != exclude {
			m.send(f)
		}
	}
}

type fakeBackend struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	rooms    map[string]*backendRoom
	roomSeq  int
	sessions map[string]*wsSession // 每个 peerId 只允许一条大厅会话
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{
		t:        t,
		rooms:    make(map[string]*backendRoom),
		sessions: make(map[string]*wsSession),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/router", b.handleRouter)
	mux.HandleFunc("/lobby", b.handleLobby)
	mux.HandleFunc("/game", b.handleGame)
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) wsURL(path string) string {
	return "ws://" + strings.TrimPrefix(b.srv.URL, "http://") + path
}

func (b *fakeBackend) handleRouter(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(frame{"server": b.wsURL("/lobby"), "ttl": 600})
}

// wsSession 一条已升级的 websocket 连接
type wsSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *wsSession) send(f frame) {
	data, _ := json.Marshal(f)
	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()
}

func (s *wsSession) reply(req frame, resp frame) {
	if i, ok := req["i"]; ok {
		resp["i"] = i
	}
	s.send(resp)
}

func (s *wsSession) replyError(req frame, code int, detail string) {
	s.reply(req, frame{"cmd": "error", "reasonCode": code, "detail": detail})
}

func (b *fakeBackend) upgrade(w http.ResponseWriter, r *http.Request) *wsSession {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil
	}
	return &wsSession{conn: conn}
}

// handleLobby 大厅层：握手、大厅订阅和房间协商
func (b *fakeBackend) handleLobby(w http.ResponseWriter, r *http.Request) {
	s := b.upgrade(w, r)
	if s == nil {
		return
	}
	defer s.conn.Close()

	var pid string
	defer func() {
		b.mu.Lock()
		if pid != "" && b.sessions[pid] == s {
			delete(b.sessions, pid)
		}
		b.mu.Unlock()
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var req frame
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		cmd, _ := req["cmd"].(string)
		op, _ := req["op"].(string)

		switch {
		case cmd == "":
			s.send(frame{}) // 心跳回显
		case cmd == "session" && op == "open":
			pid, _ = req["peerId"].(string)
			b.mu.Lock()
			if prev, ok := b.sessions[pid]; ok && prev != s {
				// 重复登录：先到的会话收到错误推送后被断开
				prev.send(frame{"cmd": "error", "reasonCode": 4102, "detail": "duplicate login"})
				prev.conn.Close()
			}
			b.sessions[pid] = s
			b.mu.Unlock()
			s.reply(req, frame{"cmd": "session", "op": "opened"})
		case cmd == "lobby" && op == "add":
			s.reply(req, frame{"cmd": "lobby", "op": "added"})
			b.pushRoomList(s)
		case cmd == "conv" && op == "start":
			cid := b.claimRoomName(req)
			s.reply(req, frame{
				"cmd": "conv", "op": "started",
				"cid": cid, "addr": b.wsURL("/game"), "secureAddr": b.wsURL("/game"),
			})
		case cmd == "conv" && op == "add":
			cid, _ := req["cid"].(string)
			create, _ := req["createOnNotFound"].(bool)
			b.mu.Lock()
			_, exists := b.rooms[cid]
			b.mu.Unlock()
			switch {
			case exists:
				s.reply(req, frame{
					"cmd": "conv", "op": "added",
					"cid": cid, "addr": b.wsURL("/game"), "secureAddr": b.wsURL("/game"),
				})
			case create:
				s.reply(req, frame{
					"cmd": "conv", "op": "started",
					"cid": cid, "addr": b.wsURL("/game"), "secureAddr": b.wsURL("/game"),
				})
			default:
				s.replyError(req, 4301, "room not found")
			}
		case cmd == "conv" && (op == "add-random" || op == "match-random"):
			room := b.pickRoom()
			if room == nil {
				s.replyError(req, 4301, "no room available")
				break
			}
			if op == "add-random" {
				s.reply(req, frame{
					"cmd": "conv", "op": "added",
					"cid": room.cid, "addr": b.wsURL("/game"), "secureAddr": b.wsURL("/game"),
				})
			} else {
				s.reply(req, frame{
					"cmd": "conv", "op": "matched",
					"cid": room.cid, "maxMembers": 8, "open": room.open, "visible": room.visible,
				})
			}
		default:
			s.replyError(req, 4000, "unknown command")
		}
	}
}

func (b *fakeBackend) pushRoomList(s *wsSession) {
	b.mu.Lock()
	list := make([]frame, 0, len(b.rooms))
	for _, room := range b.rooms {
		if room.visible {
			list = append(list, frame{
				"cid": room.cid, "open": room.open, "visible": room.visible,
				"memberCount": len(room.members), "attr": room.attr,
			})
		}
	}
	b.mu.Unlock()
	s.send(frame{"cmd": "lobby", "op": "room-list", "list": list})
}

func (b *fakeBackend) claimRoomName(req frame) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	cid, _ := req["cid"].(string)
	if cid == "" {
		b.roomSeq++
		cid = fmt.Sprintf("room-%d", b.roomSeq)
	}
	return cid
}

func (b *fakeBackend) pickRoom() *backendRoom {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, room := range b.rooms {
		if room.open && room.visible {
			return room
		}
	}
	return nil
}

// handleGame 房间层：成员管理、属性同步和事件转发
func (b *fakeBackend) handleGame(w http.ResponseWriter, r *http.Request) {
	s := b.upgrade(w, r)
	if s == nil {
		return
	}
	defer s.conn.Close()

	var pid string
	var room *backendRoom
	var actorID int

	defer func() {
		// 掉线即离房，座位不保留
		b.mu.Lock()
		if room != nil && room.member(actorID) != nil {
			room.removeMember(actorID)
			room.broadcast(actorID, frame{"cmd": "conv", "op": "members-left", "actorId": actorID})
		}
		b.mu.Unlock()
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var req frame
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		cmd, _ := req["cmd"].(string)
		op, _ := req["op"].(string)

		b.mu.Lock()
		switch {
		case cmd == "":
			s.send(frame{})
		case cmd == "session" && op == "open":
			pid, _ = req["peerId"].(string)
			s.reply(req, frame{"cmd": "session", "op": "opened"})
		case cmd == "conv" && op == "start":
			room, actorID = b.enterRoom(s, req, pid, true)
			if room != nil {
				s.reply(req, frame{"cmd": "conv", "op": "started"}.merge(room.payload()))
			}
		case cmd == "conv" && op == "add":
			room, actorID = b.enterRoom(s, req, pid, false)
			if room != nil {
				resp := frame{"cmd": "conv", "op": "added"}.merge(room.payload())
				s.reply(req, resp)
				room.broadcast(actorID, frame{
					"cmd": "conv", "op": "members-joined",
					"member": frame{"actorId": actorID, "pid": pid, "attr": frame{}},
				})
			}
		case cmd == "conv" && op == "remove":
			if room != nil {
				room.removeMember(actorID)
				room.broadcast(actorID, frame{"cmd": "conv", "op": "members-left", "actorId": actorID})
				room = nil
			}
			s.reply(req, frame{"cmd": "conv", "op": "removed"})
		case cmd == "conv" && (op == "open" || op == "visible"):
			toggle, _ := req["toggle"].(bool)
			if room != nil {
				notify := "opened-notify"
				if op == "visible" {
					room.visible = toggle
					notify = "visible-notify"
				} else {
					room.open = toggle
				}
				room.broadcast(actorID, frame{"cmd": "conv", "op": notify, "toggle": toggle})
			}
			s.reply(req, frame{"cmd": "conv", "op": op, "toggle": toggle})
		case cmd == "conv" && op == "update":
			attr, _ := req["attr"].(map[string]interface{})
			if room != nil {
				for k, v := range attr {
					room.attr[k] = v
				}
				room.broadcast(actorID, frame{"cmd": "conv", "op": "updated-notify", "attr": attr})
			}
			s.reply(req, frame{"cmd": "conv", "op": "updated", "attr": attr})
		case cmd == "conv" && op == "update-player-prop":
			target := actorID
			if v, ok := req["targetActorId"].(float64); ok && v != 0 {
				target = int(v)
			}
			attr, _ := req["attr"].(map[string]interface{})
			if room != nil {
				if m := room.member(target); m != nil {
					for k, v := range attr {
						m.attr[k] = v
					}
				}
				room.broadcast(actorID, frame{
					"cmd": "conv", "op": "player-props", "actorId": target, "attr": attr,
				})
			}
			s.reply(req, frame{"cmd": "conv", "op": "player-props", "actorId": target, "attr": attr})
		case cmd == "conv" && op == "update-master-client":
			newMaster := 0
			if v, ok := req["masterActorId"].(float64); ok {
				newMaster = int(v)
			}
			if room != nil {
				room.master = newMaster
				room.broadcast(actorID, frame{
					"cmd": "conv", "op": "master-client-changed", "masterActorId": newMaster,
				})
			}
			s.reply(req, frame{"cmd": "conv", "op": "master-client-changed", "masterActorId": newMaster})
		case cmd == "conv" && op == "kick":
			target := 0
			if v, ok := req["targetActorId"].(float64); ok {
				target = int(v)
			}
			if room != nil {
				if m := room.member(target); m != nil {
					code, _ := req["appCode"].(float64)
					msg, _ := req["appMsg"].(string)
					m.send(frame{"cmd": "conv", "op": "kicked-notice", "appCode": int(code), "appMsg": msg})
					room.removeMember(target)
					room.broadcast(actorID, frame{"cmd": "conv", "op": "members-left", "actorId": target})
				}
			}
			s.reply(req, frame{"cmd": "conv", "op": "kicked", "targetActorId": target})
		case cmd == "direct":
			if room != nil {
				room.broadcast(actorID, frame{
					"cmd": "direct", "eventId": req["eventId"], "msg": req["msg"], "fromActorId": actorID,
				})
			}
			s.reply(req, frame{"cmd": "direct"})
		default:
			s.replyError(req, 4000, "unknown command")
		}
		b.mu.Unlock()
	}
}

// enterRoom 持 b.mu 调用
func (b *fakeBackend) enterRoom(s *wsSession, req frame, pid string, create bool) (*backendRoom, int) {
	cid, _ := req["cid"].(string)
	room, exists := b.rooms[cid]
	if create && exists {
		s.replyError(req, 4303, "room name taken")
		return nil, 0
	}
	if !exists {
		if createOn, _ := req["createOnNotFound"].(bool); !create && !createOn {
			s.replyError(req, 4301, "room not found")
			return nil, 0
		}
		room = &backendRoom{cid: cid, open: true, visible: true, attr: frame{}}
		if attr, ok := req["attr"].(map[string]interface{}); ok {
			for k, v := range attr {
				room.attr[k] = v
			}
		}
		if v, ok := req["maxMembers"].(float64); ok {
			room.maxMembers = int(v)
		}
		if list, ok := req["expectMembers"].([]interface{}); ok {
			for _, e := range list {
				if name, ok := e.(string); ok {
					room.expect = append(room.expect, name)
				}
			}
		}
		b.rooms[cid] = room
	} else if !create {
		if !room.open {
			s.replyError(req, 4302, "room closed")
			return nil, 0
		}
		if !room.seatAvailable(pid) {
			s.replyError(req, 4302, "join rejected")
			return nil, 0
		}
	}
	room.nextActor++
	actorID := room.nextActor
	room.members = append(room.members, &backendMember{
		actorID: actorID, pid: pid, attr: frame{}, send: s.send,
	})
	if len(room.members) == 1 {
		room.master = actorID
	}
	return room, actorID
}

// merge 浅合并一个帧，返回自身
func (f frame) merge(other frame) frame {
	for k, v := range other {
		f[k] = v
	}
	return f
}
