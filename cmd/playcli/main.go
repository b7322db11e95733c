// Package main 提供交互式测试客户端
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	play "github.com/qiminjie89/playgo"
	"github.com/qiminjie89/playgo/pkg/logger"
)

// 配置
var (
	appID     = flag.String("app", "", "App ID")
	appKey    = flag.String("key", "", "App key for session token signing")
	userID    = flag.String("user", "", "User ID (random if empty)")
	gameVer   = flag.String("ver", "0.0.1", "Game version")
	routerURL = flag.String("router", "", "App router URL override")
	lobbyURL  = flag.String("lobby", "", "Lobby router URL (skips app router)")
	insecure  = flag.Bool("insecure", false, "Use non-TLS server address")
	timeout   = flag.Duration("timeout", 15*time.Second, "Per-operation timeout")
	logLevel  = flag.String("log", "warn", "SDK log level")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	if *appID == "" {
		log.Fatalf("-app is required")
	}
	uid := *userID
	if uid == "" {
		uid = "cli-" + uuid.NewString()[:8]
	}

	if err := logger.Init(logger.Config{Level: *logLevel, Format: "console", Output: "stdout"}); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logger.Sync()

	client, err := play.NewClient(play.Config{
		AppID:          *appID,
		AppKey:         *appKey,
		UserID:         uid,
		GameVersion:    *gameVer,
		AppRouterURL:   *routerURL,
		LobbyRouterURL: *lobbyURL,
		Insecure:       *insecure,
	})
	if err != nil {
		log.Fatalf("create client failed: %v", err)
	}
	defer client.Close()

	watchEvents(client)

	log.Printf("Client ready as %s. Type 'help' for commands.", uid)

	// 交互式命令循环
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}

		parts := strings.Fields(line)
		if runCommand(client, parts[0], parts[1:]) {
			return
		}
		fmt.Print("> ")
	}
}

// runCommand 返回 true 表示退出
func runCommand(client *play.Client, cmd string, args []string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch cmd {
	case "help":
		printHelp()

	case "connect":
		report(client.Connect(ctx))

	case "lobby":
		report(client.JoinLobby(ctx))

	case "rooms":
		for _, r := range client.FetchLobbyRooms() {
			log.Printf("  %s  players=%d/%d open=%v visible=%v",
				r.RoomName, r.PlayerCount, r.MaxPlayerCount, r.Open, r.Visible)
		}

	case "create":
		// create [room_name] [max_players]
		name := ""
		opts := &play.RoomOptions{}
		if len(args) > 0 {
			name = args[0]
		}
		if len(args) > 1 {
			opts.MaxPlayerCount, _ = strconv.Atoi(args[1])
		}
		room, err := client.CreateRoom(ctx, name, opts, nil)
		if err == nil {
			log.Printf("created room %s", room.Name())
		}
		report(err)

	case "join":
		// join <room_name>
		if len(args) < 1 {
			log.Printf("Usage: join <room_name>")
			break
		}
		_, err := client.JoinRoom(ctx, args[0], nil)
		report(err)

	case "joc":
		// joc <room_name>
		if len(args) < 1 {
			log.Printf("Usage: joc <room_name>")
			break
		}
		_, err := client.JoinOrCreateRoom(ctx, args[0], nil, nil)
		report(err)

	case "rejoin":
		if len(args) < 1 {
			log.Printf("Usage: rejoin <room_name>")
			break
		}
		_, err := client.RejoinRoom(ctx, args[0])
		report(err)

	case "joinrand":
		_, err := client.JoinRandomRoom(ctx, parseKVArgs(args), nil)
		report(err)

	case "match":
		r, err := client.MatchRandom(ctx, parseKVArgs(args), nil)
		if err == nil {
			log.Printf("matched room %s", r.RoomName)
		}
		report(err)

	case "leave":
		report(client.LeaveRoom(ctx))

	case "open", "visible":
		if len(args) < 1 {
			log.Printf("Usage: %s on|off", cmd)
			break
		}
		v := args[0] == "on"
		var err error
		if cmd == "open" {
			_, err = client.SetRoomOpen(ctx, v)
		} else {
			_, err = client.SetRoomVisible(ctx, v)
		}
		report(err)

	case "master":
		if len(args) < 1 {
			log.Printf("Usage: master <actor_id>")
			break
		}
		actor, _ := strconv.Atoi(args[0])
		report(client.SetMaster(ctx, actor))

	case "kick":
		// kick <actor_id> [code] [reason]
		if len(args) < 1 {
			log.Printf("Usage: kick <actor_id> [code] [reason]")
			break
		}
		actor, _ := strconv.Atoi(args[0])
		code := 0
		reason := ""
		if len(args) > 1 {
			code, _ = strconv.Atoi(args[1])
		}
		if len(args) > 2 {
			reason = strings.Join(args[2:], " ")
		}
		report(client.KickPlayer(ctx, actor, code, reason))

	case "send":
		// send <event_id> [k=v ...]
		if len(args) < 1 {
			log.Printf("Usage: send <event_id> [key=value ...]")
			break
		}
		report(client.SendEvent(ctx, args[0], parseKVArgs(args[1:]), nil))

	case "roomprops":
		report(client.SetRoomCustomProperties(ctx, parseKVArgs(args), nil))

	case "myprops":
		report(client.SetPlayerCustomProperties(ctx, 0, parseKVArgs(args), nil))

	case "status":
		log.Printf("state=%s", client.State())
		if room := client.Room(); room != nil {
			log.Printf("room=%s open=%v visible=%v master=%d",
				room.Name(), room.Open(), room.Visible(), room.MasterActorID())
			for _, p := range room.Players() {
				tag := ""
				if p.IsLocal() {
					tag = " (me)"
				}
				if !p.IsActive() {
					tag += " (offline)"
				}
				log.Printf("  #%d %s%s props=%v", p.ActorID(), p.UserID(), tag, p.CustomProperties())
			}
		}

	case "pause":
		client.PauseMessageQueue()

	case "resume":
		client.ResumeMessageQueue()

	case "disconnect":
		client.Disconnect()

	case "quit", "exit":
		log.Printf("Bye!")
		return true

	default:
		log.Printf("Unknown command: %s. Type 'help' for usage.", cmd)
	}
	return false
}

func watchEvents(client *play.Client) {
	client.OnRoomListUpdated(func(rooms []play.LobbyRoom) {
		log.Printf("EVENT room list: %d rooms", len(rooms))
	})
	client.OnPlayerRoomJoined(func(p *play.Player) {
		log.Printf("EVENT joined: #%d %s", p.ActorID(), p.UserID())
	})
	client.OnPlayerRoomLeft(func(p *play.Player) {
		log.Printf("EVENT left: #%d %s", p.ActorID(), p.UserID())
	})
	client.OnMasterSwitched(func(p *play.Player) {
		if p == nil {
			log.Printf("EVENT master: none")
		} else {
			log.Printf("EVENT master: #%d %s", p.ActorID(), p.UserID())
		}
	})
	client.OnRoomOpenChanged(func(open bool) {
		log.Printf("EVENT room open: %v", open)
	})
	client.OnRoomVisibleChanged(func(visible bool) {
		log.Printf("EVENT room visible: %v", visible)
	})
	client.OnRoomPropertiesChanged(func(ev play.PropertiesChangedEvent) {
		log.Printf("EVENT room props: %v", ev.Changed)
	})
	client.OnPlayerPropertiesChanged(func(ev play.PlayerPropertiesChangedEvent) {
		log.Printf("EVENT player props: #%d %v", ev.Player.ActorID(), ev.Changed)
	})
	client.OnPlayerActivityChanged(func(p *play.Player) {
		log.Printf("EVENT activity: #%d active=%v", p.ActorID(), p.IsActive())
	})
	client.OnCustomEvent(func(ev play.CustomEvent) {
		log.Printf("EVENT custom %q from #%d: %v", ev.EventID, ev.SenderActorID, ev.Data)
	})
	client.OnKicked(func(ev play.KickedEvent) {
		log.Printf("EVENT kicked: code=%d reason=%q", ev.Code, ev.Reason)
	})
	client.OnDisconnected(func() {
		log.Printf("EVENT disconnected")
	})
	client.OnError(func(ev play.ErrorEvent) {
		log.Printf("EVENT error: code=%d detail=%q", ev.Code, ev.Detail)
	})
}

// parseKVArgs 把 key=value 参数解析成属性表，数字值转为 float64
func parseKVArgs(args []string) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			out[arg] = true
			continue
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = n
		} else {
			out[k] = v
		}
	}
	return out
}

func report(err error) {
	if err != nil {
		log.Printf("ERROR: %v", err)
	} else {
		log.Printf("OK")
	}
}

func printHelp() {
	fmt.Println(`
Commands:
  connect                     - Connect and enter lobby tier
  lobby                       - Subscribe to lobby room list
  rooms                       - Print last room list snapshot
  create [name] [max]         - Create a room and enter it
  join <name>                 - Join a room by name
  joc <name>                  - Join a room, create if missing
  rejoin <name>               - Rejoin a room after disconnect
  joinrand [k=v ...]          - Join a random matching room
  match [k=v ...]             - Query random match without joining
  leave                       - Leave room, back to lobby
  open on|off                 - Toggle room open
  visible on|off              - Toggle room visibility
  master <actor_id>           - Transfer master
  kick <actor_id> [code] [msg]- Kick a player (master only)
  send <event_id> [k=v ...]   - Send custom event
  roomprops k=v ...           - Set room properties
  myprops k=v ...             - Set own player properties
  status                      - Print session and room state
  pause / resume              - Pause/resume push dispatch
  disconnect                  - Drop connections, back to Init
  quit                        - Exit

Examples:
  connect
  joc demo-room
  send 1001 x=3 y=5
  roomprops map=desert`)
}
