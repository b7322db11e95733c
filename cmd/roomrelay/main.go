// Package main 提供 roomrelay：以普通玩家身份驻留在一个房间，
// 把房间内的自定义事件和状态变化转发到 Kafka，供后端消费。
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	play "github.com/qiminjie89/playgo"
	"github.com/qiminjie89/playgo/pkg/config"
	"github.com/qiminjie89/playgo/pkg/kafka"
	"github.com/qiminjie89/playgo/pkg/logger"
	"github.com/qiminjie89/playgo/pkg/metrics"
)

// relayEvent 写入 Kafka 的事件记录
type relayEvent struct {
	Type    string                 `json:"type"`
	Room    string                 `json:"room"`
	Ts      int64                  `json:"ts"`
	ActorID int                    `json:"actorId,omitempty"`
	UserID  string                 `json:"userId,omitempty"`
	EventID string                 `json:"eventId,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

const (
	connectTimeout   = 30 * time.Second
	produceTimeout   = 10 * time.Second
	reconnectBackoff = 5 * time.Second
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "configs/roomrelay.yaml", "config file path")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadRelayConfig(*configPath)
	if err != nil {
		panic("load config failed: " + err.Error())
	}

	// 初始化日志
	if err := logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}); err != nil {
		panic("init logger failed: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting roomrelay",
		zap.String("config", *configPath),
		zap.String("room", cfg.Room.Name),
	)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	producer := kafka.NewProducer(&kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	})
	defer producer.Close()

	userID := cfg.Session.UserID
	if userID == "" {
		userID = "relay-" + uuid.NewString()
	}
	client, err := play.NewClient(play.Config{
		AppID:          cfg.Session.AppID,
		AppKey:         cfg.Session.AppKey,
		UserID:         userID,
		GameVersion:    cfg.Session.GameVersion,
		AppRouterURL:   cfg.Session.AppRouterURL,
		LobbyRouterURL: cfg.Session.LobbyRouterURL,
		Insecure:       cfg.Session.Insecure,
	})
	if err != nil {
		logger.Error("create client failed", zap.Error(err))
		os.Exit(1)
	}
	defer client.Close()

	relay := &relay{cfg: cfg, client: client, producer: producer}
	relay.subscribe()

	// 断线后自动重连重进房间
	reconnect := make(chan struct{}, 1)
	client.OnDisconnected(func() {
		select {
		case reconnect <- struct{}{}:
		default:
		}
	})

	if err := relay.enterRoom(); err != nil {
		logger.Error("enter room failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("relay in room", zap.String("room", cfg.Room.Name), zap.String("userId", userID))

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			return
		case <-reconnect:
			logger.Warn("session lost, reconnecting", zap.Duration("backoff", reconnectBackoff))
			time.Sleep(reconnectBackoff)
			if err := relay.enterRoom(); err != nil {
				logger.Error("reconnect failed", zap.Error(err))
				select {
				case reconnect <- struct{}{}:
				default:
				}
			}
		}
	}
}

type relay struct {
	cfg      *config.RelayConfig
	client   *play.Client
	producer *kafka.Producer
}

// enterRoom 建立会话并进入（必要时创建）目标房间
func (r *relay) enterRoom() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := r.client.Connect(ctx); err != nil {
		return err
	}
	// relay 自身不出现在大厅列表里也没关系，房间保持可见
	_, err := r.client.JoinOrCreateRoom(ctx, r.cfg.Room.Name, &play.RoomOptions{
		MaxPlayerCount:                 r.cfg.Room.MaxPlayerCount,
		CustomRoomPropertyKeysForLobby: r.cfg.Room.LobbyAttrKeys,
	}, nil)
	return err
}

func (r *relay) subscribe() {
	roomName := r.cfg.Room.Name

	r.client.OnCustomEvent(func(ev play.CustomEvent) {
		r.produce(relayEvent{
			Type:    "custom_event",
			Room:    roomName,
			ActorID: ev.SenderActorID,
			EventID: ev.EventID,
			Data:    ev.Data,
		})
	})
	r.client.OnPlayerRoomJoined(func(p *play.Player) {
		r.produce(relayEvent{
			Type:    "player_joined",
			Room:    roomName,
			ActorID: p.ActorID(),
			UserID:  p.UserID(),
		})
	})
	r.client.OnPlayerRoomLeft(func(p *play.Player) {
		r.produce(relayEvent{
			Type:    "player_left",
			Room:    roomName,
			ActorID: p.ActorID(),
			UserID:  p.UserID(),
		})
	})
	r.client.OnPlayerActivityChanged(func(p *play.Player) {
		typ := "player_offline"
		if p.IsActive() {
			typ = "player_online"
		}
		r.produce(relayEvent{
			Type:    typ,
			Room:    roomName,
			ActorID: p.ActorID(),
			UserID:  p.UserID(),
		})
	})
	r.client.OnMasterSwitched(func(p *play.Player) {
		ev := relayEvent{Type: "master_changed", Room: roomName, ActorID: -1}
		if p != nil {
			ev.ActorID = p.ActorID()
			ev.UserID = p.UserID()
		}
		r.produce(ev)
	})
	r.client.OnRoomPropertiesChanged(func(ev play.PropertiesChangedEvent) {
		r.produce(relayEvent{
			Type: "room_properties",
			Room: roomName,
			Data: ev.Changed,
		})
	})
	r.client.OnPlayerPropertiesChanged(func(ev play.PlayerPropertiesChangedEvent) {
		r.produce(relayEvent{
			Type:    "player_properties",
			Room:    roomName,
			ActorID: ev.Player.ActorID(),
			UserID:  ev.Player.UserID(),
			Data:    ev.Changed,
		})
	})
	r.client.OnKicked(func(ev play.KickedEvent) {
		r.produce(relayEvent{
			Type: "relay_kicked",
			Room: roomName,
			Data: map[string]interface{}{"code": ev.Code, "reason": ev.Reason},
		})
	})
}

// produce 事件回调在会话调度协程上触发，写 Kafka 放到独立协程
func (r *relay) produce(ev relayEvent) {
	ev.Ts = time.Now().UnixMilli()
	value, err := json.Marshal(ev)
	if err != nil {
		logger.Error("marshal relay event failed", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), produceTimeout)
		defer cancel()
		if err := r.producer.Send(ctx, []byte(ev.Room), value); err != nil {
			logger.Error("produce relay event failed",
				zap.String("type", ev.Type), zap.Error(err))
		}
	}()
}
