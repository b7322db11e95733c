// Package router 负责解析、缓存后端接入地址。
// 两级结构：AppRouter 返回大厅路由地址，LobbyRouter 返回大厅接入地址。
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qiminjie89/playgo/pkg/logger"
	"github.com/qiminjie89/playgo/pkg/metrics"
)

// DefaultAppRouterURL 默认的顶级路由地址
const DefaultAppRouterURL = "https://app-router.playgo.io/2/route"

// lobbyRouterPath 大厅路由的固定路径模板
const lobbyRouterPath = "https://%s/1/multiplayer/router/router"

// ErrBackoff 路由在退避窗口内，调用方稍后可重试
var ErrBackoff = errors.New("router unavailable: in backoff window")

var httpClient = &http.Client{Timeout: 10 * time.Second}

// endpoint 一次成功拉取的缓存结果
type endpoint struct {
	primary     string
	secondary   string
	validUntil  time.Time
	nextRetryAt time.Time
	failCount   int
}

// cached 返回缓存是否仍然有效
func (e *endpoint) cached(now time.Time) bool {
	return now.Before(e.validUntil)
}

// backingOff 返回是否处于失败退避窗口
func (e *endpoint) backingOff(now time.Time) bool {
	return now.Before(e.nextRetryAt)
}

// onSuccess 记录成功拉取，重建缓存
func (e *endpoint) onSuccess(primary, secondary string, ttl int, now time.Time) {
	e.primary = primary
	e.secondary = secondary
	e.failCount = 0
	e.nextRetryAt = time.Time{}
	e.validUntil = now.Add(time.Duration(ttl) * time.Second)
}

// onFailure 记录失败，退避时长随连续失败次数线性增长
func (e *endpoint) onFailure(now time.Time) {
	e.failCount++
	e.nextRetryAt = now.Add(time.Duration(2*e.failCount) * time.Second)
}

// server 返回可用地址，primary 缺失时回落到 secondary
func (e *endpoint) server() string {
	if e.primary != "" {
		return e.primary
	}
	return e.secondary
}

// AppRouter 顶级路由。解析出大厅路由服务器，
// 并拼接成 LobbyRouter 的请求地址。
type AppRouter struct {
	appID    string
	baseURL  string
	override string

	mu sync.Mutex
	ep endpoint
}

// AppRouterOptions AppRouter 构造参数
type AppRouterOptions struct {
	AppID   string
	BaseURL string
	// Override 直接指定大厅路由地址，跳过顶级路由查询。
	// 私有部署和测试环境使用。
	Override string
}

// NewAppRouter 创建顶级路由。BaseURL 为空时使用默认地址。
func NewAppRouter(opts AppRouterOptions) *AppRouter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultAppRouterURL
	}
	return &AppRouter{
		appID:    opts.AppID,
		baseURL:  baseURL,
		override: opts.Override,
	}
}

type appRouterResponse struct {
	MultiplayerRouterServer string `json:"multiplayer_router_server"`
	PlayServer              string `json:"play_server"`
	TTL                     int    `json:"ttl"`
}

// Resolve 返回大厅路由的请求地址
func (r *AppRouter) Resolve(ctx context.Context) (string, error) {
	if r.override != "" {
		return r.override, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.ep.cached(now) {
		metrics.RouterFetches.WithLabelValues("app", "cached").Inc()
		logger.Debug("app router from cache", zap.String("server", r.ep.server()))
		return fmt.Sprintf(lobbyRouterPath, r.ep.server()), nil
	}
	if r.ep.backingOff(now) {
		metrics.RouterFetches.WithLabelValues("app", "backoff").Inc()
		return "", ErrBackoff
	}

	start := time.Now()
	resp, err := fetchJSON(ctx, r.baseURL, url.Values{"appId": {r.appID}})
	metrics.RouterFetchDuration.WithLabelValues("app").Observe(time.Since(start).Seconds())
	if err != nil {
		r.ep.onFailure(now)
		metrics.RouterFetches.WithLabelValues("app", "error").Inc()
		return "", fmt.Errorf("app router fetch: %w", err)
	}

	var body appRouterResponse
	if err := json.Unmarshal(resp, &body); err != nil {
		r.ep.onFailure(now)
		metrics.RouterFetches.WithLabelValues("app", "error").Inc()
		return "", fmt.Errorf("app router response: %w", err)
	}
	if body.MultiplayerRouterServer == "" && body.PlayServer == "" {
		r.ep.onFailure(now)
		metrics.RouterFetches.WithLabelValues("app", "error").Inc()
		return "", errors.New("app router response: no server")
	}

	r.ep.onSuccess(body.MultiplayerRouterServer, body.PlayServer, body.TTL, now)
	metrics.RouterFetches.WithLabelValues("app", "ok").Inc()
	logger.Debug("app router resolved",
		zap.String("server", r.ep.server()),
		zap.Int("ttl", body.TTL),
	)
	return fmt.Sprintf(lobbyRouterPath, r.ep.server()), nil
}

// LobbyRouter 大厅路由。解析出大厅的 websocket 接入地址。
type LobbyRouter struct {
	appID      string
	sdkVersion string
	protocol   string
	feature    string
	insecure   bool

	mu sync.Mutex
	ep endpoint
}

// LobbyRouterOptions LobbyRouter 构造参数
type LobbyRouterOptions struct {
	AppID           string
	SDKVersion      string
	ProtocolVersion string
	Feature         string
	Insecure        bool
}

// NewLobbyRouter 创建大厅路由
func NewLobbyRouter(opts LobbyRouterOptions) *LobbyRouter {
	return &LobbyRouter{
		appID:      opts.AppID,
		sdkVersion: opts.SDKVersion,
		protocol:   opts.ProtocolVersion,
		feature:    opts.Feature,
		insecure:   opts.Insecure,
	}
}

type lobbyRouterResponse struct {
	Server    string `json:"server"`
	Secondary string `json:"secondary"`
	TTL       int    `json:"ttl"`
}

// Resolve 返回大厅接入地址。routerURL 来自 AppRouter。
func (r *LobbyRouter) Resolve(ctx context.Context, routerURL string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.ep.cached(now) {
		metrics.RouterFetches.WithLabelValues("lobby", "cached").Inc()
		return r.ep.server(), nil
	}
	if r.ep.backingOff(now) {
		metrics.RouterFetches.WithLabelValues("lobby", "backoff").Inc()
		return "", ErrBackoff
	}

	query := url.Values{
		"appId":           {r.appID},
		"sdkVersion":      {r.sdkVersion},
		"protocolVersion": {r.protocol},
	}
	if r.feature != "" {
		query.Set("feature", r.feature)
	}
	if r.insecure {
		query.Set("insecure", "true")
	}

	start := time.Now()
	resp, err := fetchJSON(ctx, routerURL, query)
	metrics.RouterFetchDuration.WithLabelValues("lobby").Observe(time.Since(start).Seconds())
	if err != nil {
		r.ep.onFailure(now)
		metrics.RouterFetches.WithLabelValues("lobby", "error").Inc()
		return "", fmt.Errorf("lobby router fetch: %w", err)
	}

	var body lobbyRouterResponse
	if err := json.Unmarshal(resp, &body); err != nil {
		r.ep.onFailure(now)
		metrics.RouterFetches.WithLabelValues("lobby", "error").Inc()
		return "", fmt.Errorf("lobby router response: %w", err)
	}
	if body.Server == "" && body.Secondary == "" {
		r.ep.onFailure(now)
		metrics.RouterFetches.WithLabelValues("lobby", "error").Inc()
		return "", errors.New("lobby router response: no server")
	}

	r.ep.onSuccess(body.Server, body.Secondary, body.TTL, now)
	metrics.RouterFetches.WithLabelValues("lobby", "ok").Inc()
	logger.Debug("lobby router resolved",
		zap.String("server", r.ep.server()),
		zap.Int("ttl", body.TTL),
	)
	return r.ep.server(), nil
}

// fetchJSON 发起路由查询请求
func fetchJSON(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
