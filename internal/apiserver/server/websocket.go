package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"titlegen-admin/internal/generation"
	"titlegen-admin/internal/shared/cache"
	"titlegen-admin/internal/shared/eventbus"
	"titlegen-admin/internal/shared/model"
)

// upgrader WebSocket 升级器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS 由部署层控制
	},
}

// streamFrame 客户端请求帧
//
// action 取值：
//   - "stream": 发起一次流式生成
//   - "ping": 心跳探活
type streamFrame struct {
	Action      string                   `json:"action"`
	ProjectID   string                   `json:"project_id,omitempty"`
	UserInput   string                   `json:"user_input,omitempty"`
	ChatHistory []model.ConversationTurn `json:"chat_history,omitempty"`
	PromptCards []*model.PromptCard      `json:"prompt_cards,omitempty"`
}

// wsClient 一条 WebSocket 连接
//
// gorilla/websocket 不允许并发写，事件转发协程与 readPump 的
// 应答（pong/error）共用连接，写操作必须串行。
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// StreamDispatcher WebSocket 流式分发器
//
// 每条连接对应一个推送会话（sessionID），生成事件按会话分发：
//   - 连接建立时注册到 ConnectionRegistry（带 TTL）
//   - 客户端发送 stream 帧发起生成，事件经事件总线回流
//   - 事件按 Seq 保序投递；死连接惰性清理，不影响其他连接
//   - 投递失败永远不会使生成本身失败
type StreamDispatcher struct {
	engine   *generation.Engine
	events   eventbus.GenerationEventBus
	registry cache.ConnectionRegistry
	metrics  *Metrics

	mu      sync.RWMutex
	clients map[string]map[*wsClient]bool // sessionID -> 连接集合
}

// NewStreamDispatcher 创建流式分发器
//
// events / registry / metrics 可为 nil（降级为只接收帧不推送事件）。
func NewStreamDispatcher(engine *generation.Engine, events eventbus.GenerationEventBus,
	registry cache.ConnectionRegistry, metrics *Metrics) *StreamDispatcher {
	return &StreamDispatcher{
		engine:   engine,
		events:   events,
		registry: registry,
		metrics:  metrics,
		clients:  make(map[string]map[*wsClient]bool),
	}
}

// addClient 将连接加入会话
func (d *StreamDispatcher) addClient(sessionID string, conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clients[sessionID] == nil {
		d.clients[sessionID] = make(map[*wsClient]bool)
	}
	d.clients[sessionID][client] = true
	return client
}

// removeClient 将连接移出会话
func (d *StreamDispatcher) removeClient(sessionID string, client *wsClient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if conns, ok := d.clients[sessionID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(d.clients, sessionID)
		}
	}
}

// ClientCount 返回会话的活跃连接数
func (d *StreamDispatcher) ClientCount(sessionID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.clients[sessionID])
}

// Broadcast 向会话的所有连接广播一帧
//
// 写失败的连接视为已死：关闭并移除，同会话其他连接不受影响。
func (d *StreamDispatcher) Broadcast(sessionID string, payload interface{}) {
	d.mu.RLock()
	targets := make([]*wsClient, 0, len(d.clients[sessionID]))
	for c := range d.clients[sessionID] {
		targets = append(targets, c)
	}
	d.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			log.Printf("[WS] Broadcast to session %s failed, dropping connection: %v", sessionID, err)
			c.conn.Close()
			d.removeClient(sessionID, c)
		}
	}
}

// HandleWebSocket 处理 WebSocket 连接
//
// 路由: GET /ws/generate?session_id={id}
//
// session_id 可选：缺省时由服务端分配并通过 connected 帧告知。
// 连接建立后客户端发送 stream 帧发起生成：
//
//	{"action":"stream","project_id":"...","user_input":"...","chat_history":[...],"prompt_cards":[...]}
//
// 服务端按序推送 progress / stream_chunk / stream_complete / error 帧。
func (d *StreamDispatcher) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = generateID("sess")
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if d.metrics != nil {
		d.metrics.WSConnectionOpened()
	}
	client := d.addClient(sessionID, conn)

	defer func() {
		d.removeClient(sessionID, client)
		if d.registry != nil {
			d.registry.UnregisterConnection(context.Background(), sessionID)
		}
		if d.metrics != nil {
			d.metrics.WSConnectionClosed()
		}
		conn.Close()
		log.Printf("[WS] Session %s disconnected", sessionID)
	}()

	// 注册连接（带 TTL，防止悬挂记录堆积）
	if d.registry != nil {
		entry := &cache.ConnectionEntry{
			SessionID: sessionID,
			CreatedAt: time.Now(),
		}
		if err := d.registry.RegisterConnection(ctx, entry); err != nil {
			log.Printf("[WS] Failed to register connection %s: %v", sessionID, err)
		}
	}

	// 订阅会话事件流并转发
	if d.events != nil {
		ch, err := d.events.SubscribeGenerationEvents(ctx, sessionID)
		if err != nil {
			log.Printf("[WS] Subscribe failed for session %s: %v", sessionID, err)
			client.send(map[string]string{"type": "error", "message": "event subscription unavailable"})
		} else {
			go d.forwardEvents(sessionID, client, ch)
		}
	}

	client.send(map[string]string{"type": "connected", "session_id": sessionID})
	log.Printf("[WS] Session %s connected", sessionID)

	d.readPump(ctx, sessionID, client)
}

// forwardEvents 将事件总线上的会话事件按序转发到连接
//
// 事件通道本身按 Seq 有序，逐条写出即保序。
// 写失败说明连接已死：关闭连接让 readPump 退出，生成不受影响。
func (d *StreamDispatcher) forwardEvents(sessionID string, client *wsClient, ch <-chan *eventbus.GenerationEvent) {
	for ev := range ch {
		if err := client.send(ev); err != nil {
			log.Printf("[WS] Deliver to session %s failed: %v", sessionID, err)
			client.conn.Close()
			return
		}
		if d.metrics != nil {
			d.metrics.RecordWSMessage("out", ev.Type)
		}
	}
}

// readPump 读取并处理客户端帧，阻塞直到连接关闭
func (d *StreamDispatcher) readPump(ctx context.Context, sessionID string, client *wsClient) {
	for {
		var frame streamFrame
		if err := client.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Session %s read error: %v", sessionID, err)
			}
			return
		}
		if d.metrics != nil {
			d.metrics.RecordWSMessage("in", frame.Action)
		}

		switch frame.Action {
		case "ping":
			if d.registry != nil {
				d.registry.TouchConnection(ctx, sessionID)
			}
			client.send(map[string]string{"type": "pong"})

		case "stream":
			if frame.ProjectID == "" || strings.TrimSpace(frame.UserInput) == "" {
				client.send(map[string]string{
					"type":    "error",
					"message": "project_id and user_input are required",
				})
				continue
			}
			// 刷新注册表中的项目归属
			if d.registry != nil {
				d.registry.RegisterConnection(ctx, &cache.ConnectionEntry{
					SessionID: sessionID,
					ProjectID: frame.ProjectID,
					CreatedAt: time.Now(),
				})
			}
			go func(f streamFrame) {
				// 失败已经由引擎发布 error 事件，这里只记日志
				if err := d.engine.Stream(ctx, f.ProjectID, sessionID, f.UserInput, f.ChatHistory, f.PromptCards); err != nil {
					log.Printf("[WS] Stream for session %s failed: %v", sessionID, err)
				}
			}(frame)

		default:
			client.send(map[string]string{"type": "error", "message": "unknown action"})
		}
	}
}
