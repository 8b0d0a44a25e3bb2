package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/depth"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	writeWait           = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = (pongWait * 9) / 10
	maxMessageSize      = 64 * 1024 // commands are small
	defaultSendBuf      = 64
	defaultPublishBuf   = 1024
	maxConsecutiveDrops = 50
	commandTimeout      = 5 * time.Second
)

// ChartSource computes charts for client commands.
type ChartSource interface {
	Chart(ctx context.Context, symbol string, view depth.ViewState) (depth.Chart, error)
	Zoom(ctx context.Context, symbol string, view depth.ViewState, deltaY float64) (depth.Chart, error)
	Pan(ctx context.Context, symbol string, view depth.ViewState, fraction decimal.Decimal) (depth.Chart, error)
}

// ChartFrame is broadcast to subscribers of a market after every ingest.
type ChartFrame struct {
	Type   string      `json:"type"` // "chart"
	Symbol string      `json:"symbol"`
	Seq    uint64      `json:"seq"`
	Chart  depth.Chart `json:"chart"`
}

// ViewportFrame answers a client's own zoom, pan or view command.
type ViewportFrame struct {
	Type   string      `json:"type"` // "viewport"
	Symbol string      `json:"symbol"`
	Chart  depth.Chart `json:"chart"`
}

type TooltipFrame struct {
	Type    string                `json:"type"` // "tooltip"
	Symbol  string                `json:"symbol"`
	Visible bool                  `json:"visible"`
	Content *depth.TooltipContent `json:"content,omitempty"`
}

type ErrorFrame struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// command is any client message; unused fields stay zero.
type command struct {
	Type     string          `json:"type"`   // subscribe, unsubscribe, view, zoom, pan, hover, mouseout
	Symbol   string          `json:"symbol"` // e.g. "WETH-USDC"
	DeltaY   float64         `json:"deltaY,omitempty"`
	Fraction decimal.Decimal `json:"fraction,omitempty"`
	Key      string          `json:"key,omitempty"`
	Price    decimal.Decimal `json:"price,omitempty"`
	Volume   decimal.Decimal `json:"volume,omitempty"`
}

type publishMsg struct {
	Topic string
	Data  []byte
}

type directMsg struct {
	client *Client
	data   []byte
}

type subscription struct {
	client *Client
	topic  string
}

// Hub manages clients, subscriptions and publishes.
type Hub struct {
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan publishMsg
	direct      chan directMsg

	clients map[*Client]struct{}
	topics  map[string]map[*Client]struct{}

	source ChartSource
	seq    sequencer

	// Configuration
	sendBuf int

	// closed when Run returns
	done chan struct{}

	logger zerolog.Logger
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subscribed map[string]struct{}

	// owned by readPump
	views       map[string]depth.ViewState
	interaction map[string]*depth.Interaction

	// consecutive drops counter: if it grows too large we evict the client
	drops int
}

type HubOpts struct {
	Source ChartSource
	Logger zerolog.Logger
}

func NewHub(opts HubOpts) *Hub {
	return &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		publish:     make(chan publishMsg, defaultPublishBuf),
		direct:      make(chan directMsg, defaultPublishBuf),
		clients:     make(map[*Client]struct{}),
		topics:      make(map[string]map[*Client]struct{}),
		source:      opts.Source,
		sendBuf:     defaultSendBuf,
		done:        make(chan struct{}),
		logger:      opts.Logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Run runs the hub event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info().Msg("ws hub started")
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.trackClients()

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
			}

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			subs := h.topics[sub.topic]
			if subs == nil {
				subs = make(map[*Client]struct{})
				h.topics[sub.topic] = subs
			}
			subs[sub.client] = struct{}{}
			sub.client.subscribed[sub.topic] = struct{}{}

		case sub := <-h.unsubscribe:
			h.dropTopic(sub.client, sub.topic)

		case p := <-h.publish:
			if p.Topic == "" {
				// broadcast to all clients
				for c := range h.clients {
					h.deliver(c, p.Data)
				}
			} else if subs := h.topics[p.Topic]; subs != nil {
				for c := range subs {
					h.deliver(c, p.Data)
				}
			}

		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				h.deliver(d.client, d.data)
			}

		case <-ctx.Done():
			h.logger.Info().Msg("ws hub shutting down")
			for c := range h.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(h.clients, c)
			}
			h.trackClients()
			return
		}
	}
}

func (h *Hub) trackClients() {
	metrics.WSClients.Set(float64(len(h.clients)))
}

// submit hands sub to the hub loop; false once the hub has stopped.
func (h *Hub) submit(ch chan<- subscription, sub subscription) bool {
	select {
	case ch <- sub:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) dropTopic(c *Client, topic string) {
	if subs := h.topics[topic]; subs != nil {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(c.subscribed, topic)
}

// remove must run on the hub goroutine.
func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	for t := range c.subscribed {
		h.dropTopic(c, t)
	}
	close(c.send)
	h.trackClients()
}

func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
		c.drops = 0
	default:
		metrics.WSPublishDropsTotal.Inc()
		c.drops++
		if c.drops > maxConsecutiveDrops {
			h.logger.Warn().Int("drops", c.drops).Msg("evicting slow client")
			metrics.WSEvictionsTotal.Inc()
			h.remove(c)
			_ = c.conn.Close()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// charts are public, ingest is the authenticated surface
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and registers a client.
// Initial markets can be passed via ?symbols=WETH-USDC,WBTC-USDC
func ServeWS(h *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		h.logger.Debug().Err(err).Msg("upgrade failed")
		return
	}

	client := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, h.sendBuf),
		subscribed:  make(map[string]struct{}),
		views:       make(map[string]depth.ViewState),
		interaction: make(map[string]*depth.Interaction),
	}

	var initial []string
	if s := r.URL.Query().Get("symbols"); s != "" {
		for _, sym := range strings.Split(s, ",") {
			sym = strings.TrimSpace(sym)
			if sym == "" {
				continue
			}
			initial = append(initial, sym)
		}
	}

	// register then register subscriptions
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}
	for _, sym := range initial {
		if !h.submit(h.subscribe, subscription{client: client, topic: sym}) {
			_ = conn.Close()
			return
		}
	}

	go client.writePump()
	go client.readPump()
}

// readPump reads client commands. View state lives here so no locking is needed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			) {
				c.hub.logger.Warn().Err(err).Msg("read error")
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Debug().Err(err).Msg("invalid client msg")
			c.reply(ErrorFrame{Type: "error", Message: "invalid command"})
			continue
		}
		c.handle(cmd, time.Now())
	}
}

func (c *Client) interactionFor(symbol string) *depth.Interaction {
	in := c.interaction[symbol]
	if in == nil {
		in = depth.NewInteraction()
		c.interaction[symbol] = in
	}
	return in
}

func (c *Client) handle(cmd command, now time.Time) {
	if cmd.Symbol == "" {
		c.reply(ErrorFrame{Type: "error", Message: "symbol is required"})
		return
	}

	switch cmd.Type {
	case "subscribe":
		c.hub.submit(c.hub.subscribe, subscription{client: c, topic: cmd.Symbol})
	case "unsubscribe":
		c.hub.submit(c.hub.unsubscribe, subscription{client: c, topic: cmd.Symbol})
		delete(c.views, cmd.Symbol)
		delete(c.interaction, cmd.Symbol)
	case "view", "zoom", "pan":
		c.viewport(cmd, now)
	case "hover":
		c.hover(cmd, now)
	case "mouseout":
		c.interactionFor(cmd.Symbol).OnMouseOut()
		c.reply(TooltipFrame{Type: "tooltip", Symbol: cmd.Symbol})
	default:
		c.reply(ErrorFrame{Type: "error", Message: "unknown command " + cmd.Type})
	}
}

func (c *Client) viewport(cmd command, now time.Time) {
	if c.hub.source == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var (
		chart depth.Chart
		err   error
	)
	view := c.views[cmd.Symbol]
	switch cmd.Type {
	case "zoom":
		in := c.interactionFor(cmd.Symbol)
		in.OnWheel(now)
		if in.Hovering() {
			// tooltips stay hidden while the wheel moves the chart under the pointer
			c.reply(TooltipFrame{Type: "tooltip", Symbol: cmd.Symbol})
		}
		chart, err = c.hub.source.Zoom(ctx, cmd.Symbol, view, cmd.DeltaY)
	case "pan":
		chart, err = c.hub.source.Pan(ctx, cmd.Symbol, view, cmd.Fraction)
	default:
		chart, err = c.hub.source.Chart(ctx, cmd.Symbol, view)
	}
	if err != nil {
		c.hub.logger.Error().Err(err).Str("market", cmd.Symbol).Str("cmd", cmd.Type).Msg("compute viewport")
		c.reply(ErrorFrame{Type: "error", Message: err.Error()})
		return
	}
	if chart.Viewport != nil {
		c.views[cmd.Symbol] = chart.Viewport.State()
	}
	c.reply(ViewportFrame{Type: "viewport", Symbol: cmd.Symbol, Chart: chart})
}

func (c *Client) hover(cmd command, now time.Time) {
	if c.hub.source == nil {
		return
	}
	in := c.interactionFor(cmd.Symbol)
	in.OnMouseOver()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	chart, err := c.hub.source.Chart(ctx, cmd.Symbol, c.views[cmd.Symbol])
	if err != nil {
		c.reply(ErrorFrame{Type: "error", Message: err.Error()})
		return
	}

	hover := depth.Hover{Key: cmd.Key, Price: cmd.Price, Volume: cmd.Volume}
	tip, ok := depth.Tooltip(chart, hover, in.Scrolling(now))
	frame := TooltipFrame{Type: "tooltip", Symbol: cmd.Symbol, Visible: ok}
	if ok {
		frame.Content = &tip
	}
	c.reply(frame)
}

// reply queues a frame for this client only.
func (c *Client) reply(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.hub.logger.Error().Err(err).Msg("marshal reply")
		return
	}
	select {
	case c.hub.direct <- directMsg{client: c, data: b}:
	default:
		metrics.WSPublishDropsTotal.Inc()
	}
}

// writePump serializes all writes to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				)
				return
			}

			// one frame per message, clients parse each as a single JSON value
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PublishChart broadcasts a market's default-view chart to its subscribers.
// Non-blocking: if the hub publish buffer is full, the frame is dropped.
func (h *Hub) PublishChart(symbol string, chart depth.Chart) {
	frame := ChartFrame{Type: "chart", Symbol: symbol, Seq: h.seq.next(symbol), Chart: chart}
	b, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal chart")
		return
	}

	select {
	case h.publish <- publishMsg{Topic: symbol, Data: b}:
	default:
		metrics.WSPublishDropsTotal.Inc()
		h.logger.Warn().Str("market", symbol).Msg("publish channel full, dropping chart")
	}
}
