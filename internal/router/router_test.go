package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/depth"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/feed"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/router/middleware"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/usecase/chart"
	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var markets = []model.Market{
	{
		Symbol:        "WETH-USDC",
		Base:          model.Token{Name: "WETH", Decimals: 18},
		Quote:         model.Token{Name: "USDC", Decimals: 6},
		PriceDecimals: 2,
	},
	{
		Symbol:        "WBTC-USDC",
		Base:          model.Token{Name: "WBTC", Decimals: 8},
		Quote:         model.Token{Name: "USDC", Decimals: 6},
		PriceDecimals: 2,
	},
}

type testServer struct {
	handler http.Handler
	maker   *middleware.JWTMaker
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	f := feed.NewBookFeed(feed.BookFeedOpts{Markets: markets, Logger: zerolog.Nop()})
	uc := chart.NewChartUseCase(chart.ChartUseCaseOpts{
		Feed:       f,
		Aggregator: depth.NewAggregator(depth.DefaultViewportConfig()),
		Logger:     zerolog.Nop(),
	})
	maker := middleware.NewJWTMaker("test-secret")
	mux := http.NewServeMux()
	BindRouter(BindRouterOpts{
		ServerRouter: mux,
		ChartUseCase: uc,
		TokenMaker:   maker,
		Logger:       zerolog.Nop(),
	})
	return testServer{handler: Cors(mux), maker: maker}
}

func (s testServer) token(t *testing.T, markets ...string) string {
	t.Helper()
	tok, _, err := s.maker.CreateToken("collector-1", markets, time.Minute)
	require.NoError(t, err)
	return tok
}

func (s testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

const exampleSnapshot = `{
	"bids": [{"price": "100", "volume": "5"}, {"price": "99", "volume": "3"}],
	"asks": [{"price": "101", "volume": "4"}, {"price": "102", "volume": "2"}],
	"timestamp": 1700000000000
}`

type chartResponse struct {
	State          string `json:"state"`
	MidPrice       *string
	CumulativeBids []struct {
		Price      string `json:"price"`
		Cumulative string `json:"cumulative"`
	} `json:"cumulativeBids"`
	CumulativeAsks []struct {
		Price      string `json:"price"`
		Cumulative string `json:"cumulative"`
	} `json:"cumulativeAsks"`
	Viewport *struct {
		Domain     [2]string `json:"domain"`
		ZoomDomain string    `json:"zoomDomain"`
		Offset     string    `json:"offset"`
	} `json:"viewport"`
}

func decodeChart(t *testing.T, rec *httptest.ResponseRecorder) chartResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var c chartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func requireDecimal(t *testing.T, want, got string) {
	t.Helper()
	g, err := decimal.NewFromString(got)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString(want).Equal(g), "want %s, got %s", want, got)
}

func TestHealthAndMarkets(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/market", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []model.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, markets, got)
}

func TestChartStates(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t)

	c := decodeChart(t, s.do(http.MethodGet, "/api/v1/market/WETH-USDC/depth", "", ""))
	assert.Equal(t, "loading", c.State)

	c = decodeChart(t, s.do(http.MethodGet, "/api/v1/market/DOGE-USDC/depth", "", ""))
	assert.Equal(t, "loading", c.State, "unknown market means nothing selected")

	rec := s.do(http.MethodPost, "/api/v1/market/WETH-USDC/snapshot", `{"bids": [], "asks": []}`, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c = decodeChart(t, s.do(http.MethodGet, "/api/v1/market/WETH-USDC/depth", "", ""))
	assert.Equal(t, "empty_market", c.State)

	rec = s.do(http.MethodPost, "/api/v1/market/WETH-USDC/level", `{"side": "ASK", "price": "101", "volume": "4"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c = decodeChart(t, s.do(http.MethodGet, "/api/v1/market/WETH-USDC/depth", "", ""))
	assert.Equal(t, "unavailable", c.State)
	assert.Nil(t, c.MidPrice)

	rec = s.do(http.MethodPost, "/api/v1/market/WETH-USDC/snapshot", exampleSnapshot, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c = decodeChart(t, s.do(http.MethodGet, "/api/v1/market/WETH-USDC/depth", "", ""))
	assert.Equal(t, "ready", c.State)
	require.Len(t, c.CumulativeBids, 2)
	requireDecimal(t, "8", c.CumulativeBids[1].Cumulative)
	require.Len(t, c.CumulativeAsks, 2)
	requireDecimal(t, "6", c.CumulativeAsks[1].Cumulative)
	require.NotNil(t, c.Viewport)
	requireDecimal(t, "1.575", c.Viewport.ZoomDomain)
}

func TestChartViewQuery(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/v1/market/WETH-USDC/snapshot", exampleSnapshot, s.token(t))
	require.Equal(t, http.StatusOK, rec.Code)

	c := decodeChart(t, s.do(http.MethodGet, "/api/v1/market/WETH-USDC/depth?zoom=1&offset=0.5", "", ""))
	require.NotNil(t, c.Viewport)
	requireDecimal(t, "1", c.Viewport.ZoomDomain)
	requireDecimal(t, "100", c.Viewport.Domain[0])
	requireDecimal(t, "102", c.Viewport.Domain[1])

	rec = s.do(http.MethodGet, "/api/v1/market/WETH-USDC/depth?zoom=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestZoomAndPan(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/v1/market/WETH-USDC/snapshot", exampleSnapshot, s.token(t))
	require.Equal(t, http.StatusOK, rec.Code)

	full := decodeChart(t, s.do(http.MethodGet, "/api/v1/market/WETH-USDC/depth", "", ""))
	in := decodeChart(t, s.do(http.MethodPost, "/api/v1/market/WETH-USDC/depth/zoom",
		`{"zoomDomain": "1.575", "offset": "0", "deltaY": -500}`, ""))
	require.NotNil(t, in.Viewport)
	requireDecimal(t, "0.7875", in.Viewport.ZoomDomain)

	fullLo := decimal.RequireFromString(full.Viewport.Domain[0])
	fullHi := decimal.RequireFromString(full.Viewport.Domain[1])
	inLo := decimal.RequireFromString(in.Viewport.Domain[0])
	inHi := decimal.RequireFromString(in.Viewport.Domain[1])
	assert.True(t, inLo.GreaterThan(fullLo))
	assert.True(t, inHi.LessThan(fullHi))

	panned := decodeChart(t, s.do(http.MethodPost, "/api/v1/market/WETH-USDC/depth/pan",
		`{"zoomDomain": "0.7875", "offset": "0", "fraction": "0.5"}`, ""))
	require.NotNil(t, panned.Viewport)
	requireDecimal(t, "0.7875", panned.Viewport.Offset)

	rec = s.do(http.MethodPost, "/api/v1/market/WETH-USDC/depth/zoom", `{"zoom": 1}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestTooltip(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/v1/market/WETH-USDC/snapshot", exampleSnapshot, s.token(t))
	require.Equal(t, http.StatusOK, rec.Code)

	type tooltipResponse struct {
		Visible bool `json:"visible"`
		Content *depth.TooltipContent
	}
	rec = s.do(http.MethodPost, "/api/v1/market/WETH-USDC/depth/tooltip",
		`{"hover": {"key": "asks", "price": "102", "volume": "6"}}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tip tooltipResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tip))
	require.True(t, tip.Visible)
	require.NotNil(t, tip.Content)
	assert.Equal(t, "102.00 USDC", tip.Content.Price)
	assert.Equal(t, "6.000000000000000000 WETH", tip.Content.Volume)

	rec = s.do(http.MethodPost, "/api/v1/market/WETH-USDC/depth/tooltip",
		`{"hover": {"key": "asks", "price": "102", "volume": "6"}, "scrolling": true}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	tip = tooltipResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tip))
	assert.False(t, tip.Visible)
	assert.Nil(t, tip.Content)
}

func TestIngestAuthorization(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name  string
		path  string
		body  string
		token string
		want  int
	}{
		{"no token", "/api/v1/market/WETH-USDC/snapshot", exampleSnapshot, "", http.StatusUnauthorized},
		{"other market", "/api/v1/market/WETH-USDC/snapshot", exampleSnapshot, s.token(t, "WBTC-USDC"), http.StatusForbidden},
		{"scoped token", "/api/v1/market/WETH-USDC/snapshot", exampleSnapshot, s.token(t, "WETH-USDC"), http.StatusOK},
		{"unknown market", "/api/v1/market/DOGE-USDC/snapshot", exampleSnapshot, s.token(t), http.StatusNotFound},
		{"negative volume", "/api/v1/market/WETH-USDC/snapshot", `{"bids": [{"price": "1", "volume": "-1"}], "asks": []}`, s.token(t), http.StatusUnprocessableEntity},
		{"bad side", "/api/v1/market/WETH-USDC/level", `{"side": "up", "price": "1", "volume": "1"}`, s.token(t), http.StatusBadRequest},
		{"zero price", "/api/v1/market/WETH-USDC/level", `{"side": "BID", "price": "0", "volume": "1"}`, s.token(t), http.StatusBadRequest},
		{"empty body", "/api/v1/market/WETH-USDC/level", "", s.token(t), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, tc.path, tc.body, tc.token)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCorsPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/market/WETH-USDC/depth", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
