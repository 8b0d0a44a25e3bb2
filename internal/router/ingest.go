package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/router/middleware"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/usecase/chart"
	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/shopspring/decimal"
)

type IngestRouter interface {
	Snapshot(w http.ResponseWriter, r *http.Request)
	Level(w http.ResponseWriter, r *http.Request)
}

type ingestRouterImpl struct {
	usecase chart.ChartUseCase
}

func NewIngestRouter(usecase chart.ChartUseCase) IngestRouter {
	return &ingestRouterImpl{
		usecase: usecase,
	}
}

type ingestResponse struct {
	Market  string `json:"market"`
	Status  string `json:"status"` // "accepted", "rejected"
	Message string `json:"message,omitempty"`
}

// authorize checks the publisher may write symbol.
func authorize(w http.ResponseWriter, r *http.Request, symbol string) bool {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || !claims.AllowsMarket(symbol) {
		writeJSONError(w, http.StatusForbidden, fmt.Errorf("publisher may not write %s", symbol))
		return false
	}
	return true
}

func (ir *ingestRouterImpl) Snapshot(w http.ResponseWriter, r *http.Request) {
	type SnapshotRequest struct {
		Bids      []model.Offer `json:"bids"` // any order, summed per price
		Asks      []model.Offer `json:"asks"`
		Timestamp int64         `json:"timestamp,omitempty"` // unix ms
	}
	symbol := r.PathValue("symbol")
	if !authorize(w, r, symbol) {
		return
	}
	req, err := decodeJSON[SnapshotRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	err = ir.usecase.ApplySnapshot(r.Context(), symbol, model.MarketDepth{
		Bids:      req.Bids,
		Asks:      req.Asks,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		writeJSON(w, statusFor(err), ingestResponse{Market: symbol, Status: "rejected", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Market: symbol, Status: "accepted"})
}

func (ir *ingestRouterImpl) Level(w http.ResponseWriter, r *http.Request) {
	type LevelRequest struct {
		Side   string          `json:"side"` // "BID" or "ASK"
		Price  decimal.Decimal `json:"price"`
		Volume decimal.Decimal `json:"volume"` // 0 removes the level
	}
	symbol := r.PathValue("symbol")
	if !authorize(w, r, symbol) {
		return
	}
	req, err := decodeJSON[LevelRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	side, err := model.ParseSide(req.Side)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if !req.Price.IsPositive() {
		writeJSONError(w, http.StatusBadRequest, errors.New("price must be > 0"))
		return
	}

	err = ir.usecase.UpdateLevel(r.Context(), symbol, side, req.Price, req.Volume)
	if err != nil {
		writeJSON(w, statusFor(err), ingestResponse{Market: symbol, Status: "rejected", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Market: symbol, Status: "accepted"})
}
