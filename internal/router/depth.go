package router

import (
	"net/http"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/depth"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/usecase/chart"
	"github.com/shopspring/decimal"
)

type DepthRouter interface {
	Markets(w http.ResponseWriter, r *http.Request)
	Chart(w http.ResponseWriter, r *http.Request)
	Zoom(w http.ResponseWriter, r *http.Request)
	Pan(w http.ResponseWriter, r *http.Request)
	Tooltip(w http.ResponseWriter, r *http.Request)
}

type depthRouterImpl struct {
	usecase chart.ChartUseCase
}

func NewDepthRouter(usecase chart.ChartUseCase) DepthRouter {
	return &depthRouterImpl{
		usecase: usecase,
	}
}

func (dr *depthRouterImpl) Markets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dr.usecase.Markets(r.Context()))
}

func (dr *depthRouterImpl) Chart(w http.ResponseWriter, r *http.Request) {
	view, err := viewStateFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	c, err := dr.usecase.Chart(r.Context(), r.PathValue("symbol"), view)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (dr *depthRouterImpl) Zoom(w http.ResponseWriter, r *http.Request) {
	type ZoomRequest struct {
		ZoomDomain decimal.Decimal `json:"zoomDomain"`
		Offset     decimal.Decimal `json:"offset"`
		DeltaY     float64         `json:"deltaY"` // wheel delta, positive zooms out
	}
	req, err := decodeJSON[ZoomRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	view := depth.ViewState{ZoomDomain: req.ZoomDomain, Offset: req.Offset}
	c, err := dr.usecase.Zoom(r.Context(), r.PathValue("symbol"), view, req.DeltaY)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (dr *depthRouterImpl) Pan(w http.ResponseWriter, r *http.Request) {
	type PanRequest struct {
		ZoomDomain decimal.Decimal `json:"zoomDomain"`
		Offset     decimal.Decimal `json:"offset"`
		Fraction   decimal.Decimal `json:"fraction"` // of the domain width, positive moves right
	}
	req, err := decodeJSON[PanRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	view := depth.ViewState{ZoomDomain: req.ZoomDomain, Offset: req.Offset}
	c, err := dr.usecase.Pan(r.Context(), r.PathValue("symbol"), view, req.Fraction)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (dr *depthRouterImpl) Tooltip(w http.ResponseWriter, r *http.Request) {
	type TooltipRequest struct {
		ZoomDomain decimal.Decimal `json:"zoomDomain"`
		Offset     decimal.Decimal `json:"offset"`
		Hover      depth.Hover     `json:"hover"`
		Scrolling  bool            `json:"scrolling"`
	}
	type TooltipResponse struct {
		Visible bool                  `json:"visible"`
		Content *depth.TooltipContent `json:"content,omitempty"`
	}
	req, err := decodeJSON[TooltipRequest](w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	view := depth.ViewState{ZoomDomain: req.ZoomDomain, Offset: req.Offset}
	tip, ok, err := dr.usecase.Tooltip(r.Context(), r.PathValue("symbol"), view, req.Hover, req.Scrolling)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, TooltipResponse{})
		return
	}
	writeJSON(w, http.StatusOK, TooltipResponse{Visible: true, Content: &tip})
}
