package web

import (
	"errors"
	"net/http"
	"strconv"

	"marketplace-orders/internal/app"
	"marketplace-orders/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Shopping context headers, set by the storefront from the shopper's session.
const (
	headerDistributorID = "X-Distributor-ID"
	headerOrderCycleID  = "X-Order-Cycle-ID"
)

type lineItemResponse struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

func toLineItemResponse(li core.LineItem) lineItemResponse {
	return lineItemResponse{
		ID:        li.ID,
		OrderID:   li.OrderID,
		VariantID: li.VariantID,
		Quantity:  li.Quantity,
		Price:     money(li.Price),
	}
}

// missingLineItemID handles DELETE /api/line_items without an id.
func (h *Handler) missingLineItemID(w http.ResponseWriter, r *http.Request) {
	h.writeServiceError(w, r, core.ErrMissingLineItemID)
}

// destroyLineItem handles DELETE /api/line_items/{id}.
func (h *Handler) destroyLineItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		// An id that cannot name a line item is simply not found.
		h.writeServiceError(w, r, core.ErrLineItemNotFound)
		return
	}

	shop, ok := shoppingContext(w, r)
	if !ok {
		return
	}

	_, err = h.svc.DeleteLineItem(r.Context(), app.DeleteLineItemRequest{
		LineItemID:    id,
		User:          userFromContext(r.Context()),
		DistributorID: shop.DistributorID,
		OrderCycleID:  shop.OrderCycleID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// boughtLineItems handles GET /api/line_items/bought.
func (h *Handler) boughtLineItems(w http.ResponseWriter, r *http.Request) {
	shop, ok := shoppingContext(w, r)
	if !ok {
		return
	}

	result, err := h.svc.ListBoughtItems(r.Context(), app.BoughtItemsRequest{
		User:          userFromContext(r.Context()),
		DistributorID: shop.DistributorID,
		OrderCycleID:  shop.OrderCycleID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]lineItemResponse, 0, len(result.Items))
	for _, li := range result.Items {
		out = append(out, toLineItemResponse(li))
	}
	writeJSON(w, out)
}

type adjustmentResponse struct {
	ID          int64  `json:"id"`
	Source      string `json:"source"`
	SourceID    int64  `json:"source_id"`
	Label       string `json:"label"`
	Amount      string `json:"amount"`
	IncludedTax string `json:"included_tax"`
	Canceled    bool   `json:"canceled,omitempty"`
}

type orderTotalsResponse struct {
	OrderID         int64                `json:"order_id"`
	ItemTotal       string               `json:"item_total"`
	AdjustmentTotal string               `json:"adjustment_total"`
	Adjustments     []adjustmentResponse `json:"adjustments"`
}

// recalculateOrder handles POST /api/orders/{id}/recalculate.
func (h *Handler) recalculateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeServiceError(w, r, core.ErrOrderNotFound)
		return
	}

	result, err := h.svc.RecalculateOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	o := result.Order
	resp := orderTotalsResponse{
		OrderID:         o.ID,
		ItemTotal:       money(o.ItemTotal),
		AdjustmentTotal: money(o.AdjustmentTotal),
		Adjustments:     make([]adjustmentResponse, 0, len(o.Adjustments)),
	}
	for _, a := range o.Adjustments {
		resp.Adjustments = append(resp.Adjustments, adjustmentResponse{
			ID:          a.ID,
			Source:      string(a.Source),
			SourceID:    a.SourceID,
			Label:       a.Label,
			Amount:      money(a.Amount),
			IncludedTax: money(a.IncludedTax),
			Canceled:    a.Canceled,
		})
	}
	writeJSON(w, resp)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

var errBadShoppingContext = errors.New("invalid shopping context header")

// shoppingContext reads the optional distributor and order cycle headers.
// It writes a 400 and returns false when a header is present but not an id.
func shoppingContext(w http.ResponseWriter, r *http.Request) (core.ShoppingContext, bool) {
	var shop core.ShoppingContext
	var err error
	if shop.DistributorID, err = optionalID(r.Header.Get(headerDistributorID)); err != nil {
		writeError(w, r, errBadShoppingContext.Error()+": "+headerDistributorID, "BAD_REQUEST", http.StatusBadRequest)
		return shop, false
	}
	if shop.OrderCycleID, err = optionalID(r.Header.Get(headerOrderCycleID)); err != nil {
		writeError(w, r, errBadShoppingContext.Error()+": "+headerOrderCycleID, "BAD_REQUEST", http.StatusBadRequest)
		return shop, false
	}
	return shop, true
}

func optionalID(v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, errBadShoppingContext
	}
	return &id, nil
}
