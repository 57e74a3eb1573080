package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hakimelghazi/exchange-core/config"
	"github.com/hakimelghazi/exchange-core/db"
	"github.com/hakimelghazi/exchange-core/internal/engine"
)

// placeOrderRequest is the external request shape. ClientOrderId is a
// caller-chosen reference that is echoed back in the response; it is not
// validated and is not used to de-duplicate requests, so a repeated
// request places a second order. The exchange itself assigns the
// engine.OrderId that identifies the order in the book.
type placeOrderRequest struct {
	ClientOrderId string `json:"client_order_id"`
	UserId        string `json:"user_id"`
	OrderType     string `json:"order_type"` // "GTC" | "FAK" | "FOK" | "GFD" | "M"
	Side          string `json:"side"`       // "B" | "S"
	Price         int64  `json:"price"`      // ignored when order_type == "M"
	Quantity      uint64 `json:"quantity"`
}

// server wires the engine command queue to an HTTP surface; orderSeq
// assigns the monotonically increasing OrderId the core requires.
type server struct {
	eng      *engine.Engine
	orderSeq atomic.Uint64
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Printf("database unavailable, trades will not be persisted: %v", err)
		pool = nil
	} else {
		defer pool.Close()
	}

	eng := engine.NewEngine(cfg.CommandBuffer, pool)
	go eng.Run(ctx)

	srv := &server{eng: eng}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(3 * time.Second))

	r.Post("/orders", srv.handlePlaceOrder)
	r.Delete("/orders/{id}", srv.handleCancelOrder)
	r.Put("/orders/{id}", srv.handleModifyOrder)
	r.Get("/book", srv.handleGetBook)

	log.Printf("listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatal(err)
	}
}

func writeProblem(w http.ResponseWriter, r *http.Request, code int, title, detail string) {
	reqID := middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-ID", reqID)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":      title,
		"status":     code,
		"detail":     detail,
		"instance":   r.URL.Path,
		"request_id": reqID,
	})
}

func (s *server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	order, err := toEngineOrder(&req, s.nextOrderId())
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	trades, err := s.eng.Place(r.Context(), order)
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}

	rid := middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/orders/"+strconv.FormatUint(uint64(order.OrderId()), 10))
	w.Header().Set("X-Request-ID", rid)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toOrderCreateResponse(&req, order, trades, rid))
}

func (s *server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "validation_error", "id must be a positive integer")
		return
	}
	if err := s.eng.Cancel(r.Context(), engine.OrderId(id)); err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}
	w.Header().Set("X-Request-ID", middleware.GetReqID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleModifyOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "validation_error", "id must be a positive integer")
		return
	}

	var body struct {
		Price    int64  `json:"price"`
		Quantity uint64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	trades, err := s.eng.Modify(r.Context(), engine.OrderModify{
		OrderId:  engine.OrderId(id),
		Price:    engine.Price(body.Price),
		Quantity: engine.Quantity(body.Quantity),
	})
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "engine_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", middleware.GetReqID(r.Context()))
	_ = json.NewEncoder(w).Encode(map[string]any{"trades": trades})
}

func (s *server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", middleware.GetReqID(r.Context()))
	_ = json.NewEncoder(w).Encode(s.eng.GetOrderInfos())
}

func (s *server) nextOrderId() engine.OrderId {
	return engine.OrderId(s.orderSeq.Add(1))
}

func toEngineOrder(req *placeOrderRequest, id engine.OrderId) (*engine.Order, error) {
	req.UserId = strings.TrimSpace(req.UserId)
	req.OrderType = strings.TrimSpace(req.OrderType)
	req.Side = strings.TrimSpace(req.Side)

	if req.UserId == "" {
		return nil, errors.New("user_id is required")
	}
	if _, err := uuid.Parse(req.UserId); err != nil {
		return nil, errors.New("user_id must be a valid uuid")
	}
	if req.Quantity == 0 {
		return nil, errors.New("quantity must be positive")
	}

	var side engine.Side
	switch req.Side {
	case "B":
		side = engine.Buy
	case "S":
		side = engine.Sell
	default:
		return nil, errors.New("side must be B or S")
	}

	if req.OrderType == "M" {
		return engine.NewMarketOrder(id, side, engine.Quantity(req.Quantity)), nil
	}

	orderType, err := parseOrderType(req.OrderType)
	if err != nil {
		return nil, err
	}
	if req.Price <= 0 {
		return nil, errors.New("limit orders require a positive price")
	}

	return engine.NewOrder(orderType, id, side, engine.Price(req.Price), engine.Quantity(req.Quantity)), nil
}

func parseOrderType(s string) (engine.OrderType, error) {
	switch s {
	case "GTC":
		return engine.GoodTillCancel, nil
	case "FAK":
		return engine.FillAndKill, nil
	case "FOK":
		return engine.FillOrKill, nil
	case "GFD":
		return engine.GoodForDay, nil
	default:
		return 0, errors.New("unknown order_type")
	}
}

type orderCreateResponse struct {
	OrderId       uint64        `json:"order_id"`
	ClientOrderId string        `json:"client_order_id"`
	UserId        string        `json:"user_id"`
	Side          string        `json:"side"`
	Quantity      uint64        `json:"quantity"`
	Remaining     uint64        `json:"remaining"`
	Filled        bool          `json:"filled"`
	Trades        engine.Trades `json:"trades"`
	RequestId     string        `json:"request_id"`
	ReceivedAt    time.Time     `json:"received_at"`
}

func toOrderCreateResponse(req *placeOrderRequest, order *engine.Order, trades engine.Trades, requestId string) orderCreateResponse {
	return orderCreateResponse{
		OrderId:       uint64(order.OrderId()),
		ClientOrderId: req.ClientOrderId,
		UserId:        req.UserId,
		Side:          req.Side,
		Quantity:      uint64(order.InitialQuantity()),
		Remaining:     uint64(order.RemainingQuantity()),
		Filled:        order.IsFilled(),
		Trades:        trades,
		RequestId:     requestId,
		ReceivedAt:    time.Now().UTC(),
	}
}
