package kds

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	aqm "github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/chopline/kds/internal/enums/orderstatus"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 20

// Handler is the staff-facing HTTP surface: bucket reads from the engine,
// transition commands through it, and order create/delete against the store.
type Handler struct {
	engine *Engine
	repo   OrderRepository
	logger aqm.Logger
	config *aqm.Config
	tlm    *telemetry.HTTP
}

func NewHandler(engine *Engine, repo OrderRepository, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		engine: engine,
		repo:   repo,
		logger: logger,
		config: config,
		tlm:    telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Delete("/{id}", h.DeleteOrder)
		r.Patch("/{id}/start", h.transition(orderstatus.Statuses.InProgress))
		r.Patch("/{id}/complete", h.transition(orderstatus.Statuses.Completed))
		r.Patch("/{id}/reject", h.transition(orderstatus.Statuses.Rejected))
		r.Patch("/{id}/requeue", h.transition(orderstatus.Statuses.Pending))
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

type orderView struct {
	Order
	Stage orderstatus.Stage `json:"stage"`
	Age   string            `json:"age"`
}

func viewsOf(orders []Order, now time.Time) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView{
			Order: o,
			Stage: o.Stage(),
			Age:   TimeElapsed(o.CreatedAt, now),
		})
	}
	return views
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	now := time.Now()
	if stageParam := r.URL.Query().Get("stage"); stageParam != "" {
		stage := orderstatus.Stage(stageParam)
		switch stage {
		case orderstatus.StageNew, orderstatus.StageActive, orderstatus.StageTerminal:
		default:
			aqm.RespondError(w, http.StatusBadRequest, "Invalid stage")
			return
		}
		aqm.Respond(w, http.StatusOK, map[string]interface{}{
			"orders": viewsOf(h.engine.Bucket(stage), now),
		}, nil)
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"new":      viewsOf(h.engine.Bucket(orderstatus.StageNew), now),
		"active":   viewsOf(h.engine.Bucket(orderstatus.StageActive), now),
		"terminal": viewsOf(h.engine.Bucket(orderstatus.StageTerminal), now),
	}, nil)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, ok := h.engine.Order(id)
	if !ok {
		aqm.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	aqm.Respond(w, http.StatusOK, orderView{
		Order: order,
		Stage: order.Stage(),
		Age:   TimeElapsed(order.CreatedAt, time.Now()),
	}, nil)
}

type createOrderRequest struct {
	Name     string  `json:"name"`
	TableNo  string  `json:"table_no"`
	Price    float64 `json:"price"`
	Note     string  `json:"note"`
	Priority string  `json:"priority"`
	Status   string  `json:"status"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" || req.TableNo == "" {
		aqm.RespondError(w, http.StatusBadRequest, "Name and table are required")
		return
	}
	if req.Price < 0 {
		aqm.RespondError(w, http.StatusBadRequest, "Price must be non-negative")
		return
	}

	order := &Order{
		Name:     req.Name,
		TableNo:  req.TableNo,
		Price:    req.Price,
		Note:     req.Note,
		Priority: req.Priority,
		Status:   orderstatus.Normalize(req.Status).Code(),
	}

	if err := h.repo.Create(ctx, order); err != nil {
		log.Errorf("cannot create order: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not create order")
		return
	}

	aqm.Respond(w, http.StatusCreated, order, nil)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteOrder")
	defer finish()
	log := h.log(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		log.Errorf("cannot delete order %d: %v", id, err)
		aqm.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{"deleted": id}, nil)
}

func (h *Handler) transition(target orderstatus.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w, r, finish := h.tlm.Start(w, r, "Handler.Transition")
		defer finish()
		log := h.log(r)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			aqm.RespondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		if err := h.engine.RequestTransition(r.Context(), id, target.Code()); err != nil {
			switch {
			case errors.Is(err, ErrUnknownOrder):
				aqm.RespondError(w, http.StatusNotFound, "Order not found")
			case errors.Is(err, ErrTransitionRejected):
				aqm.RespondError(w, http.StatusConflict, "Transition rejected")
			case errors.Is(err, ErrWriteFailed):
				log.Errorf("transition write failed for order %d: %v", id, err)
				aqm.RespondError(w, http.StatusBadGateway, "Store write failed, change reverted")
			default:
				log.Errorf("transition failed for order %d: %v", id, err)
				aqm.RespondError(w, http.StatusInternalServerError, "Could not update order")
			}
			return
		}

		order, _ := h.engine.Order(id)
		aqm.Respond(w, http.StatusOK, orderView{
			Order: order,
			Stage: order.Stage(),
			Age:   TimeElapsed(order.CreatedAt, time.Now()),
		}, nil)
	}
}
