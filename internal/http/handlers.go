package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fairyhunter13/product-catalog-service/internal/config"
	"github.com/fairyhunter13/product-catalog-service/internal/dispatch"
	"github.com/fairyhunter13/product-catalog-service/internal/model"
	"github.com/fairyhunter13/product-catalog-service/internal/obs"
	"github.com/fairyhunter13/product-catalog-service/internal/store"
)

// App holds the catalog handlers and their collaborators.
type App struct {
	Cfg        config.Config
	Store      store.Store
	Dispatcher dispatch.Dispatcher
	started    time.Time
}

// Request is a resolved catalog call.
type Request struct {
	Resource   Resource
	Method     string
	Body       []byte
	PathParams map[string]string
	RequestID  string
	Actor      string
}

// Response is the status and JSON body a handler produced.
type Response struct {
	Status int
	Body   any
}

type productsBody struct {
	Products []model.Product `json:"products"`
}

type productBody struct {
	Product model.Product `json:"product"`
}

func NewApp(cfg config.Config, st store.Store, d dispatch.Dispatcher) *App {
	return &App{Cfg: cfg, Store: st, Dispatcher: d, started: time.Now()}
}

func message(status int, msg string) Response {
	return Response{Status: status, Body: jsonError{Message: msg}}
}

func failure(err error) Response {
	return message(http.StatusInternalServerError, err.Error())
}

// Fetch serves the read-only routes.
func (a *App) Fetch(ctx context.Context, req Request) Response {
	switch route := resolveRoute(req.Resource, req.Method); route {
	case RouteListProducts:
		ps, err := a.Store.FetchAll(ctx)
		if err != nil {
			return failure(err)
		}
		if ps == nil {
			ps = []model.Product{}
		}
		return Response{Status: http.StatusOK, Body: productsBody{Products: ps}}
	case RouteGetProduct:
		p, ok, err := a.Store.FetchByID(ctx, req.PathParams["id"])
		if err != nil {
			return failure(err)
		}
		if !ok {
			return message(http.StatusNotFound, msgFetchNotFound)
		}
		return Response{Status: http.StatusOK, Body: productBody{Product: p}}
	case RouteUnknown, RouteCreateProduct, RouteUpdateProduct, RouteDeleteProduct:
		return message(http.StatusBadRequest, msgBadRequest)
	default:
		return message(http.StatusBadRequest, msgBadRequest)
	}
}

// Admin serves the mutating routes. A successful mutation is followed by one
// audit event; failed mutations dispatch nothing.
func (a *App) Admin(ctx context.Context, req Request) Response {
	switch route := resolveRoute(req.Resource, req.Method); route {
	case RouteCreateProduct:
		in, err := decodeProduct(req.Body)
		if err != nil {
			return failure(err)
		}
		p, err := a.Store.Create(ctx, in)
		if err != nil {
			obs.CatalogMutations.WithLabelValues("create", "error").Inc()
			return failure(err)
		}
		obs.CatalogMutations.WithLabelValues("create", "ok").Inc()
		a.emit(ctx, model.EventCreated, p, req)
		return Response{Status: http.StatusCreated, Body: p}
	case RouteUpdateProduct:
		in, err := decodeProduct(req.Body)
		if err != nil {
			return failure(err)
		}
		id := req.PathParams["id"]
		p, err := a.Store.Update(ctx, id, in.WithID(id))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				obs.CatalogMutations.WithLabelValues("update", "not_found").Inc()
				return message(http.StatusNotFound, msgUpdateNotFound)
			}
			obs.CatalogMutations.WithLabelValues("update", "error").Inc()
			return failure(err)
		}
		obs.CatalogMutations.WithLabelValues("update", "ok").Inc()
		a.emit(ctx, model.EventUpdated, p, req)
		return Response{Status: http.StatusOK, Body: p}
	case RouteDeleteProduct:
		p, ok, err := a.Store.Delete(ctx, req.PathParams["id"])
		if err != nil {
			obs.CatalogMutations.WithLabelValues("delete", "error").Inc()
			return failure(err)
		}
		if !ok {
			obs.CatalogMutations.WithLabelValues("delete", "not_found").Inc()
			if a.Cfg.DeleteMissingAsNotFound {
				return message(http.StatusNotFound, msgUpdateNotFound)
			}
			return message(http.StatusInternalServerError, msgDeleteNotFound)
		}
		obs.CatalogMutations.WithLabelValues("delete", "ok").Inc()
		a.emit(ctx, model.EventDeleted, p, req)
		return Response{Status: http.StatusOK, Body: p}
	case RouteUnknown, RouteListProducts, RouteGetProduct:
		return message(http.StatusBadRequest, msgBadRequest)
	default:
		return message(http.StatusBadRequest, msgBadRequest)
	}
}

// emit hands the event to the dispatcher. The mutation has already
// committed, so a failed hand-off is only logged and counted.
func (a *App) emit(ctx context.Context, t model.EventType, p model.Product, req Request) {
	ev := model.NewAuditEvent(t, p, req.Actor, req.RequestID)
	if err := a.Dispatcher.Dispatch(context.WithoutCancel(ctx), ev); err != nil {
		obs.EventsDispatched.WithLabelValues(string(t), "error").Inc()
		obs.Logger.Error("event_dispatch_failed",
			"request_id", req.RequestID,
			"event_type", t,
			"product_id", p.ID,
			"product_code", p.Code,
			"error", err,
		)
		return
	}
	obs.EventsDispatched.WithLabelValues(string(t), "ok").Inc()
	obs.Logger.Info("event_dispatched",
		"request_id", req.RequestID,
		"event_type", t,
		"product_id", p.ID,
		"product_code", p.Code,
	)
}

func decodeProduct(body []byte) (model.ProductInput, error) {
	var in model.ProductInput
	if len(body) == 0 {
		return in, errors.New(msgMissingBody)
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return in, fmt.Errorf("invalid product body: %w", err)
	}
	if in.Price < 0 {
		return in, errors.New(msgNegativePrice)
	}
	return in, nil
}
