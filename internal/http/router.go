package httpapi

import (
	"io"
	"net/http"
	"time"

	httpopenapi "github.com/fairyhunter13/product-catalog-service/internal/http/openapi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/products", app.catalogHandler(ResourceCollection))
	mux.Handle("/products/{id}", app.catalogHandler(ResourceItem))
	mux.HandleFunc("GET /healthz", app.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /openapi.yaml", app.openapiHandler)
	mux.HandleFunc("GET /docs", app.docsHandler)
	mux.HandleFunc("/", app.badRouteHandler)
	return WithRequestID(WithLogging(WithRecover(mux)))
}

// catalogHandler adapts net/http to Fetch and Admin. Reads go to Fetch,
// everything else to Admin, which answers 400 for methods it does not own.
func (a *App) catalogHandler(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := a.newRequest(w, r, res)
		if err != nil {
			WriteJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		var resp Response
		if r.Method == http.MethodGet {
			resp = a.Fetch(r.Context(), req)
		} else {
			resp = a.Admin(r.Context(), req)
		}
		writeJSON(w, resp.Status, resp.Body)
	}
}

func (a *App) newRequest(w http.ResponseWriter, r *http.Request, res Resource) (Request, error) {
	req := Request{
		Resource:   res,
		Method:     r.Method,
		PathParams: map[string]string{},
		RequestID:  RequestIDFromContext(r.Context()),
		Actor:      r.Header.Get(headerActor),
	}
	if req.Actor == "" {
		req.Actor = unknownActor
	}
	if id := r.PathValue("id"); id != "" {
		req.PathParams["id"] = id
	}
	if r.Body != nil {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
		if err != nil {
			return req, err
		}
		req.Body = b
	}
	return req, nil
}

func (a *App) badRouteHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONError(w, http.StatusBadRequest, msgBadRequest)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": time.Since(a.started).Seconds(),
	})
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Product Catalog API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}

