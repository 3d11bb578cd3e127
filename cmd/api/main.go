package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	_ "stockledger/docs"
	"stockledger/pkg/inventory"
	"stockledger/pkg/inventory/file"
	"stockledger/pkg/inventory/postgres"
	"stockledger/pkg/logger"
)

var (
	redisClient *redis.Client
	eng         *inventory.Engine
	tracer      trace.Tracer
)

// @title Stockledger API
// @version 1.0
// @description API for the product catalog and order ledger
// @host localhost:8080
// @BasePath /
func main() {
	logger.Init()
	defer logger.Log.Sync()
	log := logger.Log

	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatal("init tracing", zap.Error(err))
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())
	tracer = tp.Tracer("stockledger")

	store, err := openStore(log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	eng = inventory.NewEngine(store, log)

	redisClient = redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDR")})

	r := mux.NewRouter()
	r.Use(traceMiddleware)
	r.HandleFunc("/login", loginHandler).Methods(http.MethodPost)

	products := r.PathPrefix("/products").Subrouter()
	products.Use(authMiddleware)
	products.HandleFunc("", createProductHandler).Methods(http.MethodPost)
	products.HandleFunc("", listProductsHandler).Methods(http.MethodGet)
	products.HandleFunc("/{id}/stock", adjustStockHandler).Methods(http.MethodPut)

	orders := r.PathPrefix("/orders").Subrouter()
	orders.Use(authMiddleware)
	orders.HandleFunc("", placeOrderHandler).Methods(http.MethodPost)
	orders.HandleFunc("", listOrdersHandler).Methods(http.MethodGet)
	orders.HandleFunc("/{id}", cancelOrderHandler).Methods(http.MethodDelete)

	stats := r.PathPrefix("/stats").Subrouter()
	stats.Use(authMiddleware)
	stats.HandleFunc("", statsHandler).Methods(http.MethodGet)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error("server closed", zap.Error(err))
	}
}

// openStore picks Postgres when DATABASE_URL is set, otherwise a JSON file
// store at DATA_FILE.
func openStore(log *zap.Logger) (inventory.Store, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		if _, err := db.Exec(postgres.Schema); err != nil {
			return nil, err
		}
		log.Info("using postgres store")
		return postgres.New(db), nil
	}
	path := os.Getenv("DATA_FILE")
	if path == "" {
		path = "data/stockledger.json"
	}
	log.Info("using file store", zap.String("path", path))
	return file.New(path)
}

// loginRequest represents login credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// apiResponse is the success/message envelope returned by mutating calls.
type apiResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}

// loginHandler handles user login and session creation.
// @Summary Login
// @Description Authenticates user and sets session cookie
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200
// @Router /login [post]
func loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid credentials", http.StatusBadRequest)
		return
	}
	sid := uuid.NewString()
	if err := redisClient.Set(r.Context(), "session:"+sid, req.Username, time.Hour).Err(); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: sid, Path: "/", Expires: time.Now().Add(time.Hour), HttpOnly: true})
	w.WriteHeader(http.StatusOK)
}

// authMiddleware ensures a valid session exists.
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session_id")
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		user, err := redisClient.Get(r.Context(), "session:"+c.Value).Result()
		if err != nil || user == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), "user", user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// createProductRequest is the body of POST /products.
type createProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Stock       int     `json:"stock"`
}

// createProductHandler registers a new product.
// @Summary Add product
// @Accept json
// @Produce json
// @Param product body createProductRequest true "Product"
// @Success 201 {object} apiResponse
// @Security ApiKeyAuth
// @Router /products [post]
func createProductHandler(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := eng.AddProduct(r.Context(), req.Name, req.Description, req.UnitPrice, req.Stock)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, apiResponse{
		OK:      true,
		Message: "product \"" + p.Name + "\" added with id " + strconv.Itoa(p.ID),
		ID:      p.ID,
	})
}

// listProductsHandler lists products with available stock.
// @Summary List available stock
// @Produce json
// @Success 200 {array} inventory.Product
// @Security ApiKeyAuth
// @Router /products [get]
func listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := eng.ListAvailable(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// adjustStockRequest is the body of PUT /products/{id}/stock.
type adjustStockRequest struct {
	Stock int `json:"stock"`
}

// adjustStockHandler sets a product's stock to an absolute quantity.
// @Summary Adjust stock
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param stock body adjustStockRequest true "New quantity"
// @Success 200 {object} apiResponse
// @Security ApiKeyAuth
// @Router /products/{id}/stock [put]
func adjustStockHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := eng.AdjustStock(r.Context(), id, req.Stock)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		OK:      true,
		Message: "stock of \"" + p.Name + "\" set to " + strconv.Itoa(p.Stock),
		ID:      p.ID,
	})
}

// placeOrderRequest is the body of POST /orders.
type placeOrderRequest struct {
	ProductID   int    `json:"product_id"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
}

// placeOrderHandler places a new order.
// @Summary Place order
// @Accept json
// @Produce json
// @Param order body placeOrderRequest true "Order"
// @Success 201 {object} apiResponse
// @Security ApiKeyAuth
// @Router /orders [post]
func placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	o, err := eng.PlaceOrder(r.Context(), req.ProductID, req.Quantity, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, apiResponse{
		OK:      true,
		Message: "order #" + strconv.Itoa(o.ID) + " placed: " + strconv.Itoa(o.Quantity) + "x " + o.ProductName + " for " + strconv.FormatFloat(o.Total, 'f', 2, 64),
		ID:      o.ID,
	})
}

// listOrdersHandler lists the order ledger.
// @Summary List orders
// @Produce json
// @Param active query bool false "Only active orders"
// @Success 200 {array} inventory.Order
// @Security ApiKeyAuth
// @Router /orders [get]
func listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	orders, err := eng.ListOrders(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// cancelOrderHandler cancels an order and restores its stock.
// @Summary Cancel order
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} apiResponse
// @Security ApiKeyAuth
// @Router /orders/{id} [delete]
func cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	o, err := eng.CancelOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		OK:      true,
		Message: "order #" + strconv.Itoa(o.ID) + " cancelled, stock of \"" + o.ProductName + "\" restored",
		ID:      o.ID,
	})
}

// statsHandler returns aggregate statistics.
// @Summary Statistics
// @Produce json
// @Success 200 {object} inventory.Stats
// @Security ApiKeyAuth
// @Router /stats [get]
func statsHandler(w http.ResponseWriter, r *http.Request) {
	st, err := eng.Statistics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors to HTTP statuses: bad input 400, unknown
// ids 404, stock and status conflicts 409, storage failures 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation   *inventory.ValidationError
		notFound     *inventory.NotFoundError
		outOfStock   *inventory.OutOfStockError
		insufficient *inventory.InsufficientStockError
		cancelled    *inventory.AlreadyCancelledError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &outOfStock), errors.As(err, &insufficient), errors.As(err, &cancelled):
		status = http.StatusConflict
	default:
		logger.Log.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, apiResponse{OK: false, Message: err.Error()})
}
