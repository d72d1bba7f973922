package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yourorg/checkout-orchestrator/internal/config"
	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/gateway/circuitbreaker"
	"github.com/yourorg/checkout-orchestrator/internal/inflight"
	"github.com/yourorg/checkout-orchestrator/internal/monitor"
	"github.com/yourorg/checkout-orchestrator/internal/order"
	"github.com/yourorg/checkout-orchestrator/internal/reporting"
	"github.com/yourorg/checkout-orchestrator/internal/screening"
	"github.com/yourorg/checkout-orchestrator/internal/store"
)

// paymentGateway is the slice of the gateway client the handlers use,
// narrowed so tests can substitute a stub.
type paymentGateway interface {
	CreatePaymentIntent(ctx context.Context, params gateway.CreateIntentParams) (gateway.PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, id string, params gateway.ConfirmIntentParams) (gateway.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (gateway.PaymentIntent, error)
}

type server struct {
	coordinator *order.Coordinator
	gateway     paymentGateway
	monitor     *monitor.ContractMonitor
	recorder    *reporting.Recorder
}

// createIntentRequest creates a payment intent, optionally confirming it
// in the same call when confirmation parameters are supplied.
type createIntentRequest struct {
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	MerchantOrderID string            `json:"merchant_order_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	PaymentMethod   map[string]any    `json:"payment_method,omitempty"`
	PaymentMethodID string            `json:"payment_method_id,omitempty"`
	ReturnURL       string            `json:"return_url,omitempty"`
}

func (s *server) createPaymentIntentHandler(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: amount must be positive"})
		return
	}
	if req.Currency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: currency is required"})
		return
	}

	intent, err := s.gateway.CreatePaymentIntent(c.Request.Context(), gateway.CreateIntentParams{
		Amount:          req.Amount,
		Currency:        req.Currency,
		MerchantOrderID: req.MerchantOrderID,
		Metadata:        req.Metadata,
	})
	if err != nil {
		writeGatewayError(c, err)
		return
	}

	if req.PaymentMethodID != "" || req.PaymentMethod != nil {
		intent, err = s.gateway.ConfirmPaymentIntent(c.Request.Context(), intent.ID, gateway.ConfirmIntentParams{
			PaymentMethod:   req.PaymentMethod,
			PaymentMethodID: req.PaymentMethodID,
			ReturnURL:       req.ReturnURL,
		})
		if err != nil {
			writeGatewayError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, intent)
}

func (s *server) confirmPaymentIntentHandler(c *gin.Context) {
	var params gateway.ConfirmIntentParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	intent, err := s.gateway.ConfirmPaymentIntent(c.Request.Context(), c.Param("id"), params)
	if err != nil {
		writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (s *server) getPaymentIntentHandler(c *gin.Context) {
	intent, err := s.gateway.GetPaymentIntent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (s *server) submitOrderHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body: " + err.Error()})
		return
	}

	valid, violations, err := s.monitor.Validate(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": monitor.FormatErrors(violations)})
		return
	}

	var req order.MerchantOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := s.coordinator.Submit(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, order.ErrDuplicateInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			log.Printf("submitOrderHandler: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) orderRetrospectiveHandler(c *gin.Context) {
	c.JSON(http.StatusOK, reporting.GenerateRetrospective(s.recorder.Entries()))
}

func writeGatewayError(c *gin.Context, err error) {
	var apiErr *gateway.APIError
	switch {
	case errors.Is(err, gateway.ErrCircuitOpen):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		c.JSON(http.StatusBadRequest, gin.H{"error": apiErr.Error()})
	default:
		log.Printf("gateway call failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func setupRouter(s *server) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("checkout-orchestrator"))

	router.POST("/payment-intents", s.createPaymentIntentHandler)
	router.POST("/payment-intents/:id/confirm", s.confirmPaymentIntentHandler)
	router.GET("/payment-intents/:id", s.getPaymentIntentHandler)
	router.POST("/orders", s.submitOrderHandler)
	router.GET("/reports/orders", s.orderRetrospectiveHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func setupTracing() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, nil
}

func openStore(cfg config.Config) (store.Store, func(), error) {
	if cfg.StoreBackend == config.StoreBolt {
		bs, err := store.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return bs, func() { bs.Close() }, nil
	}
	return store.NewMemoryStore(), func() {}, nil
}

func main() {
	log.Println("Starting checkout orchestrator...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	tp, err := setupTracing()
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open order store: %v", err)
	}
	defer closeStore()

	screener, err := screening.NewScreener(screening.DefaultRules())
	if err != nil {
		log.Fatalf("Failed to compile screening rules: %v", err)
	}

	contractMonitor, err := monitor.NewContractMonitor(monitor.OrderSubmissionSchema)
	if err != nil {
		log.Fatalf("Failed to compile order submission schema: %v", err)
	}

	recorder := reporting.NewRecorder(10000)
	coordinator := order.NewCoordinator(st, inflight.NewRegistry(), order.Options{
		DuplicateScanWindow: cfg.DuplicateScanWindow,
		ProviderTag:         cfg.PaymentProviderTag,
		Screener:            screener,
		Recorder:            recorder,
	})

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:  cfg.GatewayBaseURL,
		ClientID: cfg.GatewayClientID,
		APIKey:   cfg.GatewayAPIKey,
	}, nil, circuitbreaker.New(circuitbreaker.Config{}))

	srv := &server{
		coordinator: coordinator,
		gateway:     gatewayClient,
		monitor:     contractMonitor,
		recorder:    recorder,
	}

	router := setupRouter(srv)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
