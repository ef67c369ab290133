package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/vitrina-stock/internal/application/dto"
	"github.com/jhoicas/vitrina-stock/internal/domain"
)

// Resultado de un carrito para la etiqueta outcome.
const (
	OutcomeSuccess  = "success"
	OutcomePartial  = "partial"
	OutcomeRejected = "rejected"
)

// Metrics colectores del servicio, en un registry propio.
type Metrics struct {
	registry     *prometheus.Registry
	cartSales    *prometheus.CounterVec
	saleItems    *prometheus.CounterVec
	adjustments  *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics registra los colectores del servicio más los de runtime de Go y del proceso.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cartSales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitrina_cart_sales_total",
			Help: "Carritos procesados por resultado.",
		}, []string{"outcome"}),
		saleItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitrina_cart_sale_items_total",
			Help: "Ítems de carrito procesados por código (OK o código de error).",
		}, []string{"code"}),
		adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitrina_stock_adjustments_total",
			Help: "Ajustes manuales por resultado.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vitrina_http_request_duration_seconds",
			Help:    "Latencia de requests HTTP por ruta.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.cartSales, m.saleItems, m.adjustments, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry para pruebas.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveCartSale cuenta el carrito y cada uno de sus ítems.
func (m *Metrics) ObserveCartSale(res dto.CartSaleResult) {
	ok := 0
	for _, it := range res.Results {
		code := it.ErrorCode
		if it.Success {
			code = "OK"
			ok++
		}
		m.saleItems.WithLabelValues(code).Inc()
	}
	outcome := OutcomePartial
	switch {
	case res.Success:
		outcome = OutcomeSuccess
	case ok == 0:
		outcome = OutcomeRejected
	}
	m.cartSales.WithLabelValues(outcome).Inc()
}

// ObserveAdjustment cuenta un ajuste manual según su error.
func (m *Metrics) ObserveAdjustment(err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInsufficientStock):
		result = "insufficient_stock"
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrStockTrackingDisabled):
		result = "rejected"
	case errors.Is(err, domain.ErrInvalidInput):
		result = "invalid"
	default:
		result = "error"
	}
	m.adjustments.WithLabelValues(result).Inc()
}

// ObserveHTTP registra la latencia de un request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
