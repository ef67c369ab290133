package inventory

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/jhoicas/vitrina-stock/internal/application/inventory")
