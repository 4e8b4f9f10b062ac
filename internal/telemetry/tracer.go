// Package telemetry は OpenTelemetry のトレーサと Prometheus のメトリクスをまとめる。
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// NewTracerProvider は exporter 名に応じた TracerProvider を作ってグローバルに登録する。
// "none" の場合も provider は作る（span は捨てられる）。戻り値の関数で flush & shutdown。
func NewTracerProvider(exporter string, w io.Writer, logger *zap.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if w == nil {
		w = os.Stdout
	}

	var opts []sdktrace.TracerProviderOption
	switch exporter {
	case ExporterNone, "":
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdouttrace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracer provider initialized", zap.String("exporter", exporter))
	return tp.Shutdown, nil
}
