package otel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tabula/internal/otel"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := otel.Setup(context.Background(), "tabula-test", " ")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, shutdown(ctx))
}

func TestSetupCreatesProvider(t *testing.T) {
	// немаршрутизируемый адрес: экспорт не происходит
	shutdown, err := otel.Setup(context.Background(), "tabula-test", "http://192.0.2.1:4318")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
