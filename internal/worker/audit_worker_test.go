package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/merchant-console/internal/events"
	"github.com/spec-kit/merchant-console/internal/service"
)

func TestStartAuditWorker(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditService(dispatcher, nil, 10)
	StartAuditWorker(audit)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{ID: "e1", Type: events.EventSessionExpired}))
	assert.Len(t, audit.Recent(0), 1)

	StartAuditWorker(nil)
}
