package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedService(t *testing.T) (Service, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return NewService(nil, logger), buf
}

func TestLogEventWithoutElasticsearch(t *testing.T) {
	svc, buf := newBufferedService(t)

	event := &AuditEvent{
		EventType:   EventModify,
		UserID:      "patient-1",
		Action:      "CREATE",
		Resource:    "medication",
		ResourceID:  "med-1",
		Status:      "success",
		Sensitivity: "PHI",
	}
	require.NoError(t, svc.LogEvent(context.Background(), event))
	assert.False(t, event.Timestamp.IsZero())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Audit event logged", entry["msg"])
	assert.Equal(t, "MODIFY", entry["event_type"])
	assert.Equal(t, "patient-1", entry["user_id"])
	assert.Equal(t, "med-1", entry["resource_id"])
}

func TestQueryEventsWithoutElasticsearch(t *testing.T) {
	svc, _ := newBufferedService(t)

	events, err := svc.QueryEvents(context.Background(), map[string]interface{}{"user_id": "x"}, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NotNil(t, events)
}

func TestBuildQueryFilters(t *testing.T) {
	must := buildQueryFilters(map[string]interface{}{"resource": "checkin"})
	require.Len(t, must, 1)
	assert.Equal(t, map[string]interface{}{
		"match": map[string]interface{}{"resource": "checkin"},
	}, must[0])

	assert.Empty(t, buildQueryFilters(nil))
}

func TestDetails(t *testing.T) {
	assert.JSONEq(t, `{"level":"beginner"}`, string(Details(map[string]string{"level": "beginner"})))
	assert.Nil(t, Details(make(chan int)))
}
