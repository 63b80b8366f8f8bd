package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventAccess         EventType = "ACCESS"
	EventModify         EventType = "MODIFY"
	EventDelete         EventType = "DELETE"
	EventLogin          EventType = "LOGIN"
	EventPasswordChange EventType = "PASSWORD_CHANGE"
)

const indexPrefix = "mykana_audit_"

type AuditEvent struct {
	Timestamp   time.Time       `json:"timestamp"`
	EventType   EventType       `json:"event_type"`
	UserID      string          `json:"user_id"`
	Action      string          `json:"action"`
	Resource    string          `json:"resource"`
	ResourceID  string          `json:"resource_id"`
	IPAddress   string          `json:"ip_address,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	Sensitivity string          `json:"sensitivity"`
}

type Service interface {
	LogEvent(ctx context.Context, event *AuditEvent) error
	QueryEvents(ctx context.Context, filters map[string]interface{}, from, size int) ([]AuditEvent, error)
}

type service struct {
	es     *elasticsearch.Client
	logger *logrus.Logger
}

// NewService returns an audit trail that indexes events into Elasticsearch and
// mirrors them to logger. A nil client keeps the log mirror only.
func NewService(esClient *elasticsearch.Client, logger *logrus.Logger) Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	}

	return &service{
		es:     esClient,
		logger: logger,
	}
}

func (s *service) LogEvent(ctx context.Context, event *AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if s.es != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		index := indexPrefix + event.Timestamp.Format("2006.01")
		res, err := s.es.Index(
			index,
			bytes.NewReader(payload),
			s.es.Index.WithContext(ctx),
		)
		if err != nil {
			s.logger.WithError(err).Error("Failed to index audit event")
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			err := fmt.Errorf("audit index returned %s", res.Status())
			s.logger.WithError(err).Error("Failed to index audit event")
			return err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"event_type":  event.EventType,
		"user_id":     event.UserID,
		"action":      event.Action,
		"resource":    event.Resource,
		"resource_id": event.ResourceID,
		"request_id":  event.RequestID,
		"status":      event.Status,
		"sensitivity": event.Sensitivity,
	}).Info("Audit event logged")

	return nil
}

func (s *service) QueryEvents(ctx context.Context, filters map[string]interface{}, from, size int) ([]AuditEvent, error) {
	if s.es == nil {
		return []AuditEvent{}, nil
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": buildQueryFilters(filters),
			},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"from": from,
		"size": size,
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(indexPrefix+"*"),
		s.es.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("audit search returned %s", res.Status())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source AuditEvent `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, err
	}

	events := make([]AuditEvent, len(result.Hits.Hits))
	for i, hit := range result.Hits.Hits {
		events[i] = hit.Source
	}
	return events, nil
}

func buildQueryFilters(filters map[string]interface{}) []map[string]interface{} {
	must := make([]map[string]interface{}, 0, len(filters))
	for field, value := range filters {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{field: value},
		})
	}
	return must
}

// Details marshals v for AuditEvent.Details, dropping it on failure.
func Details(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
