package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/alerts/internal/event"
)

// MetricCategory is the category given to events built from metric data.
const MetricCategory = "METRIC"

// MetricDataMessage is the payload published on the metric data topic.
type MetricDataMessage struct {
	MetricData MetricData `json:"metricData"`
}

// MetricData is a batch of samples for one tenant.
type MetricData struct {
	TenantID string         `json:"tenantId"`
	Metrics  []SingleMetric `json:"metrics"`
}

// SingleMetric is one sample.
type SingleMetric struct {
	Source     string  `json:"source"`
	Timestamp  int64   `json:"timestamp"` // epoch millis
	Value      float64 `json:"value"`
	MetricType int     `json:"metricType"`
}

// DecodeMetricData parses a message value.
func DecodeMetricData(raw []byte) (*MetricDataMessage, error) {
	var msg MetricDataMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode metric data: %w", err)
	}
	if strings.TrimSpace(msg.MetricData.TenantID) == "" {
		return nil, errors.New("metricData.tenantId missing or empty")
	}
	return &msg, nil
}

// Events converts every sample with a source into an event owned by the
// message tenant. dataSource is stamped on each event.
func (m *MetricDataMessage) Events(dataSource string) []*event.Event {
	md := m.MetricData
	out := make([]*event.Event, 0, len(md.Metrics))
	for _, sm := range md.Metrics {
		if event.IsBlank(sm.Source) {
			continue
		}
		out = append(out, &event.Event{
			TenantID:   md.TenantID,
			ID:         sm.Source + "_" + strconv.FormatInt(sm.Timestamp, 10),
			CTime:      sm.Timestamp,
			DataSource: dataSource,
			DataID:     sm.Source,
			Category:   MetricCategory,
			Text:       sm.Source + " = " + strconv.FormatFloat(sm.Value, 'g', -1, 64),
			Context: map[string]string{
				"value":      strconv.FormatFloat(sm.Value, 'f', -1, 64),
				"metricType": strconv.Itoa(sm.MetricType),
			},
		})
	}
	return out
}
