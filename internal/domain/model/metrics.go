package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type HealthStatus string

const (
	HealthStatusHealthy HealthStatus = "healthy"
	HealthStatusWarning HealthStatus = "warning"
	HealthStatusError   HealthStatus = "error"
)

type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// statusKey is the metric name that always carries a HealthStatus.
const statusKey = "status"

// logsKey holds the service's log entries rather than a metric.
const logsKey = "logs"

type ValueKind string

const (
	ValueKindNumber      ValueKind = "number"
	ValueKindPercentiles ValueKind = "percentiles"
	ValueKindStatus      ValueKind = "status"
	ValueKindText        ValueKind = "text"
)

type Percentile struct {
	Name  string
	Value float64
}

// MetricValue is one value of a service metric mapping. Only the field
// matching Kind is meaningful.
type MetricValue struct {
	Kind        ValueKind
	Number      float64
	Percentiles []Percentile
	Status      HealthStatus
	Text        string
}

func NumberValue(v float64) MetricValue {
	return MetricValue{Kind: ValueKindNumber, Number: v}
}

func StatusValue(s HealthStatus) MetricValue {
	return MetricValue{Kind: ValueKindStatus, Status: s}
}

func PercentilesValue(p ...Percentile) MetricValue {
	return MetricValue{Kind: ValueKindPercentiles, Percentiles: p}
}

func TextValue(s string) MetricValue {
	return MetricValue{Kind: ValueKindText, Text: s}
}

// String renders the value the way it appears in prompts.
func (v MetricValue) String() string {
	switch v.Kind {
	case ValueKindNumber:
		return FormatNumber(v.Number)
	case ValueKindStatus:
		return string(v.Status)
	case ValueKindText:
		return v.Text
	case ValueKindPercentiles:
		var buf bytes.Buffer
		for i, p := range v.Percentiles {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(p.Name)
			buf.WriteString("=")
			buf.WriteString(FormatNumber(p.Value))
		}
		return buf.String()
	default:
		return ""
	}
}

// FormatNumber prints integers without a fractional part and everything else
// in the shortest exact form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type MetricField struct {
	Name  string
	Value MetricValue
}

type LogEntry struct {
	Level     LogLevel  `json:"level" yaml:"level"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Message   string    `json:"message" yaml:"message"`
}

// ServiceMetric is the metric mapping of one service. Fields keep the
// provider's key order.
type ServiceMetric struct {
	Name   string
	Fields []MetricField
	Logs   []LogEntry
}

// Field returns the named metric.
func (s ServiceMetric) Field(name string) (MetricValue, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return MetricValue{}, false
}

// Status returns the service health, or "" when the provider reported none.
func (s ServiceMetric) Status() HealthStatus {
	v, ok := s.Field(statusKey)
	if !ok || v.Kind != ValueKindStatus {
		return ""
	}
	return v.Status
}

// PrimaryNumber returns the first numeric field in key order, skipping status.
func (s ServiceMetric) PrimaryNumber() (MetricField, bool) {
	for _, f := range s.Fields {
		if f.Name == statusKey {
			continue
		}
		if f.Value.Kind == ValueKindNumber {
			return f, true
		}
	}
	return MetricField{}, false
}

type MetricsRecord struct {
	Timestamp   time.Time
	Environment string
	Region      string
	Services    []ServiceMetric
}

// MetricsSnapshot is what a metrics provider returns for one request.
type MetricsSnapshot struct {
	Records []MetricsRecord
}

func (s MetricsSnapshot) IsEmpty() bool {
	return len(s.Records) == 0
}

// ServiceCount counts services across all records.
func (s MetricsSnapshot) ServiceCount() int {
	n := 0
	for _, r := range s.Records {
		n += len(r.Services)
	}
	return n
}

// ---- decoding ----

// UnmarshalYAML accepts either a sequence of records or a single record mapping.
func (s *MetricsSnapshot) UnmarshalYAML(node *yaml.Node) error {
	node = resolve(node)
	switch node.Kind {
	case yaml.SequenceNode:
		records := make([]MetricsRecord, 0, len(node.Content))
		for i, item := range node.Content {
			rec, err := decodeRecord(resolve(item))
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			records = append(records, rec)
		}
		s.Records = records
	case yaml.MappingNode:
		rec, err := decodeRecord(node)
		if err != nil {
			return err
		}
		s.Records = []MetricsRecord{rec}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return fmt.Errorf("metrics snapshot: unexpected scalar %q", node.Value)
		}
		s.Records = nil
	default:
		return fmt.Errorf("metrics snapshot: unexpected node kind %d", node.Kind)
	}
	return nil
}

// UnmarshalJSON goes through the YAML decoder, which keeps object key order.
func (s *MetricsSnapshot) UnmarshalJSON(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		s.Records = nil
		return nil
	}
	return yaml.Unmarshal(data, s)
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && (node.Kind == yaml.DocumentNode || node.Kind == yaml.AliasNode) {
		if node.Kind == yaml.DocumentNode {
			if len(node.Content) == 0 {
				return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}
			}
			node = node.Content[0]
			continue
		}
		node = node.Alias
	}
	return node
}

func decodeRecord(node *yaml.Node) (MetricsRecord, error) {
	var rec MetricsRecord
	if node.Kind != yaml.MappingNode {
		return rec, fmt.Errorf("expected mapping, got node kind %d", node.Kind)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, resolve(node.Content[i+1])
		switch key {
		case "timestamp":
			ts, err := parseTimestamp(val.Value)
			if err != nil {
				return rec, fmt.Errorf("timestamp: %w", err)
			}
			rec.Timestamp = ts
		case "environment":
			rec.Environment = val.Value
		case "region":
			rec.Region = val.Value
		case "services":
			if val.Kind != yaml.MappingNode {
				continue
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				svc, err := decodeService(val.Content[j].Value, resolve(val.Content[j+1]))
				if err != nil {
					return rec, fmt.Errorf("service %s: %w", val.Content[j].Value, err)
				}
				rec.Services = append(rec.Services, svc)
			}
		}
	}
	return rec, nil
}

func decodeService(name string, node *yaml.Node) (ServiceMetric, error) {
	svc := ServiceMetric{Name: name}
	if node.Kind != yaml.MappingNode {
		return svc, nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, resolve(node.Content[i+1])
		switch {
		case key == logsKey:
			if val.Kind != yaml.SequenceNode {
				continue
			}
			for _, item := range val.Content {
				entry, err := decodeLog(resolve(item))
				if err != nil {
					return svc, fmt.Errorf("logs: %w", err)
				}
				svc.Logs = append(svc.Logs, entry)
			}
		case key == statusKey:
			svc.Fields = append(svc.Fields, MetricField{Name: key, Value: StatusValue(HealthStatus(val.Value))})
		default:
			if v, ok := decodeValue(val); ok {
				svc.Fields = append(svc.Fields, MetricField{Name: key, Value: v})
			}
		}
	}
	return svc, nil
}

func decodeValue(node *yaml.Node) (MetricValue, bool) {
	switch node.Kind {
	case yaml.ScalarNode:
		if n, ok := numeric(node); ok {
			return NumberValue(n), true
		}
		if node.Tag == "!!null" {
			return MetricValue{}, false
		}
		return TextValue(node.Value), true
	case yaml.MappingNode:
		var ps []Percentile
		for i := 0; i+1 < len(node.Content); i += 2 {
			if n, ok := numeric(resolve(node.Content[i+1])); ok {
				ps = append(ps, Percentile{Name: node.Content[i].Value, Value: n})
			}
		}
		if len(ps) == 0 {
			return MetricValue{}, false
		}
		return PercentilesValue(ps...), true
	default:
		return MetricValue{}, false
	}
}

// numeric reports whether the scalar is an int or float. Booleans and quoted
// strings do not count.
func numeric(node *yaml.Node) (float64, bool) {
	if node.Kind != yaml.ScalarNode {
		return 0, false
	}
	switch node.Tag {
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			return float64(i), true
		}
		var f float64
		if err := node.Decode(&f); err == nil {
			return f, true
		}
	case "!!float":
		var f float64
		if err := node.Decode(&f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func decodeLog(node *yaml.Node) (LogEntry, error) {
	var entry LogEntry
	if node.Kind != yaml.MappingNode {
		return entry, fmt.Errorf("expected mapping, got node kind %d", node.Kind)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, resolve(node.Content[i+1])
		switch key {
		case "level":
			entry.Level = LogLevel(val.Value)
		case "message":
			entry.Message = val.Value
		case "timestamp":
			ts, err := parseTimestamp(val.Value)
			if err != nil {
				return entry, fmt.Errorf("timestamp: %w", err)
			}
			entry.Timestamp = ts
		}
	}
	return entry, nil
}

// localTimestampLayout is ISO 8601 without a zone offset, read as UTC.
const localTimestampLayout = "2006-01-02T15:04:05.999999999"

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		local, localErr := time.Parse(localTimestampLayout, s)
		if localErr != nil {
			return time.Time{}, err
		}
		ts = local
	}
	return ts.UTC(), nil
}

// ---- encoding ----

// MarshalJSON writes the records as a JSON array, keeping service and metric order.
func (s MetricsSnapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, rec := range s.Records {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeRecord(&buf, rec); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalIndent is MarshalJSON with indentation for prompts and logs.
func (s MetricsSnapshot) MarshalIndent() (string, error) {
	raw, err := s.MarshalJSON()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

func writeRecord(buf *bytes.Buffer, rec MetricsRecord) error {
	buf.WriteByte('{')
	writeKey(buf, "timestamp")
	writeString(buf, formatTimestamp(rec.Timestamp))
	buf.WriteByte(',')
	writeKey(buf, "environment")
	writeString(buf, rec.Environment)
	buf.WriteByte(',')
	writeKey(buf, "region")
	writeString(buf, rec.Region)
	buf.WriteByte(',')
	writeKey(buf, "services")
	buf.WriteByte('{')
	for i, svc := range rec.Services {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeKey(buf, svc.Name)
		if err := writeService(buf, svc); err != nil {
			return fmt.Errorf("service %s: %w", svc.Name, err)
		}
	}
	buf.WriteString("}}")
	return nil
}

func writeService(buf *bytes.Buffer, svc ServiceMetric) error {
	buf.WriteByte('{')
	for i, f := range svc.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeKey(buf, f.Name)
		writeValue(buf, f.Value)
	}
	if len(svc.Logs) > 0 {
		if len(svc.Fields) > 0 {
			buf.WriteByte(',')
		}
		writeKey(buf, logsKey)
		buf.WriteByte('[')
		for i, l := range svc.Logs {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('{')
			writeKey(buf, "level")
			writeString(buf, string(l.Level))
			buf.WriteByte(',')
			writeKey(buf, "timestamp")
			writeString(buf, formatTimestamp(l.Timestamp))
			buf.WriteByte(',')
			writeKey(buf, "message")
			writeString(buf, l.Message)
			buf.WriteByte('}')
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, v MetricValue) {
	switch v.Kind {
	case ValueKindNumber:
		writeNumber(buf, v.Number)
	case ValueKindStatus:
		writeString(buf, string(v.Status))
	case ValueKindPercentiles:
		buf.WriteByte('{')
		for i, p := range v.Percentiles {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeKey(buf, p.Name)
			writeNumber(buf, p.Value)
		}
		buf.WriteByte('}')
	default:
		writeString(buf, v.Text)
	}
}

// writeNumber emits null for values JSON cannot represent.
func writeNumber(buf *bytes.Buffer, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		buf.WriteString("null")
		return
	}
	buf.WriteString(FormatNumber(v))
}

func writeKey(buf *bytes.Buffer, k string) {
	writeString(buf, k)
	buf.WriteByte(':')
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
