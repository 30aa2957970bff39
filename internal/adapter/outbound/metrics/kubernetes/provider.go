package kubernetes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
)

const defaultEventLimit = 5

// Config selects which deployments are reported and how the record is labelled.
// An empty Namespaces list means all namespaces.
type Config struct {
	Namespaces  []string
	Environment string
	Region      string
	EventLimit  int
}

// Provider reports each Deployment as a service: replica counts, container
// restarts, a readiness-derived status and recent Warning events as logs.
type Provider struct {
	clientset kubernetes.Interface
	config    Config
	now       func() time.Time
}

func NewProvider(clientset kubernetes.Interface, cfg Config) *Provider {
	if cfg.EventLimit <= 0 {
		cfg.EventLimit = defaultEventLimit
	}
	return &Provider{clientset: clientset, config: cfg, now: time.Now}
}

var _ outbound.MetricsProvider = (*Provider)(nil)

func (p *Provider) Name() string { return "kubernetes" }

// Get implements outbound.MetricsProvider.
func (p *Provider) Get(ctx context.Context) (model.MetricsSnapshot, error) {
	namespaces := p.config.Namespaces
	if len(namespaces) == 0 {
		namespaces = []string{metav1.NamespaceAll}
	}
	qualify := len(namespaces) != 1 || namespaces[0] == metav1.NamespaceAll

	rec := model.MetricsRecord{
		Timestamp:   p.now().UTC().Truncate(time.Second),
		Environment: p.config.Environment,
		Region:      p.config.Region,
	}

	for _, ns := range namespaces {
		services, err := p.collectNamespace(ctx, ns, qualify)
		if err != nil {
			return model.MetricsSnapshot{}, err
		}
		rec.Services = append(rec.Services, services...)
	}

	if len(rec.Services) == 0 {
		return model.MetricsSnapshot{}, nil
	}
	return model.MetricsSnapshot{Records: []model.MetricsRecord{rec}}, nil
}

// HealthCheck lists a single namespace to verify the API server is reachable.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("kubernetes health check failed: %w", err)
	}
	return nil
}

func (p *Provider) collectNamespace(ctx context.Context, namespace string, qualify bool) ([]model.ServiceMetric, error) {
	deployments, err := p.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing deployments in %q: %w", namespace, err)
	}
	if len(deployments.Items) == 0 {
		return nil, nil
	}

	events, err := p.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: "type=" + corev1.EventTypeWarning,
	})
	if err != nil {
		return nil, fmt.Errorf("listing events in %q: %w", namespace, err)
	}

	items := deployments.Items
	sort.Slice(items, func(i, j int) bool {
		if items[i].Namespace != items[j].Namespace {
			return items[i].Namespace < items[j].Namespace
		}
		return items[i].Name < items[j].Name
	})

	services := make([]model.ServiceMetric, 0, len(items))
	for i := range items {
		svc, err := p.describeDeployment(ctx, &items[i], events.Items, qualify)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}

func (p *Provider) describeDeployment(ctx context.Context, d *appsv1.Deployment, events []corev1.Event, qualify bool) (model.ServiceMetric, error) {
	pods, err := p.podsFor(ctx, d)
	if err != nil {
		return model.ServiceMetric{}, err
	}

	desired := int32(1)
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}
	ready := d.Status.ReadyReplicas

	var restarts int32
	podNames := make(map[string]bool, len(pods))
	for i := range pods {
		podNames[pods[i].Name] = true
		for _, cs := range pods[i].Status.ContainerStatuses {
			restarts += cs.RestartCount
		}
	}

	name := d.Name
	if qualify {
		name = d.Namespace + "/" + d.Name
	}

	svc := model.ServiceMetric{
		Name: name,
		Fields: []model.MetricField{
			{Name: "ReadyReplicas", Value: model.NumberValue(float64(ready))},
			{Name: "DesiredReplicas", Value: model.NumberValue(float64(desired))},
			{Name: "UnavailableReplicas", Value: model.NumberValue(float64(d.Status.UnavailableReplicas))},
			{Name: "Restarts", Value: model.NumberValue(float64(restarts))},
			{Name: "status", Value: model.StatusValue(deploymentStatus(ready, desired))},
		},
		Logs: p.warningLogs(d, podNames, events),
	}
	return svc, nil
}

func (p *Provider) podsFor(ctx context.Context, d *appsv1.Deployment) ([]corev1.Pod, error) {
	if d.Spec.Selector == nil {
		return nil, nil
	}
	selector, err := metav1.LabelSelectorAsSelector(d.Spec.Selector)
	if err != nil {
		return nil, fmt.Errorf("deployment %s/%s selector: %w", d.Namespace, d.Name, err)
	}
	list, err := p.clientset.CoreV1().Pods(d.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("listing pods for %s/%s: %w", d.Namespace, d.Name, err)
	}
	return list.Items, nil
}

// warningLogs keeps the most recent Warning events that concern the
// deployment, its replica sets or its pods, oldest first.
func (p *Provider) warningLogs(d *appsv1.Deployment, pods map[string]bool, events []corev1.Event) []model.LogEntry {
	var logs []model.LogEntry
	for i := range events {
		e := &events[i]
		if e.Type != corev1.EventTypeWarning || e.InvolvedObject.Namespace != d.Namespace {
			continue
		}
		if !concerns(d, pods, e.InvolvedObject) {
			continue
		}
		logs = append(logs, model.LogEntry{
			Level:     model.LogLevelWarning,
			Timestamp: eventTime(e).UTC(),
			Message:   fmt.Sprintf("%s %s/%s: %s", e.Reason, e.InvolvedObject.Kind, e.InvolvedObject.Name, e.Message),
		})
	}

	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.Before(logs[j].Timestamp) })
	if len(logs) > p.config.EventLimit {
		logs = logs[len(logs)-p.config.EventLimit:]
	}
	return logs
}

func concerns(d *appsv1.Deployment, pods map[string]bool, ref corev1.ObjectReference) bool {
	switch ref.Kind {
	case "Deployment":
		return ref.Name == d.Name
	case "ReplicaSet":
		return strings.HasPrefix(ref.Name, d.Name+"-")
	case "Pod":
		return pods[ref.Name]
	}
	return false
}

func eventTime(e *corev1.Event) time.Time {
	switch {
	case !e.LastTimestamp.IsZero():
		return e.LastTimestamp.Time
	case !e.EventTime.IsZero():
		return e.EventTime.Time
	default:
		return e.CreationTimestamp.Time
	}
}

func deploymentStatus(ready, desired int32) model.HealthStatus {
	switch {
	case ready >= desired:
		return model.HealthStatusHealthy
	case ready == 0:
		return model.HealthStatusError
	default:
		return model.HealthStatusWarning
	}
}
