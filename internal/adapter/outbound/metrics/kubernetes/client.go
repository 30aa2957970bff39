package kubernetes

import (
	"fmt"

	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/jonny/serviceops-ai/pkg/version"
)

// Read-only polling needs far less than client-go's default rate.
const (
	clientQPS   = 5
	clientBurst = 10
)

// NewClientset creates a clientset from in-cluster config, or from
// kubeconfigPath. An empty path follows the standard loading rules
// ($KUBECONFIG, then ~/.kube/config).
func NewClientset(inCluster bool, kubeconfigPath string) (k8s.Interface, error) {
	config, err := restConfig(inCluster, kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("building k8s config: %w", err)
	}
	config.QPS = clientQPS
	config.Burst = clientBurst
	config.UserAgent = version.UserAgent()

	return k8s.NewForConfig(config)
}

func restConfig(inCluster bool, kubeconfigPath string) (*rest.Config, error) {
	if inCluster {
		return rest.InClusterConfig()
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
}
