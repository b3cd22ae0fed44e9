package config

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
)

// DefaultConfigMapKey is the ConfigMap data key holding the YAML document.
const DefaultConfigMapKey = "config.yaml"

// ConfigMapGetter fetches a ConfigMap by namespace and name
type ConfigMapGetter interface {
	GetConfigMap(ctx context.Context, namespace, name string) (*corev1.ConfigMap, error)
}

// LoadFromConfigMap reads the YAML configuration stored under key in a ConfigMap
func LoadFromConfigMap(ctx context.Context, getter ConfigMapGetter, namespace, name, key string) (*Config, error) {
	if key == "" {
		key = DefaultConfigMapKey
	}

	cm, err := getter.GetConfigMap(ctx, namespace, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get configmap %s/%s: %w", namespace, name, err)
	}

	data, ok := cm.Data[key]
	if !ok {
		return nil, fmt.Errorf("configmap %s/%s has no key %q", namespace, name, key)
	}

	return Parse([]byte(data))
}
