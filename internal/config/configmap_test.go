package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

type configMaps map[string]*corev1.ConfigMap

func (m configMaps) GetConfigMap(_ context.Context, namespace, name string) (*corev1.ConfigMap, error) {
	if cm, ok := m[namespace+"/"+name]; ok {
		return cm, nil
	}
	return nil, apierrors.NewNotFound(schema.GroupResource{Resource: "configmaps"}, name)
}

func TestLoadFromConfigMap(t *testing.T) {
	getter := configMaps{
		"ops/tablescaler": {
			ObjectMeta: metav1.ObjectMeta{Namespace: "ops", Name: "tablescaler"},
			Data: map[string]string{
				DefaultConfigMapKey: "tableName: orders\nmaxDecreasesPerDay: 2\n",
				"broken.yaml":       "tableName: orders\nreads:\n  threshold:\n    upper: 2\n",
			},
		},
	}
	ctx := context.Background()

	cfg, err := LoadFromConfigMap(ctx, getter, "ops", "tablescaler", "")
	require.NoError(t, err)
	assert.Equal(t, "orders", cfg.TableName)
	assert.Equal(t, 2, cfg.MaxDecreasesPerDay)

	_, err = LoadFromConfigMap(ctx, getter, "ops", "tablescaler", "broken.yaml")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadFromConfigMap(ctx, getter, "ops", "tablescaler", "other.yaml")
	assert.ErrorContains(t, err, `has no key "other.yaml"`)

	_, err = LoadFromConfigMap(ctx, getter, "ops", "missing", "")
	assert.True(t, apierrors.IsNotFound(err))
}
