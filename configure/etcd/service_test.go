package etcd_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gocrud/beans/configure/etcd"
)

func TestOptionsValidate(t *testing.T) {
	opts := etcd.NewDefaultOptions("config")
	require.NoError(t, opts.Validate())

	opts.Endpoints = nil
	require.Error(t, opts.Validate())

	opts = etcd.NewDefaultOptions("")
	require.Error(t, opts.Validate())

	opts = etcd.NewDefaultOptions("config")
	opts.DialTimeout = 0
	require.Error(t, opts.Validate())
}

func TestFactoryGetUnknown(t *testing.T) {
	factory := etcd.NewClientFactory()
	_, err := factory.Get("missing")
	require.Error(t, err)
}
