// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package cluster

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipNodePath(t *testing.T) {
	m := NewMembership([]string{"zk:2181"}, "/cloud/nodee", WithHostname("node-17"))
	assert.Equal(t, "/cloud/nodee/nodes/node-17", m.nodePath())
}

func TestMembershipPayload(t *testing.T) {
	m := NewMembership([]string{"zk:2181"}, "/nodee",
		WithHostname("node-17"),
		WithEndpoint(":9731"),
	)

	data, err := m.payload()
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "node-17", out["hostname"])
	assert.Equal(t, ":9731", out["endpoint"])
}

func TestMembershipDefaultsHostname(t *testing.T) {
	m := NewMembership(nil, "/nodee")
	assert.NotEmpty(t, m.hostname)
}

func TestMembershipDisabledWithoutServers(t *testing.T) {
	m := NewMembership(nil, "/nodee")
	assert.Equal(t, "cluster-membership", m.Name())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("disabled membership did not return on cancel")
	}
}
