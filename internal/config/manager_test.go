package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
log:
  level: 3

session:
  timeout: 45s
  use_sessions: true
  cache_enabled: true
  config_commands:
    - vlan
    - interfaces
    - aaa

devices:
  - name: core1
    host: 10.0.0.1
    username: admin
    password: switch
  - name: edge1
    host: 10.0.0.2
    port: 2222
    username: admin
    password: switch
    protocol: scrapli
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aosctl.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestManager_Load(t *testing.T) {
	m, err := NewManager(writeConfig(t, testConfig))
	require.NoError(t, err)

	devices := m.Devices()
	require.Len(t, devices, 2)

	core1, ok := m.Device("core1")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", core1.Host)
	// 未声明的字段填缺省值
	assert.Equal(t, 22, core1.Port)
	assert.Equal(t, "alcatel_aos", core1.Platform)
	assert.Equal(t, "ssh", core1.Protocol)

	edge1, ok := m.Device("edge1")
	require.True(t, ok)
	assert.Equal(t, 2222, edge1.Port)
	assert.Equal(t, "scrapli", edge1.Protocol)

	sess := m.Session()
	assert.Equal(t, 45*time.Second, sess.Timeout)
	assert.True(t, sess.UseSessions)
	assert.True(t, sess.CacheEnabled)
	assert.Equal(t, []string{"vlan", "interfaces", "aaa"}, sess.ConfigCommands)
	assert.Equal(t, "no more", sess.DisablePagingCommand)

	assert.Equal(t, 3, m.LogLevel())
	assert.Equal(t, int64(1), m.Version())
}

func TestManager_Defaults(t *testing.T) {
	m, err := NewManager(writeConfig(t, `
devices:
  - name: core1
    host: 10.0.0.1
`))
	require.NoError(t, err)

	sess := m.Session()
	assert.Equal(t, 30*time.Second, sess.Timeout)
	assert.True(t, sess.UseSessions)
	assert.True(t, sess.CacheEnabled)
	assert.Empty(t, sess.ConfigCommands)
	assert.Equal(t, "no more", sess.DisablePagingCommand)
}

func TestManager_MissingFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}

func TestManager_InvalidDevice(t *testing.T) {
	_, err := NewManager(writeConfig(t, `
devices:
  - host: 10.0.0.1
`))
	require.Error(t, err)
}

func TestManager_UnknownDevice(t *testing.T) {
	m, err := NewManager(writeConfig(t, testConfig))
	require.NoError(t, err)

	_, ok := m.Device("nonexistent")
	assert.False(t, ok)
}

func TestManager_Subscribe(t *testing.T) {
	m, err := NewManager(writeConfig(t, testConfig))
	require.NoError(t, err)

	ch := m.Subscribe()
	select {
	case <-ch:
		t.Fatal("no notification expected before a change")
	default:
	}

	// reload 后版本推进并通知订阅者
	require.NoError(t, m.reload())
	// 内容未变时不通知
	select {
	case <-ch:
		t.Fatal("unchanged config must not notify")
	default:
	}
}
