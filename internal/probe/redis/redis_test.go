package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInfo = "# Server\r\nredis_version:7.2.4\r\n\r\n# Clients\r\nconnected_clients:12\r\n\r\n# Memory\r\nused_memory:1048576\r\n\r\n# Stats\r\ninstantaneous_ops_per_sec:42\r\nkeyspace_hits:900\r\nkeyspace_misses:100\r\n\r\n# Keyspace\r\ndb0:keys=150,expires=3,avg_ttl=0\r\n"

func TestParseInfoSkipsHeadersAndBlanks(t *testing.T) {
	info := parseInfo(sampleInfo)
	assert.Equal(t, "12", info["connected_clients"])
	assert.Equal(t, "7.2.4", info["redis_version"])
	assert.Equal(t, "keys=150,expires=3,avg_ttl=0", info["db0"])
	assert.NotContains(t, info, "# Server")
}

func TestInfoInt(t *testing.T) {
	info := parseInfo(sampleInfo)

	v, ok := infoInt(info, "used_memory")
	require.True(t, ok)
	assert.Equal(t, int64(1048576), v)

	_, ok = infoInt(info, "missing_key")
	assert.False(t, ok)

	_, ok = infoInt(map[string]string{"bad": "not-a-number"}, "bad")
	assert.False(t, ok)
}

func TestHitRatio(t *testing.T) {
	ratio, ok := hitRatio(parseInfo(sampleInfo))
	require.True(t, ok)
	assert.InDelta(t, 90.0, ratio, 0.001)

	// rounds to two decimals
	ratio, ok = hitRatio(map[string]string{"keyspace_hits": "1", "keyspace_misses": "2"})
	require.True(t, ok)
	assert.InDelta(t, 33.33, ratio, 0.001)

	// cold cache has no ratio
	_, ok = hitRatio(map[string]string{"keyspace_hits": "0", "keyspace_misses": "0"})
	assert.False(t, ok)
}

func TestKeyspaceKeys(t *testing.T) {
	keys, ok := keyspaceKeys("keys=150,expires=3,avg_ttl=0")
	require.True(t, ok)
	assert.Equal(t, int64(150), keys)

	_, ok = keyspaceKeys("")
	assert.False(t, ok)

	_, ok = keyspaceKeys("expires=3,avg_ttl=0")
	assert.False(t, ok)
}
