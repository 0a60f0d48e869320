package cache

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordergate/internal/conversation"
	"ordergate/internal/intent"
)

// =====================================================================
// Key derivation
// =====================================================================

func TestKey_NormalizesMessage(t *testing.T) {
	a := Key("  Cancel My Order  ", nil, nil)
	b := Key("cancel my order", nil, nil)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "ai:"))
}

func TestKey_ContextSensitive(t *testing.T) {
	history := []conversation.Turn{
		{Role: conversation.RoleAssistant, Content: "Should I cancel ORD-2024-001?"},
	}

	bare := Key("yes", nil, nil)
	inContext := Key("yes", history, nil)

	// "yes" answers different questions in different conversational states.
	assert.NotEqual(t, bare, inContext)
}

func TestKey_TurnCountMatters(t *testing.T) {
	turn := conversation.Turn{Role: conversation.RoleUser, Content: "hello"}

	short := Key("yes", []conversation.Turn{turn}, nil)
	long := Key("yes", []conversation.Turn{turn, turn}, nil)

	assert.NotEqual(t, short, long)
}

func TestKey_MetadataOrderIrrelevant(t *testing.T) {
	a := Key("hello", nil, map[string]string{"user": "u1", "tier": "gold"})
	b := Key("hello", nil, map[string]string{"tier": "gold", "user": "u1"})

	assert.Equal(t, a, b)
}

func TestKey_MetadataValuesMatter(t *testing.T) {
	a := Key("hello", nil, map[string]string{"user": "u1"})
	b := Key("hello", nil, map[string]string{"user": "u2"})

	assert.NotEqual(t, a, b)
}

// =====================================================================
// Two-layer behavior (LRU only; Redis layer is covered by integration tests)
// =====================================================================

func TestCache_PutGetWithoutRedis(t *testing.T) {
	c := New(nil)
	ctx := context.Background()
	key := Key("cancel my order", nil, nil)

	assert.Nil(t, c.Get(ctx, key))

	si := &intent.StructuredIntent{Action: intent.ActionCancelOrders, Message: "Which order?"}
	c.Put(ctx, key, si)

	got := c.Get(ctx, key)
	require.NotNil(t, got)
	assert.Equal(t, intent.ActionCancelOrders, got.Action)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(nil, WithTTL(10*time.Millisecond))
	ctx := context.Background()
	key := Key("hello", nil, nil)

	c.Put(ctx, key, &intent.StructuredIntent{Action: intent.ActionGeneralInquiry, Message: "hi"})
	require.NotNil(t, c.Get(ctx, key))

	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, c.Get(ctx, key))
}

func TestLRU_EvictsOldest(t *testing.T) {
	lru := newLRUCache(2)
	ttl := time.Minute

	lru.put("a", &intent.StructuredIntent{Message: "a"}, ttl)
	lru.put("b", &intent.StructuredIntent{Message: "b"}, ttl)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := lru.get("a")
	require.True(t, ok)

	lru.put("c", &intent.StructuredIntent{Message: "c"}, ttl)

	_, ok = lru.get("a")
	assert.True(t, ok)
	_, ok = lru.get("b")
	assert.False(t, ok)
	_, ok = lru.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, lru.len())
}

func TestLRU_CapacityBounded(t *testing.T) {
	lru := newLRUCache(8)
	for i := 0; i < 100; i++ {
		lru.put(fmt.Sprintf("key-%d", i), &intent.StructuredIntent{}, time.Minute)
	}
	assert.Equal(t, 8, lru.len())
}
