package callerctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	id := Identity{
		AccountID: "  acc-1 ",
		DeviceIDs: []string{" d1", "", "d1", "d2 "},
		LastIP:    " 10.0.0.1 ",
	}.Normalize()

	assert.Equal(t, "acc-1", id.AccountID)
	assert.Equal(t, []string{"d1", "d2"}, id.DeviceIDs)
	assert.Equal(t, "10.0.0.1", id.LastIP)
}

func TestOwnerRefs(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		want     []string
	}{
		{
			name:     "account and devices",
			identity: Identity{AccountID: "acc-1", DeviceIDs: []string{"d1", "d2"}},
			want:     []string{"acc-1", "d1", "d2"},
		},
		{
			name:     "anonymous",
			identity: Identity{DeviceIDs: []string{"d1"}},
			want:     []string{"d1"},
		},
		{
			name:     "account only",
			identity: Identity{AccountID: "acc-1"},
			want:     []string{"acc-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.identity.OwnerRefs())
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{AccountID: "acc-1"})

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "acc-1", got.AccountID)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, Identity{}.IsEmpty())
	assert.True(t, Identity{AccountID: "  "}.IsEmpty())
	assert.False(t, Identity{DeviceIDs: []string{"d1"}}.IsEmpty())
	assert.False(t, Identity{AccountID: "acc-1"}.IsEmpty())
}
