package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	hits    []Hit
	err     error
	calls   int
	authErr bool
	topK    int
}

func (f *fakeBackend) Search(ctx context.Context, queryText string, topK int) ([]Hit, error) {
	f.calls++
	f.topK = topK
	if f.err != nil {
		if f.authErr {
			return nil, WrapAuthError(f.err)
		}
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeBackend) Healthy(ctx context.Context) (bool, bool) { return true, len(f.hits) > 0 }

func TestGatewayFiltersByRelevance(t *testing.T) {
	backend := &fakeBackend{hits: []Hit{
		{Document: "a", Score: 0.9},
		{Document: "b", Score: 0.5},
	}}
	gw := NewGateway(backend, GatewayConfig{RelevanceThreshold: 0.7})

	hits, err := gw.Retrieve(context.Background(), "extension depth", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Document)
}

func TestGatewayClampsTopK(t *testing.T) {
	backend := &fakeBackend{}
	gw := NewGateway(backend, GatewayConfig{})

	_, err := gw.Retrieve(context.Background(), "q", 999)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, 20, backend.topK)
}

func TestGatewayDoesNotRetryAuthErrors(t *testing.T) {
	backend := &fakeBackend{err: errors.New("401 unauthorized"), authErr: true}
	gw := NewGateway(backend, GatewayConfig{})

	_, err := gw.Retrieve(context.Background(), "q", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	assert.Equal(t, 1, backend.calls)
}
