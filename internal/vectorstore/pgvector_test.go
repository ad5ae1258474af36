package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPgVectorStore_IndexDDL(t *testing.T) {
	s := NewPgVectorStore(nil, DistanceCosine)

	ddl, ok := s.indexDDL("collection_1", 1536)
	assert.True(t, ok)
	assert.Contains(t, ddl, "USING hnsw (embedding vector_cosine_ops)")

	ddl, ok = s.indexDDL("collection_1", maxIndexedDimension)
	assert.True(t, ok)
	assert.NotEmpty(t, ddl)

	_, ok = s.indexDDL("collection_1", 3072)
	assert.False(t, ok, "hnsw cannot index more than 2000 dimensions")

	ddl, ok = NewPgVectorStore(nil, DistanceDot).indexDDL("collection_1", 8)
	assert.True(t, ok)
	assert.Contains(t, ddl, "vector_ip_ops")
}
