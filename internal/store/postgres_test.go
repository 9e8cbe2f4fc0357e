package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateTableSQLUsesConfiguredDimension(t *testing.T) {
	assert.Contains(t, createTableSQL(768), "embedding vector(768) NOT NULL")
	assert.Contains(t, createTableSQL(1024), "embedding vector(1024) NOT NULL")
	assert.NotContains(t, createTableSQL(1024), "768")
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.5,-1,0.25]", vectorLiteral([]float32{0.5, -1, 0.25}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}
