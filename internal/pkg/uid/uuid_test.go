package uid_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
)

func TestUUID_Generate(t *testing.T) {
	var gen uid.StringID = uid.NewUUID()

	a, b := gen.Generate(), gen.Generate()

	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestValid(t *testing.T) {
	assert.True(t, uid.Valid(uid.NewUUID().Generate()))
	assert.False(t, uid.Valid("not-a-uuid"))
	assert.False(t, uid.Valid(""))
}
