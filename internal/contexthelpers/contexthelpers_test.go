package contexthelpers_test

import (
	"github.com/myrjola/kastor/internal/contexthelpers"
	"github.com/stretchr/testify/assert"
	"net/http/httptest"
	"testing"
)

func TestRequestContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	ctx := r.Context()
	assert.Empty(t, contexthelpers.CSRFToken(ctx))
	assert.Empty(t, contexthelpers.CSPNonce(ctx))
	assert.False(t, contexthelpers.IsHTMX(ctx))

	r = contexthelpers.SetCurrentPath(r, "/episode")
	r = contexthelpers.SetCSRFToken(r, "token")
	r = contexthelpers.SetCSPNonce(r, "nonce")
	r = contexthelpers.SetHTMX(r, true)
	ctx = r.Context()
	assert.Equal(t, "/episode", contexthelpers.CurrentPath(ctx))
	assert.Equal(t, "token", contexthelpers.CSRFToken(ctx))
	assert.Equal(t, "nonce", contexthelpers.CSPNonce(ctx))
	assert.True(t, contexthelpers.IsHTMX(ctx))
}
