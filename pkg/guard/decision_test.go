package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mchmarny/navd/pkg/router"
)

func TestLoginLocation(t *testing.T) {
	tests := map[string]string{
		"":                     "/login",
		"/reports":             "/login?redirect=/reports",
		"/system/users":        "/login?redirect=/system/users",
		"/reports?tab=2":       "/login?redirect=/reports%3Ftab%3D2",
		"/a b":                 "/login?redirect=/a+b",
		"/mail/user@host:8080": "/login?redirect=/mail/user@host:8080",
	}
	for target, want := range tests {
		assert.Equal(t, want, LoginLocation(target), target)
	}
}

func TestDecisionVerdict(t *testing.T) {
	assert.Equal(t, router.Allow(), Decision{Outcome: Allow}.Verdict())

	v := Decision{Outcome: RedirectTarget, Location: "/reports", Replace: true}.Verdict()
	assert.False(t, v.Allow)
	assert.Equal(t, "/reports", v.Location)
	assert.True(t, v.Replace)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "redirect_login", RedirectLogin.String())
	assert.Equal(t, "redirect_target", RedirectTarget.String())
	assert.Equal(t, "redirect_root", RedirectRoot.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}
