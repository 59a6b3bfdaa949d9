package container

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer"
)

func TestGetJWT_OnlyReturnsWhatWasSet(t *testing.T) {
	t.Cleanup(func() { SetJWT(nil) })

	SetJWT(nil)
	// constructing a manager must not register it anywhere
	_ = helpers.NewJWTManager(
		helpers.TokenSettings{Secret: "a", TTL: time.Minute},
		helpers.TokenSettings{Secret: "r", TTL: time.Hour},
		helpers.TokenSettings{Secret: "p", TTL: time.Minute},
	)
	assert.Nil(t, GetJWT())

	m := helpers.NewJWTManager(
		helpers.TokenSettings{Secret: "a", TTL: time.Minute},
		helpers.TokenSettings{Secret: "r", TTL: time.Hour},
		helpers.TokenSettings{Secret: "p", TTL: time.Minute},
	)
	SetJWT(m)
	assert.Same(t, m, GetJWT())
}

func TestGetNotifier_DefaultsToDiscard(t *testing.T) {
	t.Cleanup(func() { SetNotifier(nil) })

	SetNotifier(nil)
	assert.Equal(t, mailer.Discard{}, GetNotifier())
}
