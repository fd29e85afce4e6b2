package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
)

func TestRollbarLogger(t *testing.T) {
	var out bytes.Buffer
	logger := NewRollbarLogger(log.New(&out, "", 0), &core.Config{Env: "TEST", TestMode: true})

	acc := account.Account{UID: "uid-1", Email: "admin@example.com", DisplayName: "Admin"}
	args := logger.prepare("deleting student", []interface{}{errors.New("boom"), acc, map[string]interface{}{"roll": "PSA-001"}})
	assert.Len(t, args, 3, "the account is consumed as the rollbar person")
	assert.Equal(t, "deleting student", args[0])

	logger.Warn("deleting student", errors.New("boom"))
	assert.Equal(t, "deleting student\nboom\n", out.String())
}
