// internal/logging/secret.go
package logging

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/config"
)

// Secret creates a field that logs only the length of a secret.
func Secret(key string, val config.Secret) zap.Field {
	if !val.IsSet() {
		return zap.String(key, "")
	}
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val.Value()))+"]")
}
