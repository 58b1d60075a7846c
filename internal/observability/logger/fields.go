package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/securesign/internal/util"
)

// =================================================================================
// HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// =================================================================================
// DOMINIO
// =================================================================================

// Identity enmascara la referencia (email) de una identidad.
func Identity(ref string) zap.Field {
	return zap.String("identity", util.MaskEmail(ref))
}

// Scope enmascara el scope de documentos (también un email).
func Scope(v string) zap.Field {
	return zap.String("scope", util.MaskEmail(v))
}

// Fingerprint loguea una versión corta del fingerprint.
func Fingerprint(v string) zap.Field {
	return zap.String("fingerprint", util.ShortFingerprint(v))
}

// Digest loguea los primeros 16 caracteres de un digest.
func Digest(v string) zap.Field {
	if len(v) > 16 {
		v = v[:16]
	}
	return zap.String("digest", v)
}

func Serial(v string) zap.Field    { return zap.String("serial", v) }
func RecordID(v string) zap.Field  { return zap.String("record_id", v) }
func KeyBits(v int) zap.Field      { return zap.Int("key_bits", v) }
func Outcome(v string) zap.Field   { return zap.String("outcome", v) }
func Driver(v string) zap.Field    { return zap.String("driver", v) }
func EventKind(v string) zap.Field { return zap.String("event_type", v) }

// =================================================================================
// SISTEMA
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
