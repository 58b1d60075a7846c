// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: Una sola instancia global inicializada con Init().
//   - Context Scoping: cada request HTTP lleva su logger "scoped" (request_id)
//     que los services recuperan con From(ctx).
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Material sensible: nunca se loguean claves privadas ni firmas completas;
//     los digests van recortados (Digest) y los emails enmascarados (Identity).
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
// En handlers/services (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("document_signed", logger.Scope(scope), logger.Digest(d))
package logger
