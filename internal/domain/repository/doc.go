// Package repository define los contratos de dominio del subsistema de firma.
//
// Aquí viven los tipos de datos (KeyPair, Certificate, SignatureRecord, Identity)
// y las interfaces de los colaboradores externos: Credential Store, Document
// Store y Audit Sink. El núcleo criptográfico sólo depende de estas interfaces.
//
// Las implementaciones concretas viven en internal/store/ y internal/audit/.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│        docsign.Service / http handlers              │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│  CredentialStore, DocumentStore, AuditSink          │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	         ┌──────────────┼──────────────┐
//	         ▼              ▼              ▼
//	┌─────────────┐  ┌─────────────┐  ┌─────────────┐
//	│   store/    │  │   store/    │  │   store/    │
//	│     pg      │  │     fs      │  │   memory    │
//	└─────────────┘  └─────────────┘  └─────────────┘
//
// Convenciones:
//   - El scope (identidad dueña) se pasa explícitamente
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
package repository
