// Package app composes the invoicing services into a running application.
//
// # Architecture Role
//
// The app package wires storage, caches and domain services together and
// manages their lifecycle. It holds no business rules of its own; those live
// in internal/app/services/.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (users, companies, clients, documents, ...)
//	├── storage/            # Store interfaces and sentinels
//	│   ├── memory/         # In-memory implementation for tests and local runs
//	│   └── postgres/       # PostgreSQL implementation
//	├── services/           # Auth, clients, products, documents, expenses, settings
//	│   ├── pdf/            # Document PDF rendering
//	│   └── export/         # XLSX exports
//	├── validation/         # Payload validation and Bulgarian identifiers
//	├── jobs/               # Scheduled background jobs
//	├── system/             # Service lifecycle management
//	├── metrics/            # Prometheus collectors
//	├── httpapi/            # REST handlers and routing
//	└── runtime/            # Config-driven server assembly
//
// # Dependency Direction
//
//	cmd/invoicer/
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi
//	      │                        │
//	      ▼                        ▼
//	internal/app (composition) ──► internal/app/services ──► internal/app/storage
//
// Every company-owned record is read and written through the caller's company
// id; another company's rows behave as missing.
package app
