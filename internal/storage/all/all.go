// Package all registers every storage backend with the factory registry.
// Entry points blank-import it so config selects the backend by kind
// without the commands importing backends individually.
package all

import (
	_ "waterdata/internal/storage/document"
	_ "waterdata/internal/storage/postgres"
	_ "waterdata/internal/storage/sqlite"
)
