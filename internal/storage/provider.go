package storage

import "fileconv/internal/ports"

// Provider is the retention contract used by the API.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
