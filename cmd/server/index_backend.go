package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"streamplays.tv/internal/persistence/indexdb"
)

// runtimeIndex is the secondary index the server writes to. It is nil when
// indexing is disabled.
type runtimeIndex interface {
	RecordInput(r indexdb.InputRow)
	RecordSave(r indexdb.SaveRow)
	RecordSession(r indexdb.SessionRow)
	Stats() indexdb.Stats
	Close() error
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}
	backend := strings.ToLower(envString("SP_INDEX_BACKEND", "sqlite"))
	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index", "stream.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported SP_INDEX_BACKEND: %s", backend)
	}
}
