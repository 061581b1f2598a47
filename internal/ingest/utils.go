package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/debitsheet-import/constants"
)

// ExtSet builds a lookup set from extensions given with or without a dot.
// An empty list yields the default importable extensions.
func ExtSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return constants.AllowedExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		if e = constants.NormalizeExt(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// IsHidden checks if a file or directory is hidden (starts with '.').
// Office lock files ("~$order.xlsx") count as hidden too.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$")
}

func allowed(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}
