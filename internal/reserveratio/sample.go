package reserveratio

import "os"

// writeSample persists an HTML sample to disk; split out from
// maybeSaveSample so the mutex-guarded caller stays small and testable
// separately from file I/O.
func writeSample(path, html string) error {
	return os.WriteFile(path, []byte(html), 0o644)
}
