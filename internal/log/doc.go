// Package log provides the slog setup used by datalens.
//
// PathHandler wraps any slog.Handler and shortens absolute paths under the
// dataset root to root-relative form, so per-file debug lines stay
// readable for deep dataset trees:
//
//	logger := log.NewLogger(os.Stderr, verbose, "/srv/datasets/pets")
//	logger.Debug("corrupted image", "path", "/srv/datasets/pets/images/a.jpg")
//	// ... path=images/a.jpg
//
// Verbose mode logs at slog.LevelDebug; otherwise only warnings and errors
// are written.
package log
