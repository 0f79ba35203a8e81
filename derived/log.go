package derived

import "github.com/sirupsen/logrus"

// logEntry is the package's structured logger, following the teacher's
// single-package-level-var convention for cross-cutting state.
var logEntry = logrus.WithField("subsystem", "derived")
