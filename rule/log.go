package rule

import "github.com/sirupsen/logrus"

// logEntry is the package's structured logger, following the teacher's
// single-package-level-var convention for cross-cutting state. Named to
// avoid colliding with the effect log parameter threaded through
// RunToQuiescence.
var logEntry = logrus.WithField("subsystem", "rule")
