package tick

import "github.com/sirupsen/logrus"

// log is the package's structured logger, a single package-level entry in
// the teacher's style (warehouse's package-level Config var) rather than a
// logger threaded through every call. Fields are added per call site.
var log = logrus.WithField("subsystem", "tick")
