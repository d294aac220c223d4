package core

import "github.com/sirupsen/logrus"

// init configures the package-wide logrus formatter, matching the JSON
// formatter the teacher's VM package sets at startup so every component's
// structured fields (block, witness, version, ...) land in the same
// machine-parseable shape regardless of which subsystem logged them.
func init() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
}
