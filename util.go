package ipmigo

import (
	"encoding/json"
	"net"

	"github.com/sirupsen/logrus"
)

func toJSON(s interface{}) string {
	r, _ := json.Marshal(s)
	return string(r)
}

// retry invokes f up to retries+1 times, continuing only while f fails
// with a network timeout. Any other error, or success, returns immediately.
func retry(retries int, f func() error) (err error) {
	for i := 0; i <= retries; i++ {
		err = f()
		switch e := err.(type) {
		case net.Error:
			if e.Timeout() {
				continue
			}
		}
		return
	}
	return
}

// defaultLogger returns l if non-nil, otherwise the package-wide standard logger.
func defaultLogger(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	return logrus.StandardLogger()
}
