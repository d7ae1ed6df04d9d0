package common

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	serviceName     = "taskline"
	serviceInstance = ""
)

func init() {
	logger := logrus.StandardLogger()
	logger.Out = os.Stdout
	logger.Formatter = &logrus.TextFormatter{}
	logger.AddHook(&DefaultFieldsHook{})

	if host, err := os.Hostname(); err == nil {
		serviceInstance = host
	}
}

func GetServiceName() string {
	return serviceName
}

func GetServiceInstance() string {
	return serviceInstance
}

// ConfigureLogger applies the format ("json" or "text") and level to the standard logger.
func ConfigureLogger(format, level string) {
	logger := logrus.StandardLogger()
	if strings.ToLower(format) == "json" {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("unknown log level %q, fallback to info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
}

type DefaultFieldsHook struct {
}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	e.Data["serviceName"] = GetServiceName()
	e.Data["serviceInstance"] = GetServiceInstance()
	return nil
}
