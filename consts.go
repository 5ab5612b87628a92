package edgelog

import "time"

const (
	emptyString = ""

	// DefaultSource tags events when neither the logger nor Config names one.
	DefaultSource          = "server"
	DefaultShutdownTimeout = 5 * time.Second
)

// Environment variables read by LoadConfig.
const (
	EnvToken           = "EDGELOG_TOKEN"
	EnvURL             = "EDGELOG_URL"
	EnvOrgID           = "EDGELOG_ORG_ID"
	EnvDataset         = "EDGELOG_DATASET"
	EnvLogLevel        = "EDGELOG_LOG_LEVEL"
	EnvNoPrettyPrint   = "EDGELOG_NO_PRETTY_PRINT"
	EnvSource          = "EDGELOG_SOURCE"
	EnvBatchSize       = "EDGELOG_BATCH_SIZE"
	EnvFlushInterval   = "EDGELOG_FLUSH_INTERVAL"
	EnvShutdownTimeout = "EDGELOG_SHUTDOWN_TIMEOUT"
	EnvLogFile         = "EDGELOG_LOG_FILE"
)

// Top level keys of an event in its wire form. Fields may not use them.
const (
	keyTime     = "_time"
	keyLevel    = "level"
	keyMessage  = "message"
	keyFields   = "fields"
	keyRequest  = "request"
	keyPlatform = "platform"
	keyArgs     = "args"
)

var reservedFieldKeys = map[string]bool{
	keyTime:     true,
	keyLevel:    true,
	keyRequest:  true,
	keyPlatform: true,
}

const (
	errMsgNilConfig     = "Logging config is nil."
	errMsgNilService    = "Configurator is nil."
	errMsgConfigInvalid = "Logging configuration is invalid."
	errMsgBadEnvValue   = "Environment variable has an invalid value."
	errMsgReadFile      = "Reading configuration file failed."
	errMsgParseFile     = "Parsing configuration file failed."
	errMsgLogDir        = "Failed to create log file directory."
)
