package ingest

const (
	errMsgNilClient    = "Ingest client is nil."
	errMsgNoDataset    = "Dataset name is empty."
	errMsgClientCreate = "Failed to create ingestion client."
	errMsgFlushFailed  = "Flushing buffered events failed."
)
