package handlers

// ResponseSignal values are returned in every response body under "signal"
// so clients can tell which stage succeeded or failed.
type ResponseSignal string

const (
	SignalFileTypeNotSupported    ResponseSignal = "file_type_not_supported"
	SignalFileSizeExceeded        ResponseSignal = "file_size_exceeded"
	SignalFileUploadedSuccess     ResponseSignal = "file_uploaded_success"
	SignalFileUploadedFailed      ResponseSignal = "file_uploaded_failed"
	SignalFileProcessingFailed    ResponseSignal = "file_processing_failed"
	SignalFileProcessedSuccess    ResponseSignal = "file_processed_success"
	SignalFileProcessingEnqueued  ResponseSignal = "file_processing_enqueued"
	SignalNoFilesForProcessing    ResponseSignal = "no_files_found_for_processing"
	SignalNoFilesError            ResponseSignal = "not_found_files_error"
	SignalFileIDError             ResponseSignal = "no_file_found_with_given_id_error"
	SignalProjectNotFound         ResponseSignal = "project_not_found_error"
	SignalChunkingError           ResponseSignal = "chunking_error"
	SignalInvalidRequest          ResponseSignal = "invalid_request_error"
	SignalInsertIntoVectorDBError ResponseSignal = "insert_into_vector_db_error"
	SignalInsertIntoVectorDBOK    ResponseSignal = "insert_into_vector_db_success"
	SignalIndexPushEnqueued       ResponseSignal = "index_push_enqueued"
	SignalCollectionInfoOK        ResponseSignal = "get_vector_db_collection_info_success"
	SignalCollectionNotFound      ResponseSignal = "vector_db_collection_not_found"
	SignalCollectionResetOK       ResponseSignal = "vector_db_collection_reset_success"
	SignalCollectionResetError    ResponseSignal = "vector_db_collection_reset_error"
	SignalVectorSearchError       ResponseSignal = "vector_search_error"
	SignalVectorSearchOK          ResponseSignal = "vector_search_success"
	SignalQueryRejected           ResponseSignal = "query_rejected"
	SignalRAGAnswerError          ResponseSignal = "rag_answer_error"
	SignalRAGAnswerRefused        ResponseSignal = "rag_answer_refused"
	SignalRAGAnswerOK             ResponseSignal = "rag_answer_success"
	SignalQueueUnavailable        ResponseSignal = "queue_unavailable"
	SignalRateLimited             ResponseSignal = "rate_limit_exceeded"
	SignalSecurityEventsOK        ResponseSignal = "security_events_success"
	SignalSecurityEventsError     ResponseSignal = "security_events_error"
)
