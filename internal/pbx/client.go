package pbx

import "context"

// Client is the narrow fetch/translate boundary to a concrete PBX system.
//
// Implementations own HTTP details, pagination and payload translation;
// callers only see provider-agnostic notices. Fetching happens in the job
// layer, never inside a database transaction.
type Client interface {
	FetchRecordings(ctx context.Context, account PBXAccount) ([]RecordingNotice, error)
}
