package moments

import "fmt"

// ValidationError reports a malformed request detected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid moment request: %s %s", e.Field, e.Reason)
}

// TicketError reports that the remote system refused an upload ticket.
type TicketError struct {
	Index    int
	MimeType string
	Err      error
}

func (e *TicketError) Error() string {
	return fmt.Sprintf("request upload ticket for media %d (%s): %v", e.Index, e.MimeType, e.Err)
}

func (e *TicketError) Unwrap() error {
	return e.Err
}

// UploadError reports a failed binary transfer to an issued ticket.
type UploadError struct {
	Index    int
	MimeType string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload media %d (%s): %v", e.Index, e.MimeType, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// RemoteCreationError reports that the final creation call was rejected.
// Media uploaded before the failure is left in place.
type RemoteCreationError struct {
	MediaKeys []string
	Err       error
}

func (e *RemoteCreationError) Error() string {
	return fmt.Sprintf("create moment: %v", e.Err)
}

func (e *RemoteCreationError) Unwrap() error {
	return e.Err
}
