package voice

// MaxUploadBytes bounds a single voice recording upload (25 MB)
const MaxUploadBytes = 25 << 20

// maxFormOverheadBytes is the allowance for multipart boundaries and the
// agentname/persona fields on top of the audio file itself
const maxFormOverheadBytes = 1 << 20

// DownloadURLRequest represents the request body for POST /recordings/download-url
type DownloadURLRequest struct {
	Key       string `json:"key" binding:"required"`
	TTLMinute int    `json:"ttl_minutes,omitempty" binding:"omitempty,min=1,max=1440"`
}

// UploadURLRequest represents the request body for POST /recordings/upload-url.
// Clients that archive recordings themselves upload straight to object storage.
type UploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type,omitempty"`
	TTLMinute   int    `json:"ttl_minutes,omitempty" binding:"omitempty,min=1,max=1440"`
}

// UploadURLResponse represents the response body for POST /recordings/upload-url
type UploadURLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Key     string `json:"key"`
}

// DownloadURLResponse represents the response body for POST /recordings/download-url
type DownloadURLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Key     string `json:"key"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
