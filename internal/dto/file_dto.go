package dto

// FileResponse describes an object stored in the file deposit.
type FileResponse struct {
	URL       string `json:"url"`
	ObjectKey string `json:"object_key"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}
