package models

type UploadState string

const (
	UploadStateUploading  UploadState = "uploading"
	UploadStateProcessing UploadState = "processing"
	UploadStateSucceeded  UploadState = "succeeded"
	UploadStateFailed     UploadState = "failed"
)

// Processing states reported by the upload service.
const (
	ProcessingPending    = "pending"
	ProcessingInProgress = "in_progress"
	ProcessingSucceeded  = "succeeded"
	ProcessingFailed     = "failed"
)

// MediaUploadSession tracks one upload. It never outlives the call that
// created it.
type MediaUploadSession struct {
	MediaID     string
	TotalBytes  int64
	SegmentSize int
	NextSegment int
	State       UploadState
}

// SegmentCount is ceil(TotalBytes / SegmentSize).
func (s *MediaUploadSession) SegmentCount() int {
	if s.TotalBytes == 0 {
		return 0
	}
	return int((s.TotalBytes + int64(s.SegmentSize) - 1) / int64(s.SegmentSize))
}

// Segment returns the byte range of segment i within data.
func (s *MediaUploadSession) Segment(data []byte, i int) []byte {
	start := i * s.SegmentSize
	end := start + s.SegmentSize
	if end > len(data) {
		end = len(data)
	}
	return data[start:end]
}
