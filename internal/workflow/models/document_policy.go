package models

import (
	"path/filepath"
	"strings"

	dErrors "dealflow/pkg/domain-errors"
	dfstrings "dealflow/pkg/platform/strings"
)

// DefaultMaxDocumentBytes is the upload ceiling when none is configured.
const DefaultMaxDocumentBytes int64 = 25 << 20

// DefaultAllowedTypes maps accepted MIME types to their file extensions.
var DefaultAllowedTypes = map[string][]string{
	"application/pdf": {".pdf"},
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"image/heic":      {".heic"},
}

// DocumentPolicy is the boundary check applied before any document row exists.
type DocumentPolicy struct {
	MaxBytes     int64
	AllowedTypes map[string][]string
}

// DefaultDocumentPolicy returns the policy used when nothing is configured.
func DefaultDocumentPolicy() DocumentPolicy {
	return DocumentPolicy{MaxBytes: DefaultMaxDocumentBytes, AllowedTypes: DefaultAllowedTypes}
}

// ParseAllowedTypes reads "mime:ext|ext,mime:ext" as used by DOCUMENT_ALLOWED_TYPES.
func ParseAllowedTypes(raw string) (map[string][]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultAllowedTypes, nil
	}
	out := make(map[string][]string)
	for _, entry := range strings.Split(raw, ",") {
		mime, exts, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || mime == "" || exts == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "allowed type entry must look like mime:ext|ext, got "+entry)
		}
		mime = strings.ToLower(mime)
		for _, ext := range strings.Split(exts, "|") {
			if ext = strings.TrimSpace(ext); ext != "" && !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			out[mime] = append(out[mime], ext)
		}
		out[mime] = dfstrings.DedupeAndTrimLower(out[mime])
	}
	return out, nil
}

// Check rejects oversized files and files whose MIME type or extension is not accepted.
func (p DocumentPolicy) Check(file FileMetadata) error {
	limit := p.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxDocumentBytes
	}
	if file.Size <= 0 {
		return dErrors.New(dErrors.CodeValidation, "fileSize must be greater than 0")
	}
	if file.Size > limit {
		return dErrors.New(dErrors.CodeFileTooLarge, "file exceeds the maximum upload size")
	}
	allowed := p.AllowedTypes
	if allowed == nil {
		allowed = DefaultAllowedTypes
	}
	mime := strings.ToLower(strings.TrimSpace(file.MimeType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	exts, ok := allowed[mime]
	if !ok {
		return dErrors.New(dErrors.CodeFileBadFormat, "file type "+mime+" is not accepted")
	}
	ext := strings.ToLower(filepath.Ext(file.Name))
	for _, e := range exts {
		if e == ext {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeFileBadFormat, "file extension does not match its type")
}
