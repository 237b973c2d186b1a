package models

import (
	"mime/multipart"
	"path/filepath"
	"strings"
)

// Upload is one file received in a request. Open may be called more than once;
// every call yields a reader positioned at the start of the file.
type Upload struct {
	Filename string
	Size     int64
	Open     func() (multipart.File, error)
}

// UploadFromHeader adapts a parsed multipart file header.
func UploadFromHeader(fh *multipart.FileHeader) *Upload {
	if fh == nil {
		return nil
	}
	return &Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open:     fh.Open,
	}
}

// HasExt reports whether the upload's claimed filename ends with ext
// (".pdf", ".docx"), ignoring case. A nil upload never matches.
func (u *Upload) HasExt(ext string) bool {
	if u == nil || u.Filename == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Filename), strings.ToLower(ext))
}

// Artifact is a generated file in scratch storage, ready to be sent back.
type Artifact struct {
	Path        string
	ContentType string
}

// Name is the download name: the scratch file's base name.
func (a *Artifact) Name() string {
	return filepath.Base(a.Path)
}

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeZip  = "application/zip"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// NewArtifact picks the content type from the path's extension.
func NewArtifact(path string) *Artifact {
	ct := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		ct = ContentTypePDF
	case ".zip":
		ct = ContentTypeZip
	case ".docx":
		ct = ContentTypeDocx
	}
	return &Artifact{Path: path, ContentType: ct}
}
