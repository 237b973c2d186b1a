package models

import "context"

// PDFDocument is an opened PDF held by the PDF-to-document converter. Close
// releases the converter's resources and must be called on every path.
type PDFDocument interface {
	PageCount() int
	// Convert writes pages first..last (zero-based, inclusive) to docxPath.
	Convert(ctx context.Context, docxPath string, first, last int) error
	Close() error
}

// PDFToDocx is the external PDF-to-document capability.
type PDFToDocx interface {
	Open(ctx context.Context, pdfPath string) (PDFDocument, error)
}

// OfficeEnv is an initialized component environment for document-to-PDF
// conversion. It is not reentrant; Release must follow every Acquire.
type OfficeEnv interface {
	ConvertDocx(ctx context.Context, docxPath, pdfPath string) error
	Release() error
}

// DocxToPDF is the optional, platform-specific document-to-PDF capability.
type DocxToPDF interface {
	Available() bool
	Acquire(ctx context.Context) (OfficeEnv, error)
}
