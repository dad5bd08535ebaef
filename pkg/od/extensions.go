package od

// Extensions for segmented-transfer-style access to large values that don't
// fit a plain in-memory byte buffer: a file on disk ([FileObject]) or an
// arbitrary io.ReadSeeker (used by [ObjectDictionary.AddReader] to expose
// the dictionary's own source EDS for read-back over OD 0x1021).

import (
	"io"
	"log/slog"
	"os"
)

// FileObject backs a DOMAIN entry with a file on disk, read and/or written
// in the chunks a [Stream] presents them in.
type FileObject struct {
	logger    *slog.Logger
	FilePath  string
	WriteMode int
	ReadMode  int
	File      *os.File
}

// NewFileObject builds a FileObject for filePath; writeMode/readMode are
// os.O_* flags applied to the matching open call (the file isn't opened
// until the first read or write).
func NewFileObject(path string, logger *slog.Logger, writeMode int, readMode int) *FileObject {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileObject{
		logger:    logger.With("extension", "[FILE]"),
		FilePath:  path,
		WriteMode: writeMode,
		ReadMode:  readMode,
	}
}

// ReadEntryFileObject is a StreamReader that serves a [FileObject]'s
// contents as a segmented DOMAIN upload: the file is opened on the first
// chunk, seeked back to stream.DataOffset on every later one (a [Stream] may
// be handed across multiple unrelated reads), and closed once exhausted.
func ReadEntryFileObject(stream *Stream, data []byte) (uint16, error) {
	if stream == nil || data == nil || stream.Subindex != 0 || stream.Object == nil {
		return 0, ErrDevIncompat
	}
	fileObject, ok := stream.Object.(*FileObject)
	if !ok {
		stream.DataOffset = 0
		return 0, ErrDevIncompat
	}

	if stream.DataOffset == 0 {
		var err error
		fileObject.logger.Info("opening file for reading", "path", fileObject.FilePath)
		fileObject.File, err = os.OpenFile(fileObject.FilePath, fileObject.ReadMode, 0644)
		if err != nil {
			return 0, ErrDevIncompat
		}
	} else if _, err := fileObject.File.Seek(int64(stream.DataOffset), io.SeekStart); err != nil {
		return 0, ErrDevIncompat
	}

	n, err := io.ReadFull(fileObject.File, data)
	switch err {
	case nil:
		stream.DataOffset += uint32(n)
		return uint16(n), ErrPartial
	case io.EOF, io.ErrUnexpectedEOF:
		fileObject.logger.Info("finished reading", "path", fileObject.FilePath)
		fileObject.File.Close()
		return uint16(n), nil
	default:
		fileObject.logger.Warn("error reading", "path", fileObject.FilePath, "err", err)
		fileObject.File.Close()
		return uint16(n), ErrDevIncompat
	}
}

// WriteEntryFileObject is a StreamWriter that stores a segmented DOMAIN
// download into a [FileObject]'s file, opening it on the first chunk and
// closing it once stream.DataLength bytes have been written.
func WriteEntryFileObject(stream *Stream, data []byte) (uint16, error) {
	if stream == nil || data == nil || stream.Subindex != 0 || stream.Object == nil {
		return 0, ErrDevIncompat
	}
	fileObject, ok := stream.Object.(*FileObject)
	if !ok {
		stream.DataOffset = 0
		return 0, ErrDevIncompat
	}

	if stream.DataOffset == 0 {
		var err error
		fileObject.logger.Info("opening file for writing", "path", fileObject.FilePath)
		fileObject.File, err = os.OpenFile(fileObject.FilePath, fileObject.WriteMode, 0644)
		if err != nil {
			return 0, ErrDevIncompat
		}
	} else if _, err := fileObject.File.Seek(int64(stream.DataOffset), io.SeekStart); err != nil {
		return 0, ErrDevIncompat
	}

	n, err := fileObject.File.Write(data)
	if err != nil {
		fileObject.logger.Warn("error writing", "path", fileObject.FilePath, "err", err)
		fileObject.File.Close()
		return uint16(n), ErrDevIncompat
	}
	stream.DataOffset += uint32(n)
	if stream.DataOffset == stream.DataLength {
		fileObject.logger.Info("finished writing", "path", fileObject.FilePath)
		fileObject.File.Close()
		return uint16(n), nil
	}
	return uint16(n), ErrPartial
}

// ReadEntryReader is a StreamReader serving any io.ReadSeeker as a segmented
// DOMAIN upload, rewinding it to the start on the first chunk. It backs
// [ObjectDictionary.AddReader] — in particular the dictionary's own source
// EDS, exposed read-only at OD 0x1021 once parsing completes.
func ReadEntryReader(stream *Stream, data []byte) (uint16, error) {
	if stream == nil || data == nil || stream.Subindex != 0 || stream.Object == nil {
		return 0, ErrDevIncompat
	}
	reader, ok := stream.Object.(io.ReadSeeker)
	if !ok {
		stream.DataOffset = 0
		return 0, ErrDevIncompat
	}
	if stream.DataOffset == 0 {
		if _, err := reader.Seek(0, io.SeekStart); err != nil {
			return 0, ErrDevIncompat
		}
	}

	n, err := io.ReadFull(reader, data)
	switch err {
	case nil:
		stream.DataOffset += uint32(n)
		return uint16(n), ErrPartial
	case io.EOF, io.ErrUnexpectedEOF:
		return uint16(n), nil
	default:
		return uint16(n), ErrDevIncompat
	}
}
