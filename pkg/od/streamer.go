package od

import "sync"

// OD_FLAGS_PDO_SIZE is the number of bytes reserved per extension for PDO
// mapping flags, one bit per subindex.
const OD_FLAGS_PDO_SIZE = FlagsPdoSize

// A Stream object is used for streaming data from / to an OD entry.
// It is meant to be used inside of a [StreamReader] or [StreamWriter] function
// and provides low level access for defining custom behaviour when reading
// or writing to an OD entry.
type Stream struct {
	// Mutex used for synchronizing OD access
	mu *sync.RWMutex
	// The actual corresponding data stored inside of OD
	Data []byte
	// This is used to keep track of how much has been written or read.
	// It is typically used for long running transfers i.e. block transfers.
	DataOffset uint32
	// The actual length of the data inside of the OD. This can be different
	// from len(Data) when manipulating data with varying sizes like strings
	// or buffers.
	DataLength uint32
	// A custom object that can be used when using a custom extension,
	// see [Entry.AddExtension]
	Object any
	// The OD attribute of the entry inside OD, e.g. AttributeSdoR
	Attribute uint8
	// The subindex of this OD entry. For a VAR type this is always 0.
	Subindex uint8
}

// A StreamReader reads up to len(data) bytes from a [Stream] into data,
// returning the number of bytes copied. It returns [ErrPartial] when more
// data remains to be read on a subsequent call.
type StreamReader func(stream *Stream, data []byte) (uint16, error)

// A StreamWriter writes data into a [Stream], returning the number of bytes
// consumed. It returns [ErrPartial] when the transfer is not yet complete.
type StreamWriter func(stream *Stream, data []byte) (uint16, error)

// extension object is used for extending the functionality of an OD entry.
// This package has some pre-made extensions for defined CiA entries.
type extension struct {
	object   any          // Any object to link with extension
	read     StreamReader // Called when reading entry
	write    StreamWriter // Called when writing to entry
	flagsPDO [OD_FLAGS_PDO_SIZE]uint8
}

// Streamer is created before accessing an OD entry. It wraps the entry's
// [Stream] together with the reader/writer that should be used to access it,
// either the default copy-based accessors or an application extension.
type Streamer struct {
	Stream
	reader StreamReader
	writer StreamWriter
}

// Read implements io.Reader
func (s *Streamer) Read(b []byte) (n int, err error) {
	count, err := s.reader(&s.Stream, b)
	return int(count), err
}

// Write implements io.Writer
func (s *Streamer) Write(b []byte) (n int, err error) {
	count, err := s.writer(&s.Stream, b)
	return int(count), err
}

// Writer returns the streamer's current writer
func (s *Streamer) Writer() StreamWriter {
	return s.writer
}

// Reader returns the streamer's current reader
func (s *Streamer) Reader() StreamReader {
	return s.reader
}

// SetWriter sets a new streamer writer
func (s *Streamer) SetWriter(writer StreamWriter) {
	s.writer = writer
}

// SetReader sets a new streamer reader
func (s *Streamer) SetReader(reader StreamReader) {
	s.reader = reader
}

// HasAttribute returns true if the streamed entry has the given OD attribute
func (s *Streamer) HasAttribute(attribute uint8) bool {
	return (s.Attribute & attribute) != 0
}

// NewStreamer creates an object streamer for a given OD entry + subindex.
// When origin is true, any extension registered on the entry is bypassed and
// the default copy accessors are used instead.
func NewStreamer(entry *Entry, subIndex uint8, origin bool) (Streamer, error) {
	if entry == nil || entry.object == nil {
		return Streamer{}, ErrIdxNotExist
	}
	streamer := Streamer{}
	object := entry.object

	switch obj := object.(type) {
	case *Variable:
		if subIndex > 0 {
			return Streamer{}, ErrSubNotExist
		}
		if obj.DataType == DOMAIN && entry.extension == nil && !origin {
			// Domain entries require an extension, by default they are disabled
			streamer.reader = ReadEntryDisabled
			streamer.writer = WriteEntryDisabled
			streamer.Object = nil
			streamer.DataOffset = 0
			streamer.Subindex = subIndex
			streamer.mu = &obj.mu
			entry.logger.Warn("no extension specified for domain object")
			return streamer, nil
		}
		streamer.Attribute = obj.Attribute
		streamer.Data = obj.value
		streamer.DataLength = obj.DataLength()
		streamer.mu = &obj.mu

	case *VariableList:
		variable, err := obj.GetSubObject(subIndex)
		if err != nil {
			return Streamer{}, err
		}
		streamer.Attribute = variable.Attribute
		streamer.Data = variable.value
		streamer.DataLength = variable.DataLength()
		streamer.mu = &variable.mu

	default:
		entry.logger.Error("unknown entry object type", "type", object)
		return Streamer{}, ErrDevIncompat
	}

	// Add normal reader / writer for object
	if entry.extension == nil || origin {
		streamer.reader = ReadEntryDefault
		streamer.writer = WriteEntryDefault
		streamer.Object = nil
		streamer.DataOffset = 0
		streamer.Subindex = subIndex
		return streamer, nil
	}

	// Add extension reader / writer for object
	if entry.extension.read == nil {
		streamer.reader = ReadEntryDisabled
	} else {
		streamer.reader = entry.extension.read
	}
	if entry.extension.write == nil {
		streamer.writer = WriteEntryDisabled
	} else {
		streamer.writer = entry.extension.write
	}
	streamer.Object = entry.extension.object
	streamer.DataOffset = 0
	streamer.Subindex = subIndex
	return streamer, nil
}

// ReadEntryDefault is the default [StreamReader] for every OD entry without
// an extension. It copies from the original OD location, honouring partial
// transfers via stream.DataOffset.
func ReadEntryDefault(stream *Stream, data []byte) (uint16, error) {
	if stream == nil || stream.Data == nil || data == nil || stream.mu == nil {
		return 0, ErrDevIncompat
	}
	// Reading will hang if entry is already being written to. This is
	// problematic for SDO block transfers.
	stream.mu.RLock()
	defer stream.mu.RUnlock()

	dataLenToCopy := int(stream.DataLength)
	count := len(data)
	offset := stream.DataOffset
	var err error

	// If reading already started or not enough space in buffer, read
	// in several calls
	if stream.DataOffset > 0 || dataLenToCopy > count {
		if stream.DataOffset >= uint32(dataLenToCopy) {
			return 0, ErrDevIncompat
		}
		dataLenToCopy -= int(stream.DataOffset)
		if dataLenToCopy > count {
			// Partial read
			dataLenToCopy = count
			stream.DataOffset += uint32(dataLenToCopy)
			err = ErrPartial
		} else {
			stream.DataOffset = 0
		}
	}
	copy(data, stream.Data[offset:offset+uint32(dataLenToCopy)])
	return uint16(dataLenToCopy), err
}

// WriteEntryDefault is the default [StreamWriter] for every OD entry without
// an extension. It writes into the original OD location, honouring partial
// transfers via stream.DataOffset.
func WriteEntryDefault(stream *Stream, data []byte) (uint16, error) {
	if stream == nil || stream.Data == nil || data == nil || stream.mu == nil {
		return 0, ErrDevIncompat
	}
	// Writing will hang if entry is already being read. This is problematic
	// for SDO block transfers.
	stream.mu.Lock()
	defer stream.mu.Unlock()

	dataLenToCopy := int(stream.DataLength)
	count := len(data)
	offset := stream.DataOffset
	var err error

	if stream.DataOffset > 0 || dataLenToCopy > count {
		if stream.DataOffset >= uint32(dataLenToCopy) {
			return 0, ErrDevIncompat
		}
		dataLenToCopy -= int(stream.DataOffset)

		if dataLenToCopy > count {
			// Partial write
			dataLenToCopy = count
			stream.DataOffset += uint32(dataLenToCopy)
			err = ErrPartial
		} else {
			stream.DataOffset = 0
		}
	}

	// OD variable is smaller than the provided buffer
	if dataLenToCopy < count ||
		offset+uint32(dataLenToCopy) > uint32(len(stream.Data)) {
		return 0, ErrDataLong
	}

	copy(stream.Data[offset:offset+uint32(dataLenToCopy)], data)
	return uint16(dataLenToCopy), err
}

// ReadEntryDisabled is the [StreamReader] used when reading the actual entry
// is disabled.
func ReadEntryDisabled(stream *Stream, data []byte) (uint16, error) {
	return 0, ErrUnsuppAccess
}

// WriteEntryDisabled is the [StreamWriter] used when writing the actual entry
// is disabled.
func WriteEntryDisabled(stream *Stream, data []byte) (uint16, error) {
	return 0, ErrUnsuppAccess
}
