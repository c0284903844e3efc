package helpers

// Chunk emission concatenates many module sources, prologue lines, and
// epilogue lines. Measuring the total length first and allocating once is
// noticeably faster than growing a buffer, so the joiner records the
// pieces with their offsets and materializes at the end.
type Joiner struct {
	strings  []joinerString
	length   uint32
	lastByte byte
}

type joinerString struct {
	data   string
	offset uint32
}

func (j *Joiner) AddString(data string) {
	if len(data) > 0 {
		j.lastByte = data[len(data)-1]
	}
	j.strings = append(j.strings, joinerString{data, j.length})
	j.length += uint32(len(data))
}

func (j *Joiner) LastByte() byte {
	return j.lastByte
}

func (j *Joiner) Length() uint32 {
	return j.length
}

func (j *Joiner) EnsureNewlineAtEnd() {
	if j.length > 0 && j.lastByte != '\n' {
		j.AddString("\n")
	}
}

func (j *Joiner) Done() []byte {
	buffer := make([]byte, j.length)
	for _, item := range j.strings {
		copy(buffer[item.offset:], item.data)
	}
	return buffer
}
