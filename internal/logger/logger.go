package logger

// The linker aggregates diagnostics instead of failing fast: a stage keeps
// running after an error so that all problems in that stage are reported
// together, and the pipeline stops at the next stage boundary. The "Log"
// value here is shared by every stage and must be safe for concurrent use
// because several stages fan work out across goroutines.

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

type Loc struct {
	// This is the 0-based index of this location from the start of the file,
	// in bytes. It is also used as a stable key for spans recorded by the
	// scan stage (member expressions, dynamic imports).
	Start int32
}

type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
	Debug
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "ERROR"
	case Warning:
		return "WARNING"
	case Debug:
		return "DEBUG"
	default:
		panic("Internal error")
	}
}

type MsgData struct {
	Text string

	// Optional stable module id for "in file X" context
	File string
}

type Msg struct {
	Data  MsgData
	Notes []MsgData
	Kind  MsgKind
}

// A Log is a set of function pointers instead of an interface so that a
// custom log can replace individual operations while inheriting the rest.
type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg

	Level LogLevel
}

type LogLevel uint8

const (
	LevelNone LogLevel = iota
	LevelDebug
	LevelWarning
	LevelError
	LevelSilent
)

func (log Log) AddError(file string, text string) {
	log.AddMsg(Msg{Kind: Error, Data: MsgData{Text: text, File: file}})
}

func (log Log) AddErrorWithNotes(file string, text string, notes []MsgData) {
	log.AddMsg(Msg{Kind: Error, Data: MsgData{Text: text, File: file}, Notes: notes})
}

func (log Log) AddWarning(file string, text string) {
	log.AddMsg(Msg{Kind: Warning, Data: MsgData{Text: text, File: file}})
}

func (log Log) AddDebug(text string) {
	log.AddMsg(Msg{Kind: Debug, Data: MsgData{Text: text}})
}

// NewDeferLog buffers messages until "Done" is called. Message order is
// made deterministic by a stable sort at the end that moves errors ahead
// of all other messages; otherwise insertion order is preserved (warnings
// and debug messages stay interleaved), and insertion itself must already be
// deterministic (stages iterate modules and chunks in index order).
func NewDeferLog(level LogLevel) Log {
	var mutex sync.Mutex
	var msgs []Msg
	hasErrors := false

	return Log{
		Level: level,
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			msgs = append(msgs, msg)
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			sort.SliceStable(msgs, func(i int, j int) bool {
				return msgs[i].Kind == Error && msgs[j].Kind != Error
			})
			return msgs
		},
	}
}

type OutputOptions struct {
	Color    UseColor
	LogLevel LogLevel
}

type UseColor uint8

const (
	ColorIfTerminal UseColor = iota
	ColorNever
	ColorAlways
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[37m"
	colorBold   = "\033[1m"
)

// NewStderrLog is a defer log that also prints each message as it arrives.
func NewStderrLog(options OutputOptions) Log {
	deferred := NewDeferLog(options.LogLevel)
	terminal := GetTerminalInfo(os.Stderr)
	addMsg := deferred.AddMsg

	useColor := options.Color == ColorAlways ||
		(options.Color == ColorIfTerminal && terminal.UseColorEscapes)

	deferred.AddMsg = func(msg Msg) {
		addMsg(msg)
		if shouldPrint(options.LogLevel, msg.Kind) {
			fmt.Fprint(os.Stderr, msgString(msg, useColor))
		}
	}
	return deferred
}

func shouldPrint(level LogLevel, kind MsgKind) bool {
	switch level {
	case LevelNone, LevelDebug:
		return true
	case LevelWarning:
		return kind != Debug
	case LevelError:
		return kind == Error
	default:
		return false
	}
}

func msgString(msg Msg, useColor bool) string {
	var kindColor string
	switch msg.Kind {
	case Error:
		kindColor = colorRed
	case Warning:
		kindColor = colorYellow
	default:
		kindColor = colorDim
	}

	where := ""
	if msg.Data.File != "" {
		where = msg.Data.File + ": "
	}

	text := ""
	if useColor {
		text = fmt.Sprintf("%s%s%s:%s %s%s%s\n",
			kindColor, msg.Kind.String(), colorReset, colorBold, where, msg.Data.Text, colorReset)
	} else {
		text = fmt.Sprintf("%s: %s%s\n", msg.Kind.String(), where, msg.Data.Text)
	}
	for _, note := range msg.Notes {
		text += fmt.Sprintf("  note: %s\n", note.Text)
	}
	return text
}

// PrintMessages renders a batch of deferred messages (used by the CLI after
// a build finishes).
func PrintMessages(msgs []Msg, options OutputOptions) {
	terminal := GetTerminalInfo(os.Stderr)
	useColor := options.Color == ColorAlways ||
		(options.Color == ColorIfTerminal && terminal.UseColorEscapes)
	for _, msg := range msgs {
		if shouldPrint(options.LogLevel, msg.Kind) {
			fmt.Fprint(os.Stderr, msgString(msg, useColor))
		}
	}
}

type TerminalInfo struct {
	IsTTY           bool
	UseColorEscapes bool
	Width           int
}
