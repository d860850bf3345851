package bkc

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// ErrorKind classifies a failure so a driver can decide exit-code/log
// behaviour without string-matching messages.
type ErrorKind int

const (
	// KindConfiguration: out-of-range numeric parameter, unknown enum value.
	// The engine never starts.
	KindConfiguration ErrorKind = iota
	// KindIOOpen: missing input file, unwritable output. Run returns it as
	// soon as the failing open happens; input files are opened by the
	// per-file pass workers, so workers for other files may already be
	// running by then.
	KindIOOpen
	// KindIORead: truncated gzip block, a block too small for one record.
	// The reader thread aborts; other workers drain normally on the queue's
	// completed signal.
	KindIORead
	// KindRecordShape: bases length outside [cbc+umi, cbc+umi+soft] with
	// AllowStrangeCBCUMIReads off.
	KindRecordShape
	// KindShardOpen: a shard file could not be created or appended to (disk
	// full, permissions). Writing stops at the first such failure and Run
	// returns it; the other shards are not written further.
	KindShardOpen
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindIOOpen:
		return "io-open"
	case KindIORead:
		return "io-read"
	case KindRecordShape:
		return "record-shape"
	case KindShardOpen:
		return "shard-open"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with the kind used to decide how fatal
// it is: KindConfiguration aborts before any worker starts, KindIOOpen
// aborts Run at the failing open, KindIORead aborts the owning reader
// (others drain via queue completion), and KindShardOpen stops the write
// phase at the first failing shard.
type Error struct {
	Kind  ErrorKind
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bkc: %s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// wrap builds an *Error of the given kind, folding cause through errors.E
// so the kind name always appears in the chained message.
func wrap(kind ErrorKind, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Cause: errors.E(cause, kind.String())}
}
