package session

import (
	"github.com/grafana/cassbridge/pkg/driver"
	"github.com/grafana/cassbridge/pkg/prepared"
	"github.com/grafana/cassbridge/pkg/term"
)

// Tag identifies the operation a message completes.
type Tag string

const (
	TagSessionConnected        Tag = "session_connected"
	TagSessionClosed           Tag = "session_closed"
	TagPreparedStatementResult Tag = "prepared_statement_result"
	TagExecuteStatementResult  Tag = "execute_statement_result"
)

// Message is delivered to a process mailbox once per operation.
type Message interface {
	Tag() Tag
	// Failed returns the error the operation failed with, nil on success.
	Failed() error
}

// SessionConnected completes Connect. Token is echoed on success and failure.
type SessionConnected struct {
	Token term.Term
	Err   error
}

// SessionClosed completes Close. Ref is the reference returned by Close.
type SessionClosed struct {
	Ref term.Ref
	Err error
}

// PreparedStatementResult completes Prepare. On success the receiver owns
// Statement and must Close it.
type PreparedStatementResult struct {
	Statement *prepared.Statement
	Err       error
	Token     term.Term
}

// ExecuteStatementResult completes Execute.
type ExecuteStatementResult struct {
	Token  term.Term
	Result *driver.Result
	Err    error
}

func (SessionConnected) Tag() Tag        { return TagSessionConnected }
func (SessionClosed) Tag() Tag           { return TagSessionClosed }
func (PreparedStatementResult) Tag() Tag { return TagPreparedStatementResult }
func (ExecuteStatementResult) Tag() Tag  { return TagExecuteStatementResult }

func (m SessionConnected) Failed() error        { return m.Err }
func (m SessionClosed) Failed() error           { return m.Err }
func (m PreparedStatementResult) Failed() error { return m.Err }
func (m ExecuteStatementResult) Failed() error  { return m.Err }
