package housewatch

import "fmt"

// ErrorKind classifies a failed fetch. Callers treat every kind as "no
// data"; the kind exists for logs and metrics.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindTimeout
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindDecode:
		return "decode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FetchError is returned by Client.FetchTransactions. StatusCode is set when
// the server answered with a non-2xx status.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch transactions (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
