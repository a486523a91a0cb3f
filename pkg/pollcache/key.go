package pollcache

import (
	"fmt"
	"strings"
	"time"
)

// Key identifies a query: its name plus the parameters it was issued with.
type Key struct {
	Name   string
	Params []any
}

// NewKey builds a Key.
func NewKey(name string, params ...any) Key {
	return Key{Name: name, Params: params}
}

// String renders the key as "name:p1:p2", e.g. "recentDeposits:5".
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Name
	}
	var b strings.Builder
	b.WriteString(k.Name)
	for _, p := range k.Params {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Options configures one query's freshness, refresh cadence and retries.
type Options struct {
	// StaleTime is how long a successful result is served without refetching.
	StaleTime time.Duration
	// RefetchInterval is the background refresh period. Zero disables it.
	RefetchInterval time.Duration
	// Retry is the number of extra attempts after a failed fetch.
	Retry int
	// RetryDelay is the initial delay between attempts.
	RetryDelay time.Duration
	// Timeout bounds one fetch including retries.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// Result is a snapshot of a cached query.
type Result[T any] struct {
	Data      T
	IsLoading bool
	IsError   bool
	Err       error
	UpdatedAt time.Time
}
