package analytics

import "context"

// Nop discards everything; used when no collection key is configured.
type Nop struct{}

var _ Collector = Nop{}

func (Nop) Identify(context.Context, string, Properties) {}
func (Nop) Track(context.Context, string, Properties)    {}
func (Nop) Reset(context.Context)                        {}
