package batch

import "log/slog"

// Kind tells import events from export events.
type Kind string

const (
	KindImport Kind = "import"
	KindExport Kind = "export"
)

// Observer receives batch events. Controllers only emit events; how they
// are shown is up to the caller. Implementations must be safe for
// concurrent use since several sessions may run batches at once.
type Observer interface {
	OnStart(kind Kind, total int)
	OnItemDone(kind Kind, name string, p Progress)
	// OnItemFailed is called for items that were skipped because of an
	// error. The batch continues.
	OnItemFailed(kind Kind, name string, err error)
	OnFinish(kind Kind, p Progress)
}

type nopObserver struct{}

func (nopObserver) OnStart(Kind, int)                {}
func (nopObserver) OnItemDone(Kind, string, Progress) {}
func (nopObserver) OnItemFailed(Kind, string, error)  {}
func (nopObserver) OnFinish(Kind, Progress)           {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

// LogObserver writes batch events to a structured logger.
type LogObserver struct {
	Logger *slog.Logger
}

var _ Observer = LogObserver{}

func (o LogObserver) log() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o LogObserver) OnStart(kind Kind, total int) {
	o.log().Info("batch started", "kind", kind, "total", total)
}

func (o LogObserver) OnItemDone(kind Kind, name string, p Progress) {
	o.log().Debug("batch item done", "kind", kind, "name", name, "current", p.Current, "total", p.Total)
}

func (o LogObserver) OnItemFailed(kind Kind, name string, err error) {
	o.log().Warn("batch item skipped", "kind", kind, "name", name, "err", err)
}

func (o LogObserver) OnFinish(kind Kind, p Progress) {
	o.log().Info("batch finished", "kind", kind, "state", p.State, "current", p.Current, "total", p.Total)
}
