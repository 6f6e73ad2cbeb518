package eventbus

// KindBang is the global reset topic.
const KindBang = "Bang"

// Bang resets every component's state: the engine's book, the adapter's
// mapping tables and partial-fill tracker, and the watchdog's tracked
// table. Two successive Bangs must be indistinguishable from one.
type Bang struct {
	Base
}

func (Bang) Kind() string { return KindBang }
