package streamworker

// Message is the unit of exchange between controller and worker: a name
// identifying the kind of payload and an opaque data string. Messages are
// values; neither side mutates one after construction.
type Message struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// Options carries worker construction parameters. The session hands it to the
// factory exactly once, read-only; nothing mutates it after handoff.
type Options map[string]string

// Get returns the value for key, or def when the key is unset.
func (o Options) Get(key, def string) string {
	if v, ok := o[key]; ok {
		return v
	}
	return def
}
