package diag

// Reporter receives messages from producers such as the .bib reader or the orchestrator.
type Reporter interface {
	Report(m Message)
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(m Message) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(m)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(Message) {}

// MultiReporter fans a message out to several reporters.
type MultiReporter []Reporter

func (mr MultiReporter) Report(m Message) {
	for _, r := range mr {
		if r != nil {
			r.Report(m)
		}
	}
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Message)

func (f ReporterFunc) Report(m Message) { f(m) }
