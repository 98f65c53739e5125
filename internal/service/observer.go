package service

// Observer receives the domain events exported as metrics.
// *metrics.Metrics implements it.
type Observer interface {
	ClickRecorded()
	CacheLookup(result string)
	UploadFinished(backend string, err error)
}

type nopObserver struct{}

func (nopObserver) ClickRecorded()                {}
func (nopObserver) CacheLookup(string)            {}
func (nopObserver) UploadFinished(string, error) {}
