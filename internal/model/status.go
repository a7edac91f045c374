package model

// ConnectionStatus is the connection indicator shown by a Presenter.
type ConnectionStatus struct {
	Connected bool
	Label     string
}

var (
	StatusFetching        = ConnectionStatus{Connected: true, Label: "Fetching data..."}
	StatusLive            = ConnectionStatus{Connected: true, Label: "Live"}
	StatusFetchError      = ConnectionStatus{Connected: false, Label: "Error fetching data"}
	StatusConnectionError = ConnectionStatus{Connected: false, Label: "Connection error"}
)

func (s ConnectionStatus) String() string {
	return s.Label
}
