package domain

// ConnState описывает состояние соединения с потоком бэкенда.
type ConnState string

const (
	ConnConnecting ConnState = "connecting"
	ConnOpen       ConnState = "open"
	ConnRetrying   ConnState = "retrying"
	ConnClosed     ConnState = "closed"
)

// ConnStatus снимок состояния соединения для отдачи наружу.
type ConnStatus struct {
	State     ConnState
	Attempts  int
	LastError string
}
