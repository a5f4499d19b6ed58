package rollupallservers

type Input struct {
	Date string `json:"date,omitempty"`
}

type Output struct {
	Date             string   `json:"date"`
	Finalized        bool     `json:"finalized"`
	ServersProcessed int      `json:"serversProcessed"`
	ServersFailed    int      `json:"serversFailed"`
	FailedServerIDs  []string `json:"failedServerIds"`
}
