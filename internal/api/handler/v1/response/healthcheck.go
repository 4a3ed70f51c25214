package response

type Healthcheck struct {
	Status string `json:"status"`
}
