package model

type Client struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
}

type CreateClientRequest struct {
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
}
