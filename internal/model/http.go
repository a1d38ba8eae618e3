package model

// ClassHTTP is the external view of a loaded test class.
type ClassHTTP struct {
	Name string `json:"name"`
	// Loader is the name of the isolation context that defines the class.
	Loader  string   `json:"loader"`
	Methods []string `json:"methods"`
}

type ErrorHTTP struct {
	Error string `json:"error"`
}
