// Package requests defines the inbound API payloads and their binding rules.
package requests

type Register struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type Login struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfile struct {
	Username string `json:"username" binding:"required,max=100"`
}

type CreateChat struct {
	Title string `json:"title" binding:"max=255"`
}

type SendMessage struct {
	Content string `json:"content" binding:"required,max=50000"`

	// DocumentRefs opts the message into document grounding.
	DocumentRefs []string `json:"document_refs" binding:"max=20,dive,required,max=128"`

	// UseStatistics opts into economic series grounding; SeriesCodes
	// overrides the configured default series.
	UseStatistics bool     `json:"use_statistics"`
	SeriesCodes   []string `json:"series_codes" binding:"max=10,dive,required,max=20"`
}
