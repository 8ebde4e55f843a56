// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

// SubscribeForm holds the values redisplayed on the subscribe page.
type SubscribeForm struct {
	Name  string
	Email string
	Error string
}

// IssueForm holds the values redisplayed on the newsletter page.
type IssueForm struct {
	Title string
	HTML  string
	Text  string
	Error string
}
