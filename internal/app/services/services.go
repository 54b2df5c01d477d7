// Package services holds the business logic behind the HTTP controllers:
// authentication, the course catalog, enrollment, favorites, credit
// summaries and account administration.
package services

import "github.com/yigit/coursereg/internal/app/models"

// TermSettings carries the registration period the services treat as current.
type TermSettings struct {
	Current            models.Term
	DefaultMaxStudents int
}
