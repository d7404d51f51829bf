// Package services contains the application services of the journal client:
// identity management (register, login, secret change), sealed entries and
// bundle export/import.
//
// Services never hold the session key themselves. They borrow it from the
// session manager for the duration of one seal/open batch, so a logout or an
// idle expiry can never tear the key down mid-operation.
package services
