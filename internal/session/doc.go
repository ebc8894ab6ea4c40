// Package session holds the authentication context shared by the downloader
// and the Drive folder lister.
//
// A Session is created at sign-in and never modified. Re-authenticating
// installs a new Session in the Holder; readers that already hold the old one
// keep using it until they finish.
package session
