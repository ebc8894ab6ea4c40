// Package logging sets up structured logging for the drivefetch CLI.
//
// Logs are written by zerolog through a console writer on stderr so they do
// not mix with command output on stdout. The level comes from the log_level
// setting; "off" disables logging entirely.
package logging
