// Package logging provides structured slog logging for amanchunk.
//
// Without --debug the CLI logs warnings and errors to stderr only. With
// --debug, JSON logs at debug level are also written to a size-rotated file
// under ~/.amanchunk/logs/. The MCP server logs to the file only, because
// stdout carries the protocol stream.
//
// Viewer reads those JSON files back as text for 'amanchunk logs'.
package logging
