// Package main provides the entry point for the pluginlinks CLI.
//
// pluginlinks turns the plain-text version labels in a plugin settings table
// into links to each plugin's GitHub repository.
//
// Usage:
//
//	pluginlinks enhance <file-or-url>...
//	pluginlinks watch <file>
//	pluginlinks serve --upstream http://localhost:9999
//
// See --help for all available options.
package main

func main() {
	Execute()
}
