// Package page decides whether a document address belongs to the plugin
// management screen of the host application.
package page
