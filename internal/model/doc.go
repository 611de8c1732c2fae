// Package model defines the data structures shared by pluginlinks packages.
//
// This package contains the following main types:
//   - Page: A fetched HTML document with its response metadata
//   - Package: A plugin package listed by a package source
//   - PackageURLMap: Normalized package id to GitHub repository URL
//   - Pass: The outcome of one enhancement pass over a document
//   - Run: A stored summary of a past pass
//
// Models live in their own package so that enhance, pipeline, resolver,
// database and report can share them without import cycles.
package model
