// Package handler contains HTTP request handlers for the dashboard API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc — a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, headers)
// 2. Call business logic (service layer)
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic — they are the "glue" between HTTP and your app.
package handler

import (
	"io/fs"
	"net/http"
	"path"
)

// NewStaticHandler serves the frontend (index.html, dashboard.html, assets)
// from dir.
//
// Directories are served through their index.html; a directory without one
// is a 404 instead of a generated file listing.
func NewStaticHandler(dir string) http.Handler {
	return http.FileServer(indexOnlyFS{http.Dir(dir)})
}

// indexOnlyFS hides directory listings.
type indexOnlyFS struct {
	fs http.FileSystem
}

func (n indexOnlyFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}

	index, err := n.fs.Open(path.Join(name, "index.html"))
	if err != nil {
		f.Close()
		return nil, fs.ErrNotExist
	}
	index.Close()
	return f, nil
}
