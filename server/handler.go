package server

import (
	"net/url"
	"path"
	"strings"
	"time"

	filehttp "github.com/always-cache/filehttp"
	"github.com/always-cache/filehttp/pkg/message"
)

const (
	serverName = "FileServer/0.0.1"
	// RFC 1123 with the zone fixed to GMT.
	dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// prelude starts a response carrying the headers every response has.
func prelude(version message.Version, persist bool) *message.ResponseBuilder {
	connection := "close"
	if persist {
		connection = "keep-alive"
	}
	return message.NewResponse(version).
		WithHeader("Server", serverName).
		WithHeader("Date", time.Now().UTC().Format(dateFormat)).
		WithHeader("Connection", connection)
}

func errorResponse(version message.Version, persist bool, err error) *message.Response {
	return prelude(version, persist).
		WithStatus(filehttp.StatusCode(err)).
		WithBody(message.TypePlainText, []byte(err.Error()+"\r\n")).
		Build()
}

func continueResponse() *message.Response {
	return message.NewResponse(message.HTTP11).WithStatus(100).Build()
}

func decodePath(p string) (string, error) {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", filehttp.Parsef("Couldn't decode path %s", p)
	}
	return decoded, nil
}

func (s *Server) handleGet(req *message.Request, persist bool) *message.Response {
	name, err := decodePath(req.Path)
	if err != nil {
		return errorResponse(req.Version, persist, err)
	}
	data, err := s.store.Read(name)
	if err != nil {
		return errorResponse(req.Version, persist, err)
	}
	return prelude(req.Version, persist).
		WithStatus(200).
		WithBody(message.ContentTypeFor(name), data).
		Build()
}

// handlePost stores the already framed body of req.
func (s *Server) handlePost(req *message.Request, persist bool) *message.Response {
	if err := s.storeUpload(req); err != nil {
		return errorResponse(req.Version, persist, err)
	}
	msg := "File " + path.Base(req.Path) + " was successfully uploaded!\r\n"
	return prelude(req.Version, persist).
		WithStatus(200).
		WithBody(message.TypePlainText, []byte(msg)).
		Build()
}

func (s *Server) storeUpload(req *message.Request) error {
	name, err := decodePath(req.Path)
	if err != nil {
		return err
	}
	if !req.Header.Has("content-length") && !req.Header.Has("transfer-encoding") {
		return filehttp.MissingHeader("Content-Length")
	}
	contentType, ok := req.Header.Get("content-type")
	if !ok {
		return filehttp.MissingHeader("Content-Type")
	}
	ext, ok := message.Extension(strings.TrimSpace(contentType))
	if !ok {
		return filehttp.Formatf("Acceptable Content-Type's: %s.", strings.Join(message.AcceptedTypes(), ","))
	}
	if !strings.HasSuffix(name, "."+ext) {
		return filehttp.Formatf("Content-Type is %s , but the extension is not .%s.", contentType, ext)
	}
	return s.store.Write(name, req.Body)
}
