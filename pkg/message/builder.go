package message

import "strconv"

// RequestBuilder assembles a Request.
type RequestBuilder struct {
	req Request
}

// NewRequest starts a request for verb and version, addressed to "/".
func NewRequest(verb Verb, version Version) *RequestBuilder {
	return &RequestBuilder{req: Request{
		Verb:    verb,
		Path:    "/",
		Version: version,
		Header:  Header{},
	}}
}

// To sets the request path.
func (b *RequestBuilder) To(path string) *RequestBuilder {
	b.req.Path = path
	return b
}

func (b *RequestBuilder) WithHeader(name, value string) *RequestBuilder {
	b.req.Header.Set(name, value)
	return b
}

// WithBody sets the body together with its Content-Type and Content-Length.
func (b *RequestBuilder) WithBody(contentType string, body []byte) *RequestBuilder {
	b.req.Header.Set("content-type", contentType)
	b.req.Header.Set("content-length", strconv.Itoa(len(body)))
	b.req.Body = body
	return b
}

// WithBodyConsumer appends a consumer for the response body.
func (b *RequestBuilder) WithBodyConsumer(c BodyConsumer) *RequestBuilder {
	b.req.consumers = append(b.req.consumers, c)
	return b
}

// Build returns the request. The builder can keep being used; the returned
// request does not share header storage with it.
func (b *RequestBuilder) Build() *Request {
	req := b.req
	req.Header = b.req.Header.Clone()
	req.consumers = append([]BodyConsumer(nil), b.req.consumers...)
	return &req
}

// ResponseBuilder assembles a Response.
type ResponseBuilder struct {
	res Response
}

func NewResponse(version Version) *ResponseBuilder {
	return &ResponseBuilder{res: Response{
		Version: version,
		Header:  Header{},
	}}
}

// FromResponse starts from the status line and headers of res with a new body.
func FromResponse(res *Response, body []byte) *ResponseBuilder {
	return &ResponseBuilder{res: Response{
		Version:       res.Version,
		StatusCode:    res.StatusCode,
		StatusMessage: res.StatusMessage,
		Header:        res.Header.Clone(),
		Body:          body,
	}}
}

// WithStatus sets the status code and its standard reason phrase.
func (b *ResponseBuilder) WithStatus(code int) *ResponseBuilder {
	b.res.StatusCode = code
	b.res.StatusMessage = StatusText(code)
	return b
}

func (b *ResponseBuilder) WithHeader(name, value string) *ResponseBuilder {
	b.res.Header.Set(name, value)
	return b
}

// WithBody sets the body together with its Content-Type and Content-Length.
func (b *ResponseBuilder) WithBody(contentType string, body []byte) *ResponseBuilder {
	b.res.Header.Set("content-type", contentType)
	b.res.Header.Set("content-length", strconv.Itoa(len(body)))
	b.res.Body = body
	return b
}

func (b *ResponseBuilder) Build() *Response {
	res := b.res
	res.Header = b.res.Header.Clone()
	return &res
}
