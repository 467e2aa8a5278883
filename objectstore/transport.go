package objectstore

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

// called with the bytes transferred so far and the total byte count,
// -1 when the total is unknown
type ProgressFunc func(byteCount int64, totalByteCount int64)

// the network capability consumed by the command runner. returns the
// http status code and raw body text, or a transport-level error when
// the call could not complete.
type Transport interface {
	Execute(
		ctx context.Context,
		req *http.Request,
		uploadProgress ProgressFunc,
		downloadProgress ProgressFunc,
	) (statusCode int, body string, err error)
}

type HttpTransport struct {
	client *http.Client
}

func NewHttpTransport() *HttpTransport {
	return NewHttpTransportWithClient(defaultClient())
}

func NewHttpTransportWithClient(client *http.Client) *HttpTransport {
	return &HttpTransport{
		client: client,
	}
}

func (self *HttpTransport) Execute(
	ctx context.Context,
	req *http.Request,
	uploadProgress ProgressFunc,
	downloadProgress ProgressFunc,
) (int, string, error) {
	req = req.WithContext(ctx)

	if uploadProgress != nil && req.Body != nil {
		req.Body = &readCloser{
			Reader: &progressReader{
				reader:   req.Body,
				total:    req.ContentLength,
				callback: uploadProgress,
			},
			Closer: req.Body,
		}
	}

	r, err := self.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer r.Body.Close()

	var reader io.Reader = r.Body
	if downloadProgress != nil {
		reader = &progressReader{
			reader:   r.Body,
			total:    r.ContentLength,
			callback: downloadProgress,
		}
	}

	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return 0, "", err
	}
	return r.StatusCode, string(bodyBytes), nil
}

type progressReader struct {
	reader      io.Reader
	total       int64
	transferred int64
	callback    ProgressFunc
}

func (self *progressReader) Read(b []byte) (int, error) {
	n, err := self.reader.Read(b)
	if 0 < n {
		self.transferred += int64(n)
		self.callback(self.transferred, self.total)
	}
	return n, err
}

type readCloser struct {
	io.Reader
	io.Closer
}
