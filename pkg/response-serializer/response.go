package serializer

import (
	"bufio"
	"bytes"
	"strconv"
	"time"

	"github.com/always-cache/filehttp/pkg/message"
	"github.com/always-cache/filehttp/pkg/wire"
	"github.com/rs/zerolog/log"
)

const storedAtHeaderName = "Filehttp-Stored-At"

type StoredResponse struct {
	Response *message.Response
	// The value of the clock at the time the response was put in the cache.
	StoredAt time.Time
}

// BytesToStoredResponse reads back a response written by StoredResponseToBytes.
func BytesToStoredResponse(b []byte) (StoredResponse, error) {
	sRes := StoredResponse{}
	// nothing in b can be longer than b
	limits := wire.Limits{MaxLine: len(b), MaxBody: int64(len(b))}
	res, err := wire.ReadResponse(bufio.NewReader(bytes.NewReader(b)), limits)
	if err != nil {
		return sRes, err
	}
	sRes.Response = res
	if stamp, ok := res.Header.Get(storedAtHeaderName); ok {
		storedAt, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil {
			return sRes, err
		}
		sRes.StoredAt = time.Unix(storedAt, 0)
	} else {
		log.Warn().Msg("Stored response has no timestamp")
	}
	// delete extra headers
	res.Header.Del(storedAtHeaderName)
	return sRes, nil
}

// StoredResponseToBytes returns the HTTP/1.x representation of the stored
// response. The body is always framed by Content-Length, so a response that
// arrived chunked reads back without the transfer codec.
func StoredResponseToBytes(sRes StoredResponse) []byte {
	res := normalize(sRes.Response)
	res.Header.Set(storedAtHeaderName, strconv.FormatInt(sRes.StoredAt.Unix(), 10))
	return wire.Serialize(res)
}

// normalize returns a copy of res with its body re-framed by length.
// The original is left untouched.
func normalize(res *message.Response) *message.Response {
	clone := message.FromResponse(res, res.Body).Build()
	clone.Header.Del("transfer-encoding")
	clone.Header.Set("content-length", strconv.Itoa(len(res.Body)))
	if len(res.Body) > 0 && !clone.Header.Has("content-type") {
		clone.Header.Set("content-type", message.TypeOctetStream)
	}
	return clone
}
